package library

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Config holds the tunables of the loan cycle and the database location.
type Config struct {
	DBPath     string // SQLite database file path
	LoanDays   int    // days from issue to due date
	MaxLoans   int    // open loans a client may hold at once
	FinePerDay int64  // fine units accrued per whole overdue day
}

// DefaultConfig returns the built-in defaults: a local rack-track.db,
// 14-day loans, 5 open loans per client, one fine unit per overdue day.
func DefaultConfig() Config {
	return Config{
		DBPath:     "rack-track.db",
		LoanDays:   14,
		MaxLoans:   5,
		FinePerDay: 1,
	}
}

// LoadConfig reads configuration from environment variables, falling back to
// the defaults. An unparseable numeric value is logged and ignored.
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.DBPath = getEnv("RACKTRACK_DB", cfg.DBPath)
	cfg.LoanDays = getEnvInt("RACKTRACK_LOAN_DAYS", cfg.LoanDays)
	cfg.MaxLoans = getEnvInt("RACKTRACK_MAX_LOANS", cfg.MaxLoans)
	cfg.FinePerDay = int64(getEnvInt("RACKTRACK_FINE_PER_DAY", int(cfg.FinePerDay)))
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("ignoring invalid numeric setting")
		return fallback
	}
	return n
}
