package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rack-track/library"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rack-track",
		Short:         "Library catalog and loan management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(adminCmd(), clientCmd(), importCmd())
	return root
}

func importCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Bulk-import books from a CSV file (title/author/year/isbn)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if replace {
				fmt.Println("Replace requested: wiping existing book rows.")
			}
			result, err := a.importer.ImportCSVFile(args[0], replace)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d books (%d duplicates skipped).\n",
				result.Inserted, result.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "wipe existing books before importing")
	return cmd
}

// app is the composition root: one store, one service of each kind.
type app struct {
	cfg       library.Config
	store     *library.Store
	catalog   *library.CatalogService
	directory *library.DirectoryService
	loans     *library.LoanService
	importer  *library.Importer
}

func newApp() (*app, error) {
	initLogger()
	cfg := library.LoadConfig()
	store, err := library.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{
		cfg:       cfg,
		store:     store,
		catalog:   library.NewCatalogService(store),
		directory: library.NewDirectoryService(store),
		loans:     library.NewLoanService(store, cfg),
		importer:  library.NewImporter(store),
	}, nil
}

func (a *app) close() { a.store.Close() }

func initLogger() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	// Interactive tool: keep the console quiet unless debugging.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("RACKTRACK_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// login prompts for credentials until they verify or the username is left
// blank, which cancels the session.
func login(a *app, sc *bufio.Scanner, role library.Role) (*library.Identity, error) {
	for {
		username := prompt(sc, "Username (blank to cancel): ")
		if username == "" {
			return nil, nil
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return nil, err
		}

		id, err := a.directory.VerifyCredentials(role, username, password)
		if err == nil {
			return id, nil
		}
		fmt.Printf("Access denied: invalid credentials. Please try again.\n")
	}
}

// readPassword reads a password without echoing it.
func readPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func prompt(sc *bufio.Scanner, label string) string {
	s, _ := promptLine(sc, label)
	return s
}

// promptLine reads one trimmed line; ok is false once stdin is exhausted,
// which lets session loops terminate instead of spinning on empty reads.
func promptLine(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt64(sc *bufio.Scanner, label string) (int64, bool) {
	s := prompt(sc, label)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Printf("Not a number: %q\n", s)
		return 0, false
	}
	return n, true
}

// reportErr renders a service error as a single human-readable line; the
// session always continues.
func reportErr(err error) {
	fmt.Printf("Error: %v\n", err)
}

// ------------------ rendering ------------------

func yearString(b *library.Book) string {
	if b.Year.Valid {
		return strconv.FormatInt(b.Year.Int64, 10)
	}
	return "-"
}

func printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-5s %-14s %-35s %-25s %-6s %-12s %s\n",
		"ID", "ISBN", "Title", "Author", "Year", "Status", "Shelf")
	for i := range books {
		b := &books[i]
		fmt.Printf("%-5d %-14d %-35s %-25s %-6s %-12s %s\n",
			b.ID, b.ISBN, clip(b.Title, 35), clip(b.Author, 25),
			yearString(b), b.Status, b.Shelf)
	}
}

func printLoans(loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans.")
		return
	}
	fmt.Printf("%-5s %-20s %-30s %-21s %-21s %-21s %s\n",
		"ID", "Client", "Book", "Issued", "Due", "Returned", "Fine")
	for i := range loans {
		l := &loans[i]
		returned := "-"
		if l.ReturnedAt.Valid {
			returned = l.ReturnedAt.String
		}
		fmt.Printf("%-5d %-20s %-30s %-21s %-21s %-21s %d\n",
			l.ID, l.ClientUsername, clip(l.BookTitle, 30),
			l.IssuedAt, l.DueDate, returned, l.Fine)
	}
}

func printClients(clients []library.Client) {
	if len(clients) == 0 {
		fmt.Println("No clients.")
		return
	}
	fmt.Printf("%-5s %-20s %s\n", "ID", "Username", "Email")
	for i := range clients {
		c := &clients[i]
		fmt.Printf("%-5d %-20s %s\n", c.ID, c.Username, c.Email)
	}
}

func printSummary(rows []library.LoanSummary) {
	if len(rows) == 0 {
		fmt.Println("No open loans.")
		return
	}
	fmt.Printf("%-8s %-20s %-8s %-8s %s\n", "Client", "Username", "Issued", "Overdue", "Fine")
	for i := range rows {
		r := &rows[i]
		clientID := "-"
		if r.ClientID.Valid {
			clientID = strconv.FormatInt(r.ClientID.Int64, 10)
		}
		fmt.Printf("%-8s %-20s %-8d %-8d %d\n",
			clientID, r.Username, r.Issued, r.Overdue, r.TotalFine)
	}
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max-1] + "…"
	}
	return s
}
