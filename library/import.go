package library

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// syntheticISBNBase seeds deterministic pseudo-ISBNs for rows that carry no
// usable ISBN: base plus the zero-based row index.
const syntheticISBNBase = 1_000_000_000_000

// ImportResult summarizes one bulk import run.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// Importer loads a delimited catalog file into the book table.
type Importer struct {
	store *Store
}

func NewImporter(store *Store) *Importer {
	return &Importer{store: store}
}

// ImportCSV reads rows from r and inserts them as available books. Headers
// title/author/year/isbn are matched case-insensitively. Rows whose ISBN is
// missing or non-numeric get a synthetic one; rows whose ISBN already
// exists are skipped. With replace set, existing books are wiped first. The
// whole run happens in one transaction.
func (imp *Importer) ImportCSV(r io.Reader, replace bool) (ImportResult, error) {
	var result ImportResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return result, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if err != nil {
		return result, errors.Wrap(err, "read header")
	}
	cols := headerIndex(header)
	if _, ok := cols["title"]; !ok {
		return result, fmt.Errorf("%w: no title column in header", ErrValidation)
	}

	err = imp.store.InTx(func(tx *sqlx.Tx) error {
		if replace {
			if _, err := tx.Exec(`DELETE FROM book`); err != nil {
				return errors.Wrap(err, "wipe books")
			}
		}

		for i := 0; ; i++ {
			record, err := cr.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.Wrapf(err, "read row %d", i+1)
			}

			title := truncate(field(record, cols, "title"), 255)
			author := truncate(field(record, cols, "author"), 255)
			year := parseYear(field(record, cols, "year"))

			isbn, err := strconv.ParseInt(strings.TrimSpace(field(record, cols, "isbn")), 10, 64)
			if err != nil || isbn <= 0 {
				isbn = syntheticISBNBase + int64(i)
			}

			res, err := tx.Exec(
				`INSERT OR IGNORE INTO book (isbn, id, title, author, status, rack_column_row, year)
                 VALUES (?, (SELECT COALESCE(MAX(id),0)+1 FROM book), ?, ?, ?, '', ?)`,
				isbn, title, author, StatusAvailable, year)
			if err != nil {
				return errors.Wrapf(err, "insert row %d", i+1)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.Inserted++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	log.Info().
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Bool("replace", replace).
		Msg("catalog import finished")
	return result, nil
}

// ImportCSVFile imports the file at path.
func (imp *Importer) ImportCSVFile(path string, replace bool) (ImportResult, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()
	return imp.ImportCSV(f, replace)
}

// headerIndex maps lowercased, trimmed header names to column positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseYear is lenient: anything non-numeric becomes NULL.
func parseYear(s string) interface{} {
	if s == "" {
		return nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return y
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
