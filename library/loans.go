package library

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const loanCols = `loan_id, client_id, client_username, book_pk, book_title,
    issued_at, due_date, returned_at, fine`

// LoanService enforces the checkout/return rules and keeps book status
// consistent with the loan ledger. Both writes of a checkout or return are
// applied in one transaction.
type LoanService struct {
	store *Store
	cfg   Config
	now   func() time.Time
}

func NewLoanService(store *Store, cfg Config) *LoanService {
	return &LoanService{store: store, cfg: cfg, now: time.Now}
}

// Checkout issues the book identified by bookKey (ISBN or surrogate id) to
// the given client. The book's status column is authoritative for the
// availability check; a client at the open-loan limit is rejected with a
// LimitError carrying the current count.
func (s *LoanService) Checkout(bookKey string, clientID int64) (*Loan, error) {
	bookKey = strings.TrimSpace(bookKey)
	if bookKey == "" {
		return nil, fmt.Errorf("%w: book key is required", ErrValidation)
	}

	var loan Loan
	err := s.store.InTx(func(tx *sqlx.Tx) error {
		book, err := getBookTx(tx, bookKey)
		if err != nil {
			return err
		}
		if book.Status == StatusCheckedOut {
			return fmt.Errorf("%w: %q is already checked out", ErrUnavailable, book.Title)
		}

		var open int
		err = tx.Get(&open,
			`SELECT COUNT(*) FROM loans WHERE client_id=? AND returned_at IS NULL`, clientID)
		if err != nil {
			return errors.Wrap(err, "count open loans")
		}
		if open >= s.cfg.MaxLoans {
			return &LimitError{Count: open, Max: s.cfg.MaxLoans}
		}

		var username string
		err = tx.Get(&username, `SELECT username FROM client WHERE client_id=?`, clientID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: client %d", ErrNotFound, clientID)
		}
		if err != nil {
			return errors.Wrap(err, "load client")
		}

		issued := s.now().UTC()
		due := issued.Add(time.Duration(s.cfg.LoanDays) * 24 * time.Hour)
		loan = Loan{
			ClientID:       sql.NullInt64{Int64: clientID, Valid: true},
			ClientUsername: username,
			BookKey:        bookKey,
			BookTitle:      book.Title,
			IssuedAt:       issued.Format(timeFormat),
			DueDate:        due.Format(timeFormat),
		}
		res, err := tx.Exec(
			`INSERT INTO loans (client_id, client_username, book_pk, book_title,
                issued_at, due_date, returned_at, fine)
             VALUES (?,?,?,?,?,?,NULL,0)`,
			loan.ClientID, loan.ClientUsername, loan.BookKey, loan.BookTitle,
			loan.IssuedAt, loan.DueDate)
		if err != nil {
			return errors.Wrap(err, "insert loan")
		}
		if loan.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE book SET status=? WHERE isbn=?`, StatusCheckedOut, book.ISBN)
		return errors.Wrap(err, "mark book checked out")
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("loan_id", loan.ID).
		Int64("client_id", clientID).
		Str("book", loan.BookTitle).
		Str("due", loan.DueDate).
		Msg("book checked out")
	return &loan, nil
}

// Return closes a loan on behalf of the client holding it. A loan held by a
// different client is rejected with ErrAccessDenied.
func (s *LoanService) Return(loanID, clientID int64) error {
	return s.doReturn(loanID, &clientID)
}

// ReturnAny closes a loan without an ownership check, for admin use.
func (s *LoanService) ReturnAny(loanID int64) error {
	return s.doReturn(loanID, nil)
}

func (s *LoanService) doReturn(loanID int64, clientID *int64) error {
	err := s.store.InTx(func(tx *sqlx.Tx) error {
		var loan Loan
		err := tx.Get(&loan, `SELECT `+loanCols+` FROM loans WHERE loan_id=?`, loanID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
		}
		if err != nil {
			return errors.Wrap(err, "load loan")
		}
		if !loan.Open() {
			return fmt.Errorf("%w: loan %d is already returned", ErrValidation, loanID)
		}
		if clientID != nil && loan.ClientID.Valid && loan.ClientID.Int64 != *clientID {
			return fmt.Errorf("%w: loan %d belongs to another client", ErrAccessDenied, loanID)
		}

		returned := s.now().UTC().Format(timeFormat)
		if _, err := tx.Exec(
			`UPDATE loans SET returned_at=? WHERE loan_id=?`, returned, loanID); err != nil {
			return errors.Wrap(err, "close loan")
		}

		// The loan may reference a book that was since removed from the
		// catalog; the return still succeeds, there is just no status to flip.
		book, err := getBookTx(tx, loan.BookKey)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE book SET status=? WHERE isbn=?`, StatusAvailable, book.ISBN)
		return errors.Wrap(err, "mark book available")
	})
	if err != nil {
		return err
	}

	log.Info().Int64("loan_id", loanID).Msg("loan returned")
	return nil
}

// RecomputeFines writes the accrued fine onto every open loan whose due
// date lies before now: one FinePerDay unit per whole day overdue. It
// returns the number of loans updated. Reads stay side-effect free; callers
// that want fresh totals invoke this first.
func (s *LoanService) RecomputeFines(now time.Time) (int64, error) {
	now = now.UTC()
	var updated int64
	err := s.store.InTx(func(tx *sqlx.Tx) error {
		var overdue []Loan
		err := tx.Select(&overdue,
			`SELECT `+loanCols+` FROM loans WHERE returned_at IS NULL AND due_date < ?`,
			now.Format(timeFormat))
		if err != nil {
			return errors.Wrap(err, "load overdue loans")
		}
		for i := range overdue {
			due, err := overdue[i].Due()
			if err != nil {
				return errors.Wrapf(err, "loan %d has a malformed due date", overdue[i].ID)
			}
			fine := int64(now.Sub(due).Hours()/24) * s.cfg.FinePerDay
			if _, err := tx.Exec(
				`UPDATE loans SET fine=? WHERE loan_id=?`, fine, overdue[i].ID); err != nil {
				return errors.Wrap(err, "write fine")
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// OverdueSummary aggregates open loans per (client id, username) pair:
// issued count, overdue count, and the fine total as last recomputed.
func (s *LoanService) OverdueSummary(now time.Time) ([]LoanSummary, error) {
	nowStr := now.UTC().Format(timeFormat)
	query, args, err := dialect.From("loans").
		Select(
			goqu.C("client_id"),
			goqu.C("client_username"),
			goqu.COUNT(goqu.Star()).As("issued"),
			goqu.L("SUM(CASE WHEN due_date < ? THEN 1 ELSE 0 END)", nowStr).As("overdue"),
			goqu.COALESCE(goqu.SUM(goqu.C("fine")), 0).As("total_fine"),
		).
		Where(goqu.C("returned_at").IsNull()).
		GroupBy(goqu.C("client_id"), goqu.C("client_username")).
		Order(goqu.C("client_username").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build summary query: %w", err)
	}

	var rows []LoanSummary
	if err := s.store.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoansForClient returns every loan a client has held, newest last.
func (s *LoanService) LoansForClient(clientID int64) ([]Loan, error) {
	var loans []Loan
	err := s.store.db.Select(&loans,
		`SELECT `+loanCols+` FROM loans WHERE client_id=? ORDER BY loan_id`, clientID)
	return loans, err
}

// ListLoans returns the whole ledger.
func (s *LoanService) ListLoans() ([]Loan, error) {
	var loans []Loan
	err := s.store.db.Select(&loans, `SELECT `+loanCols+` FROM loans ORDER BY loan_id`)
	return loans, err
}

// OpenLoanCount reports how many loans a book currently has open. Used by
// tests and consistency checks of the ledger/status invariant.
func (s *LoanService) OpenLoanCount(bookKey string) (int, error) {
	var n int
	err := s.store.db.Get(&n,
		`SELECT COUNT(*) FROM loans WHERE book_pk=? AND returned_at IS NULL`,
		strings.TrimSpace(bookKey))
	return n, err
}

// getBookTx resolves a book by ISBN or surrogate id inside a transaction.
func getBookTx(tx *sqlx.Tx, key string) (*Book, error) {
	n, ok := parseAllDigits(key)
	if !ok {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, key)
	}
	var b Book
	err := tx.Get(&b, `SELECT `+bookCols+` FROM book WHERE isbn=?`, n)
	if err == nil {
		return &b, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	err = tx.Get(&b, `SELECT `+bookCols+` FROM book WHERE id=?`, n)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
