package library

import (
	"database/sql"
	"time"
)

// BookStatus is the circulation state of a book. "checked out" is owned by
// the loan cycle; "reserved" and "lost" are set manually by an admin.
type BookStatus string

const (
	StatusAvailable  BookStatus = "available"
	StatusCheckedOut BookStatus = "checked out"
	StatusReserved   BookStatus = "reserved"
	StatusLost       BookStatus = "lost"
)

// ValidStatus reports whether s is one of the known circulation states.
func ValidStatus(s BookStatus) bool {
	switch s {
	case StatusAvailable, StatusCheckedOut, StatusReserved, StatusLost:
		return true
	}
	return false
}

// Book is a catalog entry. ISBN is the primary key; ID is a surrogate
// numeric identifier kept for display ordering and as a fallback lookup key.
type Book struct {
	ISBN   int64         `db:"isbn"`
	ID     int64         `db:"id"`
	Title  string        `db:"title"`
	Author string        `db:"author"`
	Status BookStatus    `db:"status"`
	Shelf  string        `db:"rack_column_row"`
	Year   sql.NullInt64 `db:"year"`
}

// Client is a library patron.
type Client struct {
	ID       int64  `db:"client_id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Email    string `db:"email"`
}

// Admin is a librarian account. Same shape as Client, separate table,
// no loan relationship.
type Admin struct {
	ID       int64  `db:"admin_id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Email    string `db:"email"`
}

// timeFormat is the on-disk timestamp layout for loan rows.
const timeFormat = time.RFC3339

// Loan links a client to a book copy. BookKey holds whatever identifier the
// checkout was made with (ISBN or surrogate id) as opaque text, and
// BookTitle is snapshotted at issue time so history survives book edits and
// deletion. Timestamps are ISO-8601 text.
type Loan struct {
	ID             int64          `db:"loan_id"`
	ClientID       sql.NullInt64  `db:"client_id"`
	ClientUsername string         `db:"client_username"`
	BookKey        string         `db:"book_pk"`
	BookTitle      string         `db:"book_title"`
	IssuedAt       string         `db:"issued_at"`
	DueDate        string         `db:"due_date"`
	ReturnedAt     sql.NullString `db:"returned_at"`
	Fine           int64          `db:"fine"`
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool { return !l.ReturnedAt.Valid }

// Due parses the loan's due date.
func (l *Loan) Due() (time.Time, error) { return time.Parse(timeFormat, l.DueDate) }

// Issued parses the loan's issue timestamp.
func (l *Loan) Issued() (time.Time, error) { return time.Parse(timeFormat, l.IssuedAt) }

// LoanSummary is one row of the per-client overdue report. Grouping is by
// the (client id, username) pair so rows with an unknown client id still
// aggregate correctly by username.
type LoanSummary struct {
	ClientID  sql.NullInt64 `db:"client_id"`
	Username  string        `db:"client_username"`
	Issued    int64         `db:"issued"`
	Overdue   int64         `db:"overdue"`
	TotalFine int64         `db:"total_fine"`
}
