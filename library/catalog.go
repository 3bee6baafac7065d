package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var dialect = goqu.Dialect("sqlite3")

const bookCols = `isbn, id, title, author, status, rack_column_row, year`

// CatalogService provides CRUD and filtered lookups over the book catalog.
type CatalogService struct {
	store *Store
}

func NewCatalogService(store *Store) *CatalogService {
	return &CatalogService{store: store}
}

// AddBook inserts a new catalog entry and assigns its surrogate display id.
// The book's status defaults to available when unset.
func (c *CatalogService) AddBook(b *Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if b.ISBN <= 0 {
		return fmt.Errorf("%w: ISBN must be a positive number", ErrValidation)
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !ValidStatus(b.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, b.Status)
	}

	return c.store.InTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO book (isbn, title, author, status, rack_column_row, year)
             VALUES (?,?,?,?,?,?)`,
			b.ISBN, b.Title, b.Author, b.Status, b.Shelf, b.Year)
		if err != nil {
			return mapConstraintErr(err)
		}
		if err := tx.Get(&b.ID, `SELECT COALESCE(MAX(id),0)+1 FROM book`); err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE book SET id=? WHERE isbn=?`, b.ID, b.ISBN)
		return err
	})
}

// GetBook resolves a book by its key, trying the ISBN first and the
// surrogate display id second, since callers do not always know which form
// they hold.
func (c *CatalogService) GetBook(key string) (*Book, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: book key is required", ErrValidation)
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, key)
	}

	var b Book
	err = c.store.db.Get(&b, `SELECT `+bookCols+` FROM book WHERE isbn=?`, n)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	err = c.store.db.Get(&b, `SELECT `+bookCols+` FROM book WHERE id=?`, n)
	if err == nil {
		return &b, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, key)
	}
	return nil, err
}

// UpdateBook overwrites the mutable attributes of the book with b's ISBN.
func (c *CatalogService) UpdateBook(b *Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !ValidStatus(b.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, b.Status)
	}
	res, err := c.store.db.Exec(
		`UPDATE book SET title=?, author=?, status=?, rack_column_row=?, year=? WHERE isbn=?`,
		b.Title, b.Author, b.Status, b.Shelf, b.Year, b.ISBN)
	if err != nil {
		return mapConstraintErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: book %d", ErrNotFound, b.ISBN)
	}
	return nil
}

// SetStatus flips a book's circulation state manually (reserved, lost, or
// back to available). The checkout/return cycle does not go through here.
func (c *CatalogService) SetStatus(key string, status BookStatus) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	b, err := c.GetBook(key)
	if err != nil {
		return err
	}
	_, err = c.store.db.Exec(`UPDATE book SET status=? WHERE isbn=?`, status, b.ISBN)
	return err
}

// RemoveBook deletes a catalog entry. Historical loan rows referencing the
// book are left in place.
func (c *CatalogService) RemoveBook(key string) error {
	b, err := c.GetBook(key)
	if err != nil {
		return err
	}
	_, err = c.store.db.Exec(`DELETE FROM book WHERE isbn=?`, b.ISBN)
	return err
}

// ListBooks returns the whole catalog in display order.
func (c *CatalogService) ListBooks() ([]Book, error) {
	var books []Book
	err := c.store.db.Select(&books, `SELECT `+bookCols+` FROM book ORDER BY id`)
	return books, err
}

// Search matches books whose title, author, or ISBN contains text as a
// substring; when text is all digits it additionally matches the
// publication year exactly. An empty result is not an error.
func (c *CatalogService) Search(text string) ([]Book, error) {
	like := "%" + strings.TrimSpace(text) + "%"
	conds := []exp.Expression{
		goqu.C("title").Like(like),
		goqu.C("author").Like(like),
		goqu.L("CAST(isbn AS TEXT)").Like(like),
	}
	if year, ok := parseAllDigits(strings.TrimSpace(text)); ok {
		conds = append(conds, goqu.C("year").Eq(year))
	}

	query, args, err := dialect.From("book").
		Select("isbn", "id", "title", "author", "status", "rack_column_row", "year").
		Where(goqu.Or(conds...)).
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	var books []Book
	if err := c.store.db.Select(&books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// FilterByStatus returns books with exactly the given circulation state.
func (c *CatalogService) FilterByStatus(status BookStatus) ([]Book, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	var books []Book
	err := c.store.db.Select(&books,
		`SELECT `+bookCols+` FROM book WHERE status=? ORDER BY id`, status)
	return books, err
}

// parseAllDigits parses s as an integer when it consists solely of digits.
func parseAllDigits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
