package library

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetBook(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	b := &Book{
		ISBN:   9780486280615,
		Title:  "Great Expectations",
		Author: "Charles Dickens",
		Shelf:  "A/2/5",
		Year:   sql.NullInt64{Int64: 1861, Valid: true},
	}
	require.NoError(t, cat.AddBook(b))
	require.NotZero(t, b.ID)

	// Lookup by ISBN.
	got, err := cat.GetBook("9780486280615")
	require.NoError(t, err)
	assert.Equal(t, "Great Expectations", got.Title)
	assert.Equal(t, StatusAvailable, got.Status)

	// Lookup by surrogate display id.
	got, err = cat.GetBook(strconv.FormatInt(b.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, b.ISBN, got.ISBN)

	_, err = cat.GetBook("999999")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cat.GetBook("not-a-number")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddBookValidation(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	err := cat.AddBook(&Book{ISBN: 1, Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	err = cat.AddBook(&Book{ISBN: 0, Title: "No ISBN"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, cat.AddBook(&Book{ISBN: 7, Title: "First"}))
	err = cat.AddBook(&Book{ISBN: 7, Title: "Second"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSurrogateIDsAreSequential(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	for i, isbn := range []int64{3000, 1000, 2000} {
		b := &Book{ISBN: isbn, Title: "Book"}
		require.NoError(t, cat.AddBook(b))
		assert.Equal(t, int64(i+1), b.ID)
	}

	books, err := cat.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 3)
	// Display order follows insertion, not ISBN.
	assert.Equal(t, int64(3000), books[0].ISBN)
	assert.Equal(t, int64(2000), books[2].ISBN)
}

func TestSearch(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	require.NoError(t, cat.AddBook(&Book{
		ISBN: 9780451524935, Title: "1984", Author: "George Orwell",
		Year: sql.NullInt64{Int64: 1949, Valid: true},
	}))
	require.NoError(t, cat.AddBook(&Book{
		ISBN: 9780141439518, Title: "Pride and Prejudice", Author: "Jane Austen",
		Year: sql.NullInt64{Int64: 1813, Valid: true},
	}))

	// Title substring.
	books, err := cat.Search("Prejudice")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Jane Austen", books[0].Author)

	// Author substring.
	books, err = cat.Search("Orwell")
	require.NoError(t, err)
	require.Len(t, books, 1)

	// ISBN substring.
	books, err = cat.Search("524935")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "1984", books[0].Title)

	// All-digit text also matches the publication year exactly.
	books, err = cat.Search("1813")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Pride and Prejudice", books[0].Title)

	// "1984" matches the title substring; year 1984 matches nothing extra.
	books, err = cat.Search("1984")
	require.NoError(t, err)
	require.Len(t, books, 1)

	// No match is an empty set, not an error.
	books, err = cat.Search("zzz-nothing")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestFilterByStatus(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	require.NoError(t, cat.AddBook(&Book{ISBN: 1, Title: "A"}))
	require.NoError(t, cat.AddBook(&Book{ISBN: 2, Title: "B"}))
	require.NoError(t, cat.SetStatus("2", StatusLost))

	available, err := cat.FilterByStatus(StatusAvailable)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, int64(1), available[0].ISBN)

	lost, err := cat.FilterByStatus(StatusLost)
	require.NoError(t, err)
	require.Len(t, lost, 1)

	_, err = cat.FilterByStatus("misplaced")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAndRemoveBook(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)

	b := &Book{ISBN: 5, Title: "Old Title", Author: "Anon"}
	require.NoError(t, cat.AddBook(b))

	b.Title = "New Title"
	b.Shelf = "B/1/1"
	require.NoError(t, cat.UpdateBook(b))

	got, err := cat.GetBook("5")
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "B/1/1", got.Shelf)

	require.NoError(t, cat.RemoveBook("5"))
	_, err = cat.GetBook("5")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, cat.RemoveBook("5"), ErrNotFound)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	s := testStore(t)
	cat := NewCatalogService(s)
	require.NoError(t, cat.AddBook(&Book{ISBN: 9, Title: "X"}))

	assert.ErrorIs(t, cat.SetStatus("9", "on fire"), ErrValidation)
	require.NoError(t, cat.SetStatus("9", StatusReserved))

	got, err := cat.GetBook("9")
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, got.Status)
}
