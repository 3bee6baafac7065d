package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rack-track/library"
)

func adminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Open an admin session (catalog, clients, loan summary)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			sc := bufio.NewScanner(os.Stdin)
			id, err := login(a, sc, library.RoleAdmin)
			if err != nil || id == nil {
				return err
			}
			fmt.Printf("Welcome, %s.\n", id.Username)
			runAdminSession(a, sc)
			return nil
		},
	}
}

func runAdminSession(a *app, sc *bufio.Scanner) {
	fmt.Println("Commands:")
	fmt.Println("  Books:   books, search, filter, add book, edit book, remove book, status")
	fmt.Println("  Clients: clients, add client, edit client, remove client")
	fmt.Println("  Loans:   loans, summary, return")
	fmt.Println("  System:  import, exit")

	for {
		cmd, ok := promptLine(sc, "\nadmin> ")
		if !ok {
			return
		}
		switch cmd {
		case "books":
			handleListBooks(a)
		case "search":
			handleSearch(a, sc)
		case "filter":
			handleFilter(a, sc)
		case "add book":
			handleAddBook(a, sc)
		case "edit book":
			handleEditBook(a, sc)
		case "remove book":
			handleRemoveBook(a, sc)
		case "status":
			handleSetStatus(a, sc)
		case "clients":
			handleListClients(a)
		case "add client":
			handleAddClient(a, sc)
		case "edit client":
			handleEditClient(a, sc)
		case "remove client":
			handleRemoveClient(a, sc)
		case "loans":
			handleListLoans(a)
		case "summary":
			handleSummary(a)
		case "return":
			handleAdminReturn(a, sc)
		case "import":
			handleImport(a, sc)
		case "exit":
			fmt.Println("Goodbye!")
			return
		case "":
			// blank line, re-prompt
		default:
			fmt.Println("Unknown command. Type one of the commands listed above.")
		}
	}
}

func handleListBooks(a *app) {
	books, err := a.catalog.ListBooks()
	if err != nil {
		reportErr(err)
		return
	}
	printBooks(books)
}

func handleSearch(a *app, sc *bufio.Scanner) {
	text := prompt(sc, "Search text: ")
	books, err := a.catalog.Search(text)
	if err != nil {
		reportErr(err)
		return
	}
	printBooks(books)
}

func handleFilter(a *app, sc *bufio.Scanner) {
	status := prompt(sc, "Status (available/checked out/reserved/lost): ")
	books, err := a.catalog.FilterByStatus(library.BookStatus(status))
	if err != nil {
		reportErr(err)
		return
	}
	printBooks(books)
}

func handleAddBook(a *app, sc *bufio.Scanner) {
	isbn, ok := promptInt64(sc, "ISBN: ")
	if !ok {
		return
	}
	b := library.Book{
		ISBN:   isbn,
		Title:  prompt(sc, "Title: "),
		Author: prompt(sc, "Author: "),
		Shelf:  prompt(sc, "Shelf (rack/column/row): "),
	}
	if y := prompt(sc, "Year (optional): "); y != "" {
		n, err := strconv.ParseInt(y, 10, 64)
		if err != nil {
			fmt.Printf("Not a number: %q\n", y)
			return
		}
		b.Year = sql.NullInt64{Int64: n, Valid: true}
	}
	if err := a.catalog.AddBook(&b); err != nil {
		reportErr(err)
		return
	}
	fmt.Printf("Added book %q (display id %d).\n", b.Title, b.ID)
}

func handleEditBook(a *app, sc *bufio.Scanner) {
	key := prompt(sc, "Book (ISBN or id): ")
	b, err := a.catalog.GetBook(key)
	if err != nil {
		reportErr(err)
		return
	}

	// Blank input keeps the current value.
	if v := prompt(sc, fmt.Sprintf("Title [%s]: ", b.Title)); v != "" {
		b.Title = v
	}
	if v := prompt(sc, fmt.Sprintf("Author [%s]: ", b.Author)); v != "" {
		b.Author = v
	}
	if v := prompt(sc, fmt.Sprintf("Shelf [%s]: ", b.Shelf)); v != "" {
		b.Shelf = v
	}
	if v := prompt(sc, fmt.Sprintf("Year [%s]: ", yearString(b))); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fmt.Printf("Not a number: %q\n", v)
			return
		}
		b.Year = sql.NullInt64{Int64: n, Valid: true}
	}
	if err := a.catalog.UpdateBook(b); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Book updated.")
}

func handleRemoveBook(a *app, sc *bufio.Scanner) {
	key := prompt(sc, "Book (ISBN or id): ")
	if err := a.catalog.RemoveBook(key); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Book removed. Historical loans keep their title snapshot.")
}

func handleSetStatus(a *app, sc *bufio.Scanner) {
	key := prompt(sc, "Book (ISBN or id): ")
	status := prompt(sc, "New status (available/reserved/lost): ")
	if err := a.catalog.SetStatus(key, library.BookStatus(status)); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Status updated.")
}

func handleListClients(a *app) {
	clients, err := a.directory.ListClients()
	if err != nil {
		reportErr(err)
		return
	}
	printClients(clients)
}

func handleAddClient(a *app, sc *bufio.Scanner) {
	username := prompt(sc, "Username: ")
	password, err := readPassword("Password: ")
	if err != nil {
		reportErr(err)
		return
	}
	email := prompt(sc, "Email: ")
	c, err := a.directory.AddClient(username, password, email)
	if err != nil {
		reportErr(err)
		return
	}
	fmt.Printf("Added client %q (id %d).\n", c.Username, c.ID)
}

func handleEditClient(a *app, sc *bufio.Scanner) {
	id, ok := promptInt64(sc, "Client id: ")
	if !ok {
		return
	}
	c, err := a.directory.GetClient(id)
	if err != nil {
		reportErr(err)
		return
	}
	username := prompt(sc, fmt.Sprintf("Username [%s]: ", c.Username))
	if username == "" {
		username = c.Username
	}
	email := prompt(sc, fmt.Sprintf("Email [%s]: ", c.Email))
	if email == "" {
		email = c.Email
	}
	password, err := readPassword("Password (blank keeps current): ")
	if err != nil {
		reportErr(err)
		return
	}
	if err := a.directory.EditClient(id, username, password, email); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Client updated.")
}

func handleRemoveClient(a *app, sc *bufio.Scanner) {
	id, ok := promptInt64(sc, "Client id: ")
	if !ok {
		return
	}
	if err := a.directory.RemoveClient(id); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Client removed.")
}

func handleListLoans(a *app) {
	loans, err := a.loans.ListLoans()
	if err != nil {
		reportErr(err)
		return
	}
	printLoans(loans)
}

// handleSummary refreshes fines explicitly before reading the report, so
// the read itself stays side-effect free.
func handleSummary(a *app) {
	now := time.Now()
	if _, err := a.loans.RecomputeFines(now); err != nil {
		reportErr(err)
		return
	}
	rows, err := a.loans.OverdueSummary(now)
	if err != nil {
		reportErr(err)
		return
	}
	printSummary(rows)
}

func handleAdminReturn(a *app, sc *bufio.Scanner) {
	id, ok := promptInt64(sc, "Loan id: ")
	if !ok {
		return
	}
	if err := a.loans.ReturnAny(id); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Loan returned.")
}

func handleImport(a *app, sc *bufio.Scanner) {
	path := prompt(sc, "CSV file path: ")
	replace := prompt(sc, "Replace existing books? (y/N): ") == "y"
	result, err := a.importer.ImportCSVFile(path, replace)
	if err != nil {
		reportErr(err)
		return
	}
	fmt.Printf("Imported %d books (%d duplicates skipped).\n", result.Inserted, result.Skipped)
}
