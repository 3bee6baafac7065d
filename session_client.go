package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rack-track/library"
)

func clientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client",
		Short: "Open a client session (search, checkout, return)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			sc := bufio.NewScanner(os.Stdin)
			id, err := login(a, sc, library.RoleClient)
			if err != nil || id == nil {
				return err
			}
			fmt.Printf("Welcome, %s.\n", id.Username)
			runClientSession(a, sc, id)
			return nil
		},
	}
}

func runClientSession(a *app, sc *bufio.Scanner, id *library.Identity) {
	fmt.Println("Commands: books, search, checkout, loans, return, password, exit")

	for {
		cmd, ok := promptLine(sc, "\nclient> ")
		if !ok {
			return
		}
		switch cmd {
		case "books":
			handleListBooks(a)
		case "search":
			handleSearch(a, sc)
		case "checkout":
			handleCheckout(a, sc, id)
		case "loans":
			handleMyLoans(a, id)
		case "return":
			handleClientReturn(a, sc, id)
		case "password":
			handleChangePassword(a, sc, id)
		case "exit":
			fmt.Println("Goodbye!")
			return
		case "":
			// ignore
		default:
			fmt.Println("Unknown command. Type one of the commands listed above.")
		}
	}
}

func handleCheckout(a *app, sc *bufio.Scanner, id *library.Identity) {
	key := prompt(sc, "Book (ISBN or id): ")
	loan, err := a.loans.Checkout(key, id.ID)
	if err != nil {
		reportErr(err)
		return
	}
	fmt.Printf("Checked out %q, due %s.\n", loan.BookTitle, loan.DueDate)
	// Show the refreshed loan list right after the action.
	handleMyLoans(a, id)
}

func handleMyLoans(a *app, id *library.Identity) {
	loans, err := a.loans.LoansForClient(id.ID)
	if err != nil {
		reportErr(err)
		return
	}
	printLoans(loans)
}

func handleClientReturn(a *app, sc *bufio.Scanner, id *library.Identity) {
	loanID, ok := promptInt64(sc, "Loan id: ")
	if !ok {
		return
	}
	if err := a.loans.Return(loanID, id.ID); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Loan returned.")
	handleMyLoans(a, id)
}

func handleChangePassword(a *app, sc *bufio.Scanner, id *library.Identity) {
	newPW, err := readPassword("New password: ")
	if err != nil {
		reportErr(err)
		return
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		reportErr(err)
		return
	}
	if err := a.directory.ChangePassword(id.ID, newPW, confirm); err != nil {
		reportErr(err)
		return
	}
	fmt.Println("Password changed.")
}
