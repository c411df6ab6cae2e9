// Command seed wipes the development database and loads it with a sample
// catalog, a handful of members and a few loans so that dashboards and
// notification views have something to show.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"library-circulation/library"
)

const dbFile = "circulation.db"

type seedBook struct {
	title, author, category string
	year, stock             int
}

var books = []seedBook{
	{"1984", "George Orwell", "Fiction", 1949, 3},
	{"Animal Farm", "George Orwell", "Fiction", 1945, 2},
	{"The Art of War", "Sun Tzu", "Philosophy", 0, 1},
	{"The Fellowship of the Ring", "J.R.R. Tolkien", "Fantasy", 1954, 4},
	{"The Two Towers", "J.R.R. Tolkien", "Fantasy", 1954, 4},
	{"The Return of the King", "J.R.R. Tolkien", "Fantasy", 1955, 4},
	{"Romeo and Juliet", "William Shakespeare", "Drama", 1597, 2},
	{"The Three Musketeers", "Alexandre Dumas", "Adventure", 1844, 2},
	{"The Diary of a Young Girl", "Anne Frank", "Biography", 1947, 1},
}

var members = []library.Member{
	{FullName: "Alice Johnson", Email: "alice@example.com", DueReminders: true, NewBookAlerts: true, ReturnConfirmations: true},
	{FullName: "Bob Martin", Email: "bob@example.com", DueReminders: true, NewBookAlerts: false, ReturnConfirmations: true},
	{FullName: "Charlie Nguyen", Email: "charlie@example.com", DueReminders: false, NewBookAlerts: true, ReturnConfirmations: false},
}

func main() {
	// Start from a clean slate.
	for _, f := range []string{dbFile, dbFile + "-shm", dbFile + "-wal"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not remove %s: %v\n", f, err)
		}
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	mgr, err := library.NewManager(library.Config{DBPath: dbFile}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// Members first so new-book alerts have recipients.
	memberIDs := make([]int64, 0, len(members))
	for i := range members {
		m := members[i]
		if err := mgr.AddMember(&m); err != nil {
			fmt.Fprintf(os.Stderr, "add member %s: %v\n", m.FullName, err)
			os.Exit(1)
		}
		memberIDs = append(memberIDs, m.ID)
		fmt.Printf("member %s: %s\n", m.MemberNumber, m.FullName)
	}

	bookIDs := make([]int64, 0, len(books))
	for _, sb := range books {
		b := &library.Book{
			Title:           sb.title,
			Author:          sb.author,
			Category:        sb.category,
			PublicationYear: sb.year,
			TotalStock:      sb.stock,
		}
		if err := mgr.AddBook(b); err != nil {
			fmt.Fprintf(os.Stderr, "add book %s: %v\n", sb.title, err)
			os.Exit(1)
		}
		bookIDs = append(bookIDs, b.ID)
		fmt.Printf("book %d: %s (%d copies)\n", b.ID, b.Title, b.TotalStock)
	}

	// A few active loans to light up the dashboard.
	loans := [][2]int{{0, 0}, {3, 1}, {6, 2}}
	for _, pair := range loans {
		loan, err := mgr.CreateLoan(bookIDs[pair[0]], memberIDs[pair[1]])
		if err != nil {
			fmt.Fprintf(os.Stderr, "create loan: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("loan %d: book %d -> member %d, due %s\n",
			loan.ID, loan.BookID, loan.MemberID, loan.DueDate.Format("02 Jan 2006"))
	}

	fmt.Println("seed complete")
}
