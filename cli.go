package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-circulation/api"
	"library-circulation/library"
)

var flags struct {
	db       string
	loanDays int
	verbose  bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "circulation",
		Short:         "Library circulation service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.db, "db", "circulation.db", "path to the SQLite database")
	root.PersistentFlags().IntVar(&flags.loanDays, "loan-days", 14, "loan period in days")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newServeCmd(),
		newSweepCmd(),
		newStatsCmd(),
		newLoanCmd(),
		newReturnCmd(),
		newLostCmd(),
		newAddBookCmd(),
		newAddMemberCmd(),
		newListBooksCmd(),
		newListMembersCmd(),
		newNotificationsCmd(),
	)
	return root
}

func buildLogger() (*zap.Logger, error) {
	if flags.verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openManager(log *zap.Logger) (*library.Manager, error) {
	return library.NewManager(library.Config{
		DBPath:     flags.db,
		LoanPeriod: time.Duration(flags.loanDays) * 24 * time.Hour,
	}, log)
}

// withManager handles the open/close boilerplate shared by every command.
func withManager(fn func(m *library.Manager, log *zap.Logger) error) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := openManager(log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer m.Close()

	return fn(m, log)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s ID %q", what, arg)
	}
	return id, nil
}

func newServeCmd() *cobra.Command {
	var (
		addr       string
		env        string
		sweepEvery time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server with a background overdue scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				done := make(chan struct{})
				go func() {
					defer close(done)
					m.RunScanner(ctx, sweepEvery)
				}()

				srv := api.New(api.Config{Addr: addr, Env: env}, log, m)
				err := srv.Serve(ctx)
				<-done
				return err
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":4000", "listen address")
	cmd.Flags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	cmd.Flags().DurationVar(&sweepEvery, "sweep-every", time.Hour, "overdue sweep interval")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Move overdue loans into the overdue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				if every > 0 {
					ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()
					m.RunScanner(ctx, every)
					return nil
				}
				moved, err := m.Sweep(time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("%d loan(s) moved to overdue\n", moved)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "run continuously at this interval (0 = once)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				stats, err := m.Stats()
				if err != nil {
					return err
				}
				fmt.Printf("Books:         %d\n", stats.TotalBooks)
				fmt.Printf("Members:       %d\n", stats.TotalMembers)
				fmt.Printf("Active loans:  %d\n", stats.ActiveLoans)
				fmt.Printf("Overdue loans: %d\n", stats.OverdueLoans)

				popular, err := m.PopularBooks(5)
				if err != nil {
					return err
				}
				if len(popular) > 0 {
					fmt.Println("\nMost borrowed:")
					for i, b := range popular {
						fmt.Printf("  %d. %s by %s (%d loans)\n", i+1, b.Title, b.Author, b.TotalBorrowed)
					}
				}
				return nil
			})
		},
	}
}

func newLoanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loan <book-id> <member-id>",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			memberID, err := parseID(args[1], "member")
			if err != nil {
				return err
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				loan, err := m.CreateLoan(bookID, memberID)
				if err != nil {
					return err
				}
				fmt.Printf("Loan %d created, due %s\n", loan.ID, loan.DueDate.Format("02 Jan 2006"))
				return nil
			})
		},
	}
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Record the return of a borrowed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				loan, err := m.ReturnLoan(loanID)
				if err != nil {
					return err
				}
				fmt.Printf("Loan %d returned (book %d)\n", loan.ID, loan.BookID)
				return nil
			})
		},
	}
}

func newLostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lost <loan-id>",
		Short: "Mark a borrowed copy as lost and shrink the book's stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				loan, err := m.MarkLost(loanID)
				if err != nil {
					return err
				}
				fmt.Printf("Loan %d marked lost (book %d)\n", loan.ID, loan.BookID)
				return nil
			})
		},
	}
}

func newAddBookCmd() *cobra.Command {
	var (
		title, author, publisher, isbn, category string
		year, stock                              int
	)
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" || author == "" {
				return fmt.Errorf("--title and --author are required")
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				book := &library.Book{
					Title:           title,
					Author:          author,
					Publisher:       publisher,
					PublicationYear: year,
					ISBN:            isbn,
					Category:        category,
					TotalStock:      stock,
				}
				if err := m.AddBook(book); err != nil {
					return err
				}
				fmt.Printf("Book %d added: %s by %s (%d copies)\n", book.ID, book.Title, book.Author, book.TotalStock)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")
	cmd.Flags().StringVar(&publisher, "publisher", "", "publisher")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().IntVar(&year, "year", 0, "publication year")
	cmd.Flags().IntVar(&stock, "stock", 1, "number of copies")
	return cmd
}

func newAddMemberCmd() *cobra.Command {
	var name, email, phone, address, memberType string
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Register a new member",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				member := &library.Member{
					FullName:            name,
					Email:               email,
					Phone:               phone,
					Address:             address,
					MemberType:          memberType,
					DueReminders:        true,
					NewBookAlerts:       true,
					ReturnConfirmations: true,
				}
				if err := m.AddMember(member); err != nil {
					return err
				}
				fmt.Printf("Member %s registered: %s (ID %d)\n", member.MemberNumber, member.FullName, member.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&memberType, "type", "regular", "member type")
	return cmd
}

func newListBooksCmd() *cobra.Command {
	var sort string
	cmd := &cobra.Command{
		Use:   "list-books",
		Short: "List the catalog with stock levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				books, err := m.ListBooks(sort)
				if err != nil {
					return err
				}
				fmt.Printf("%-5s %-35s %-25s %9s %9s %9s\n", "ID", "TITLE", "AUTHOR", "TOTAL", "AVAIL", "BORROWED")
				for _, b := range books {
					fmt.Printf("%-5d %-35s %-25s %9d %9d %9d\n",
						b.ID, b.Title, b.Author, b.TotalStock, b.AvailableStock, b.TotalBorrowed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "id", "sort spec (id|title|author|-created_at|-total_borrowed)")
	return cmd
}

func newListMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-members",
		Short: "List registered members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				members, err := m.ListMembers()
				if err != nil {
					return err
				}
				fmt.Printf("%-5s %-8s %-30s %-10s\n", "ID", "NUMBER", "NAME", "STATUS")
				for _, mem := range members {
					fmt.Printf("%-5d %-8s %-30s %-10s\n", mem.ID, mem.MemberNumber, mem.FullName, mem.Status)
				}
				return nil
			})
		},
	}
}

func newNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <member-id>",
		Short: "Show a member's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID(args[0], "member")
			if err != nil {
				return err
			}
			return withManager(func(m *library.Manager, log *zap.Logger) error {
				notifs, err := m.Notifications(memberID)
				if err != nil {
					return err
				}
				if len(notifs) == 0 {
					fmt.Println("No notifications.")
					return nil
				}
				for _, n := range notifs {
					read := " "
					if !n.IsRead {
						read = "*"
					}
					fmt.Printf("%s [%s] %s: %s (%s)\n",
						read, n.Type, n.Title, n.Message, n.CreatedAt.Format("02 Jan 2006 15:04"))
				}
				return nil
			})
		},
	}
}
