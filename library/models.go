package library

import "time"

// Loan statuses. A loan starts as borrowed; returned and lost are terminal.
const (
	LoanBorrowed = "borrowed"
	LoanReturned = "returned"
	LoanOverdue  = "overdue"
	LoanLost     = "lost"
)

// Member statuses. Only active members may create new loans.
const (
	MemberActive    = "active"
	MemberSuspended = "suspended"
	MemberExpired   = "expired"
)

// Notification types.
const (
	NotifDueReminder        = "due_reminder"
	NotifOverdue            = "overdue"
	NotifNewBook            = "new_book"
	NotifReturnConfirmation = "return_confirmation"
	NotifFineNotice         = "fine_notice"
)

// Book represents a catalog entry together with its stock counters.
// AvailableStock is mutated only by the inventory ledger operations in
// inventory.go; TotalBorrowed is a monotonic counter incremented once per
// created loan.
type Book struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          string    `db:"author" json:"author"`
	Publisher       string    `db:"publisher" json:"publisher,omitempty"`
	PublicationYear int       `db:"publication_year" json:"publication_year,omitempty"`
	ISBN            string    `db:"isbn" json:"isbn,omitempty"`
	Category        string    `db:"category" json:"category,omitempty"`
	Description     string    `db:"description" json:"description,omitempty"`
	CoverURL        string    `db:"cover_url" json:"cover_url,omitempty"`
	TotalStock      int       `db:"total_stock" json:"total_stock"`
	AvailableStock  int       `db:"available_stock" json:"available_stock"`
	TotalBorrowed   int       `db:"total_borrowed" json:"total_borrowed"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Member represents a registered library member. MemberNumber is assigned
// sequentially (MB001, MB002, ...) at creation and is unique.
type Member struct {
	ID           int64     `db:"id" json:"id"`
	MemberNumber string    `db:"member_number" json:"member_number"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email,omitempty"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	Address      string    `db:"address" json:"address,omitempty"`
	MemberType   string    `db:"member_type" json:"member_type"`
	Status       string    `db:"status" json:"status"`
	JoinDate     time.Time `db:"join_date" json:"join_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	DueReminders        bool `db:"pref_due_reminders" json:"due_reminders"`
	NewBookAlerts       bool `db:"pref_new_book_alerts" json:"new_book_alerts"`
	ReturnConfirmations bool `db:"pref_return_confirmations" json:"return_confirmations"`
}

// Prefs returns the member's notification preference flags.
func (m *Member) Prefs() NotificationPrefs {
	return NotificationPrefs{
		DueReminders:        m.DueReminders,
		NewBookAlerts:       m.NewBookAlerts,
		ReturnConfirmations: m.ReturnConfirmations,
	}
}

// Loan links a book to a member for a period of time. BookID and MemberID
// are immutable after creation; only Status and ReturnDate change.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     string     `db:"status" json:"status"`
}

// Active reports whether the loan still accounts for a copy out of stock.
func (l *Loan) Active() bool {
	return l.Status == LoanBorrowed || l.Status == LoanOverdue
}

// Notification is a member-facing message enqueued by the trigger layer.
// IsRead is the only field the consuming UI may flip after creation.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	MemberID  int64     `db:"member_id" json:"member_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
