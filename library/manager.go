package library

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultLoanPeriod is how long a member may keep a borrowed copy unless
// configured otherwise.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Config holds the tunables of the circulation service.
type Config struct {
	DBPath     string
	LoanPeriod time.Duration
}

// Manager is the circulation facade over the Store: loan lifecycle,
// inventory adjustments, sweeps, notifications and the dashboard views.
type Manager struct {
	store *Store
	cfg   Config
	log   *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewManager opens (or creates) the SQLite database at cfg.DBPath.
func NewManager(cfg Config, log *zap.Logger) (*Manager, error) {
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = DefaultLoanPeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, cfg: cfg, log: log, now: time.Now}, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error { return m.store.Close() }

// ------------------ Loan lifecycle ------------------

// CreateLoan lends one copy of the book to the member. The due date is the
// loan date plus the configured loan period. On success a due-reminder
// notification is enqueued, subject to the member's preferences.
func (m *Manager) CreateLoan(bookID, memberID int64) (*Loan, error) {
	now := m.now()
	loan, err := m.store.createLoan(bookID, memberID, now, now.Add(m.cfg.LoanPeriod))
	if err != nil {
		return nil, err
	}
	m.log.Info("loan created",
		zap.Int64("loan_id", loan.ID), zap.Int64("book_id", bookID), zap.Int64("member_id", memberID),
		zap.Time("due_date", loan.DueDate))
	m.notifyLoan(EventLoanCreated, loan)
	return loan, nil
}

// ReturnLoan completes an active loan and puts its copy back into stock,
// then confirms the return to the member.
func (m *Manager) ReturnLoan(loanID int64) (*Loan, error) {
	loan, err := m.store.returnLoan(loanID, m.now())
	if err != nil {
		return nil, err
	}
	m.log.Info("loan returned", zap.Int64("loan_id", loan.ID), zap.Int64("book_id", loan.BookID))
	m.notifyLoan(EventLoanReturned, loan)
	return loan, nil
}

// MarkLost records that the borrowed copy will not come back. The copy is
// removed from circulating stock permanently and a fine notice is enqueued.
func (m *Manager) MarkLost(loanID int64) (*Loan, error) {
	loan, err := m.store.markLoanLost(loanID)
	if err != nil {
		return nil, err
	}
	m.log.Info("loan marked lost", zap.Int64("loan_id", loan.ID), zap.Int64("book_id", loan.BookID))
	m.notifyLoan(EventLoanLost, loan)
	return loan, nil
}

// ------------------ Catalog ------------------

// AddBook creates a catalog entry. A fresh entry has every copy available,
// so AvailableStock is forced to TotalStock. Active members with new-book
// alerts enabled get notified.
func (m *Manager) AddBook(b *Book) error {
	if b.TotalStock < 0 {
		return fmt.Errorf("book %q: total stock %d: %w", b.Title, b.TotalStock, ErrInvalidStock)
	}
	b.AvailableStock = b.TotalStock
	b.TotalBorrowed = 0
	b.CreatedAt = m.now().UTC()
	if err := m.store.CreateBook(b); err != nil {
		return err
	}
	m.log.Info("book added", zap.Int64("book_id", b.ID), zap.String("title", b.Title))
	m.notifyBookAdded(b)
	return nil
}

// SetTotalStock is the administrative stock adjustment for catalog edits.
func (m *Manager) SetTotalStock(bookID int64, newTotal int) error {
	return m.store.SetTotalStock(bookID, newTotal)
}

func (m *Manager) GetBook(id int64) (*Book, error)        { return m.store.GetBook(id) }
func (m *Manager) ListBooks(sort string) ([]*Book, error) { return m.store.ListBooks(sort) }
func (m *Manager) UpdateBook(b *Book) error               { return m.store.UpdateBook(b) }
func (m *Manager) DeleteBook(id int64) error              { return m.store.DeleteBook(id) }

// ------------------ Members ------------------

func (m *Manager) AddMember(mem *Member) error         { return m.store.CreateMember(mem) }
func (m *Manager) GetMember(id int64) (*Member, error) { return m.store.GetMember(id) }
func (m *Manager) ListMembers() ([]*Member, error)     { return m.store.ListMembers() }
func (m *Manager) UpdateMember(mem *Member) error      { return m.store.UpdateMember(mem) }
func (m *Manager) DeleteMember(id int64) error         { return m.store.DeleteMember(id) }

// ------------------ Loans & notifications (reads) ------------------

func (m *Manager) GetLoan(id int64) (*Loan, error)          { return m.store.GetLoan(id) }
func (m *Manager) ListLoans(status string) ([]*Loan, error) { return m.store.ListLoans(status) }

func (m *Manager) Notifications(memberID int64) ([]*Notification, error) {
	return m.store.ListNotifications(memberID)
}

func (m *Manager) MarkNotificationRead(id int64) error {
	return m.store.MarkNotificationRead(id)
}
