package library

import (
	"fmt"

	"go.uber.org/zap"
)

// EventKind identifies a circulation state transition the notification
// trigger reacts to.
type EventKind string

const (
	EventLoanCreated  EventKind = "loan_created"
	EventLoanReturned EventKind = "loan_returned"
	EventLoanOverdue  EventKind = "loan_overdue"
	EventLoanLost     EventKind = "loan_lost"
	EventBookAdded    EventKind = "book_added"
)

// NotificationPrefs holds a member's per-category opt-in flags.
type NotificationPrefs struct {
	DueReminders        bool
	NewBookAlerts       bool
	ReturnConfirmations bool
}

// ShouldNotify decides whether an event reaches a member with the given
// preferences. Overdue and fine notices are administrative and always
// delivered; every other category maps 1:1 to a preference flag.
func ShouldNotify(kind EventKind, prefs NotificationPrefs) bool {
	switch kind {
	case EventLoanCreated:
		return prefs.DueReminders
	case EventLoanReturned:
		return prefs.ReturnConfirmations
	case EventBookAdded:
		return prefs.NewBookAlerts
	case EventLoanOverdue, EventLoanLost:
		return true
	}
	return false
}

const notifDateFormat = "02 Jan 2006"

// buildNotification renders the type, title and message for an event.
// loan may be nil for book_added.
func buildNotification(kind EventKind, book *Book, loan *Loan) (typ, title, message string) {
	switch kind {
	case EventLoanCreated:
		return NotifDueReminder, "Loan due reminder",
			fmt.Sprintf("You borrowed %q. It is due back on %s.", book.Title, loan.DueDate.Format(notifDateFormat))
	case EventLoanReturned:
		return NotifReturnConfirmation, "Return confirmed",
			fmt.Sprintf("Thanks for returning %q.", book.Title)
	case EventLoanOverdue:
		return NotifOverdue, "Book overdue",
			fmt.Sprintf("%q was due on %s. Please return it as soon as possible.", book.Title, loan.DueDate.Format(notifDateFormat))
	case EventLoanLost:
		return NotifFineNotice, "Lost book fine",
			fmt.Sprintf("%q was marked as lost. A replacement fine applies to your account.", book.Title)
	case EventBookAdded:
		return NotifNewBook, "New book in the catalog",
			fmt.Sprintf("%q by %s is now available to borrow.", book.Title, book.Author)
	}
	return "", "", ""
}

// notifyLoan enqueues the notification for a loan transition, filtered by
// the member's preferences. Enqueue failures are logged, never propagated:
// the transition itself already committed.
func (m *Manager) notifyLoan(kind EventKind, loan *Loan) {
	member, err := m.store.GetMember(loan.MemberID)
	if err != nil {
		m.log.Warn("notify: load member", zap.Int64("member_id", loan.MemberID), zap.Error(err))
		return
	}
	if !ShouldNotify(kind, member.Prefs()) {
		return
	}
	book, err := m.store.GetBook(loan.BookID)
	if err != nil {
		m.log.Warn("notify: load book", zap.Int64("book_id", loan.BookID), zap.Error(err))
		return
	}
	m.enqueue(kind, member.ID, book, loan)
}

// notifyBookAdded fans a new_book notification out to every active member
// who opted in to new-book alerts.
func (m *Manager) notifyBookAdded(book *Book) {
	members, err := m.store.ListMembersByStatus(MemberActive)
	if err != nil {
		m.log.Warn("notify: list members", zap.Error(err))
		return
	}
	for _, member := range members {
		if !ShouldNotify(EventBookAdded, member.Prefs()) {
			continue
		}
		m.enqueue(EventBookAdded, member.ID, book, nil)
	}
}

func (m *Manager) enqueue(kind EventKind, memberID int64, book *Book, loan *Loan) {
	typ, title, message := buildNotification(kind, book, loan)
	n := &Notification{
		MemberID:  memberID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.CreateNotification(n); err != nil {
		m.log.Warn("notify: enqueue", zap.String("type", typ), zap.Int64("member_id", memberID), zap.Error(err))
	}
}
