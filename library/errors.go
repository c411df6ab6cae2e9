package library

import (
	"errors"
	"fmt"
)

// Error kinds reported by the circulation core. All of them surface
// synchronously to the caller of the triggering operation; none are retried
// internally. Match with errors.Is.
var (
	// ErrNotFound is returned when a referenced book, member, loan or
	// notification does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrOutOfStock is returned by ReserveCopy when a book has no
	// available copies left.
	ErrOutOfStock = errors.New("no available copies")

	// ErrInventoryOverflow is returned by ReleaseCopy when the release
	// would push available stock past total stock. It signals a caller
	// bug: a release without a matching prior reservation.
	ErrInventoryOverflow = errors.New("release exceeds total stock")

	// ErrInvalidStock is returned by SetTotalStock when the new total is
	// smaller than the number of copies currently on loan.
	ErrInvalidStock = errors.New("total stock below copies on loan")

	// ErrMemberIneligible is returned by CreateLoan when the member is
	// suspended or expired.
	ErrMemberIneligible = errors.New("member not eligible to borrow")

	// ErrLoanNotActive is returned by ReturnLoan and MarkLost when the
	// loan is not in the borrowed or overdue state, including repeated
	// returns of the same loan.
	ErrLoanNotActive = errors.New("loan is not active")

	// ErrConflict is returned when an optimistic status transition lost
	// the race against a concurrent operation on the same loan.
	ErrConflict = errors.New("concurrent transition conflict")
)

// ErrBookUnavailable is the loan-creation surface of ErrOutOfStock: a
// CreateLoan that fails because no copy could be reserved reports this
// error, and errors.Is(err, ErrOutOfStock) also holds.
var ErrBookUnavailable = fmt.Errorf("book unavailable: %w", ErrOutOfStock)
