package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Loan state machine. States: borrowed (initial) -> returned (terminal),
// borrowed -> overdue -> returned, and borrowed/overdue -> lost (terminal).
// Every transition runs in one transaction together with its ledger side
// effect, so a failure anywhere leaves no partial state.

// createLoan reserves a copy and records the loan as a single atomic unit.
// If the insert fails after the reservation the transaction rolls back and
// the decrement never becomes visible.
func (s *Store) createLoan(bookID, memberID int64, loanDate, dueDate time.Time) (*Loan, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status string
	err = tx.Get(&status, `SELECT status FROM members WHERE id=?`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if status != MemberActive {
		return nil, fmt.Errorf("member %d is %s: %w", memberID, status, ErrMemberIneligible)
	}

	if err := reserveCopy(tx, bookID); err != nil {
		if errors.Is(err, ErrOutOfStock) {
			return nil, fmt.Errorf("book %d: %w", bookID, ErrBookUnavailable)
		}
		return nil, err
	}

	res, err := tx.Exec(`INSERT INTO loans (book_id, member_id, loan_date, due_date, status) VALUES (?,?,?,?,?)`,
		bookID, memberID, loanDate, dueDate, LoanBorrowed)
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	loanID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := incrementBorrowed(tx, bookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Loan{
		ID:       loanID,
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   LoanBorrowed,
	}, nil
}

// returnLoan moves an active loan to returned and releases its copy. The
// status write is conditioned on the loan still being active, so a second
// return of the same loan fails with ErrLoanNotActive instead of
// incrementing stock twice.
func (s *Store) returnLoan(loanID int64, returnDate time.Time) (*Loan, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE loans SET status=?, return_date=? WHERE id=? AND status IN (?,?)`,
		LoanReturned, returnDate, loanID, LoanBorrowed, LoanOverdue)
	if err != nil {
		return nil, err
	}
	if err := activeTransitionApplied(res, tx, loanID); err != nil {
		return nil, err
	}

	var loan Loan
	if err := tx.Get(&loan, `SELECT * FROM loans WHERE id=?`, loanID); err != nil {
		return nil, err
	}

	if err := releaseCopy(tx, loan.BookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &loan, nil
}

// markLoanLost moves an active loan to lost. The copy is never released;
// instead total stock shrinks by one in the same transaction so the book
// reflects the permanent loss without breaking the stock invariant.
func (s *Store) markLoanLost(loanID int64) (*Loan, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE loans SET status=? WHERE id=? AND status IN (?,?)`,
		LoanLost, loanID, LoanBorrowed, LoanOverdue)
	if err != nil {
		return nil, err
	}
	if err := activeTransitionApplied(res, tx, loanID); err != nil {
		return nil, err
	}

	var loan Loan
	if err := tx.Get(&loan, `SELECT * FROM loans WHERE id=?`, loanID); err != nil {
		return nil, err
	}

	if err := shrinkStock(tx, loan.BookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &loan, nil
}

// markLoanOverdue is the sweep's optimistic transition: the write only
// applies while the loan is still borrowed. A loan returned in the
// meantime yields ErrConflict so the sweep can skip it; the return wins.
func (s *Store) markLoanOverdue(loanID int64) error {
	res, err := s.db.Exec(`UPDATE loans SET status=? WHERE id=? AND status=?`, LoanOverdue, loanID, LoanBorrowed)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetLoan(loanID); err != nil {
			return err
		}
		return fmt.Errorf("loan %d no longer borrowed: %w", loanID, ErrConflict)
	}
	return nil
}

// activeTransitionApplied classifies a zero-row conditional transition:
// the loan either does not exist or is no longer active.
func activeTransitionApplied(res sql.Result, tx *sqlx.Tx, loanID int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	var n int
	if err := tx.Get(&n, `SELECT COUNT(*) FROM loans WHERE id=?`, loanID); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}
	return fmt.Errorf("loan %d: %w", loanID, ErrLoanNotActive)
}
