package library

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Inventory ledger: the only code allowed to mutate a book's available
// stock. Every mutation is a single conditional UPDATE, so concurrent
// callers on the same book are serialized by the database and the
// 0 <= available_stock <= total_stock invariant can never be observed
// broken. The original system read the stock and wrote the computed value
// back in two separate calls, losing updates under concurrency; the
// guarded UPDATE closes that race.

// ReserveCopy takes one available copy of the book out of stock. It fails
// with ErrOutOfStock when no copy is available, and with ErrNotFound when
// the book does not exist.
func (s *Store) ReserveCopy(bookID int64) error {
	return reserveCopy(s.db, bookID)
}

// ReleaseCopy puts one copy of the book back into stock. It fails with
// ErrInventoryOverflow when available stock is already at total stock,
// which signals a release without a matching prior reservation.
func (s *Store) ReleaseCopy(bookID int64) error {
	return releaseCopy(s.db, bookID)
}

// SetTotalStock is the administrative stock adjustment used by catalog
// edits. Available stock moves by the same delta so copies on loan stay
// accounted for. It fails with ErrInvalidStock when newTotal is smaller
// than the number of copies currently on loan.
func (s *Store) SetTotalStock(bookID int64, newTotal int) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	book, err := getBookForUpdate(tx, bookID)
	if err != nil {
		return err
	}

	onLoan := book.TotalStock - book.AvailableStock
	if newTotal < onLoan || newTotal < 0 {
		return fmt.Errorf("book %d: new total %d, %d on loan: %w", bookID, newTotal, onLoan, ErrInvalidStock)
	}

	if _, err := tx.Exec(`UPDATE books SET total_stock=?, available_stock=? WHERE id=?`,
		newTotal, newTotal-onLoan, bookID); err != nil {
		return err
	}
	return tx.Commit()
}

func reserveCopy(e sqlx.Ext, bookID int64) error {
	res, err := e.Exec(`UPDATE books SET available_stock = available_stock - 1 WHERE id=? AND available_stock > 0`, bookID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if err := bookExists(e, bookID); err != nil {
			return err
		}
		return fmt.Errorf("book %d: %w", bookID, ErrOutOfStock)
	}
	return nil
}

func releaseCopy(e sqlx.Ext, bookID int64) error {
	res, err := e.Exec(`UPDATE books SET available_stock = available_stock + 1 WHERE id=? AND available_stock < total_stock`, bookID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if err := bookExists(e, bookID); err != nil {
			return err
		}
		return fmt.Errorf("book %d: %w", bookID, ErrInventoryOverflow)
	}
	return nil
}

// shrinkStock permanently removes one copy from circulation after a loss.
// The lost copy was on loan, so available stock is untouched and the
// invariant holds exactly: available == total' - active loans'.
func shrinkStock(e sqlx.Ext, bookID int64) error {
	res, err := e.Exec(`UPDATE books SET total_stock = total_stock - 1 WHERE id=? AND total_stock > available_stock`, bookID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if err := bookExists(e, bookID); err != nil {
			return err
		}
		return fmt.Errorf("book %d: shrink without copy on loan: %w", bookID, ErrInvalidStock)
	}
	return nil
}

// incrementBorrowed bumps the monotonic per-book borrow counter.
func incrementBorrowed(e sqlx.Ext, bookID int64) error {
	_, err := e.Exec(`UPDATE books SET total_borrowed = total_borrowed + 1 WHERE id=?`, bookID)
	return err
}

func bookExists(e sqlx.Ext, bookID int64) error {
	var n int
	if err := sqlx.Get(e, &n, `SELECT COUNT(*) FROM books WHERE id=?`, bookID); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	return nil
}

func getBookForUpdate(tx *sqlx.Tx, bookID int64) (*Book, error) {
	var b Book
	if err := tx.Get(&b, `SELECT * FROM books WHERE id=?`, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}
