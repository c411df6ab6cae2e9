package library

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sweep advances every borrowed loan whose due date has passed into the
// overdue state and enqueues the mandatory overdue notification. It is
// idempotent: loans already overdue are not candidates, so a second sweep
// with no intervening change transitions nothing and sends no duplicate
// notification. A loan returned while the sweep is running loses its
// candidacy; the conditional write in markLoanOverdue detects that and the
// loan is skipped. Available stock is untouched: an overdue copy is still
// checked out. Returns the number of loans transitioned.
func (m *Manager) Sweep(now time.Time) (int, error) {
	loans, err := m.store.ListLoans(LoanBorrowed)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, loan := range loans {
		if !loan.DueDate.Before(now) {
			continue
		}
		err := m.store.markLoanOverdue(loan.ID)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			// A concurrent return or delete won the race.
			m.log.Debug("sweep: loan skipped", zap.Int64("loan_id", loan.ID), zap.Error(err))
			continue
		}
		if err != nil {
			return moved, err
		}
		moved++
		loan.Status = LoanOverdue
		m.notifyLoan(EventLoanOverdue, loan)
	}

	if moved > 0 {
		m.log.Info("sweep complete", zap.Int("overdue", moved))
	}
	return moved, nil
}

// RunScanner sweeps once immediately and then on every tick until ctx is
// cancelled. Sweep failures are logged and the loop keeps going.
func (m *Manager) RunScanner(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := m.Sweep(m.now()); err != nil {
			m.log.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
