package library

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanLifecycle(t *testing.T) {
	m := newTestManager(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }

	book := seedBook(t, m.store, "Dune", 1)
	member := seedMember(t, m.store, "Alice", MemberActive)

	loan, err := m.CreateLoan(book.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanBorrowed, loan.Status)
	assert.True(t, loan.LoanDate.Equal(t0))
	assert.True(t, loan.DueDate.Equal(t0.Add(DefaultLoanPeriod)))
	assert.Nil(t, loan.ReturnDate)

	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableStock)
	assert.Equal(t, 1, got.TotalBorrowed)

	t1 := t0.Add(48 * time.Hour)
	m.now = func() time.Time { return t1 }

	returned, err := m.ReturnLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.ReturnDate.Equal(t1))

	got, err = m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableStock)
	// The borrow counter never decreases.
	assert.Equal(t, 1, got.TotalBorrowed)
}

func TestReturnLoanTwice(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)
	member := seedMember(t, m.store, "Alice", MemberActive)

	loan, err := m.CreateLoan(book.ID, member.ID)
	require.NoError(t, err)
	_, err = m.ReturnLoan(loan.ID)
	require.NoError(t, err)

	// The second return must not release a second copy.
	_, err = m.ReturnLoan(loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)

	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableStock)
}

func TestCreateLoanOutOfStock(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)
	alice := seedMember(t, m.store, "Alice", MemberActive)
	bob := seedMember(t, m.store, "Bob", MemberActive)

	_, err := m.CreateLoan(book.ID, alice.ID)
	require.NoError(t, err)

	_, err = m.CreateLoan(book.ID, bob.ID)
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.ErrorIs(t, err, ErrOutOfStock)

	// The failed attempt leaves no loan row behind.
	loans, err := m.ListLoans("")
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestCreateLoanIneligibleMember(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)

	for _, status := range []string{MemberSuspended, MemberExpired} {
		member := seedMember(t, m.store, "M "+status, status)
		_, err := m.CreateLoan(book.ID, member.ID)
		assert.ErrorIs(t, err, ErrMemberIneligible)
	}

	// No copy was reserved for the rejected loans.
	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableStock)
	assert.Equal(t, 0, got.TotalBorrowed)
}

func TestCreateLoanUnknownIDs(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)
	member := seedMember(t, m.store, "Alice", MemberActive)

	_, err := m.CreateLoan(99, member.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.CreateLoan(book.ID, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkLost(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 2)
	member := seedMember(t, m.store, "Alice", MemberActive)

	loan, err := m.CreateLoan(book.ID, member.ID)
	require.NoError(t, err)

	lost, err := m.MarkLost(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanLost, lost.Status)

	// The lost copy leaves circulation: total shrinks, the remaining
	// available copy is untouched.
	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalStock)
	assert.Equal(t, 1, got.AvailableStock)

	// Lost is terminal.
	_, err = m.ReturnLoan(loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)
	_, err = m.MarkLost(loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestMarkLostOverdueLoan(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)
	member := seedMember(t, m.store, "Alice", MemberActive)

	loan, err := m.CreateLoan(book.ID, member.ID)
	require.NoError(t, err)
	require.NoError(t, m.store.markLoanOverdue(loan.ID))

	lost, err := m.MarkLost(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanLost, lost.Status)

	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalStock)
	assert.Equal(t, 0, got.AvailableStock)
}

func TestTotalBorrowedAccumulates(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)
	member := seedMember(t, m.store, "Alice", MemberActive)

	for i := 0; i < 3; i++ {
		loan, err := m.CreateLoan(book.ID, member.ID)
		require.NoError(t, err)
		_, err = m.ReturnLoan(loan.ID)
		require.NoError(t, err)
	}

	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalBorrowed)
	assert.Equal(t, 1, got.AvailableStock)
}

// With a single copy and concurrent borrowers, exactly one loan may be
// created.
func TestConcurrentCreateLoan(t *testing.T) {
	m := newTestManager(t)
	book := seedBook(t, m.store, "Dune", 1)

	const workers = 4
	members := make([]*Member, workers)
	for i := range members {
		members[i] = seedMember(t, m.store, "Member", MemberActive)
	}

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.CreateLoan(book.ID, members[i].ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrBookUnavailable)
		}
	}
	assert.Equal(t, 1, succeeded)

	loans, err := m.ListLoans(LoanBorrowed)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
	got, err := m.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableStock)
	assert.Equal(t, 1, got.TotalBorrowed)
}
