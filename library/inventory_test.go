package library

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndReleaseCopy(t *testing.T) {
	s := tempStore(t)
	book := seedBook(t, s, "Dune", 2)

	require.NoError(t, s.ReserveCopy(book.ID))
	require.NoError(t, s.ReserveCopy(book.ID))

	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableStock)
	assert.Equal(t, 2, got.TotalStock)

	// Third reservation finds no available copy.
	assert.ErrorIs(t, s.ReserveCopy(book.ID), ErrOutOfStock)

	require.NoError(t, s.ReleaseCopy(book.ID))
	require.NoError(t, s.ReleaseCopy(book.ID))

	got, err = s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableStock)

	// A release without a matching reservation would push available
	// past total.
	assert.ErrorIs(t, s.ReleaseCopy(book.ID), ErrInventoryOverflow)
}

func TestReserveCopyUnknownBook(t *testing.T) {
	s := tempStore(t)
	assert.ErrorIs(t, s.ReserveCopy(99), ErrNotFound)
	assert.ErrorIs(t, s.ReleaseCopy(99), ErrNotFound)
}

func TestSetTotalStock(t *testing.T) {
	s := tempStore(t)
	book := seedBook(t, s, "Dune", 3)

	// Two copies out on loan.
	require.NoError(t, s.ReserveCopy(book.ID))
	require.NoError(t, s.ReserveCopy(book.ID))

	require.NoError(t, s.SetTotalStock(book.ID, 5))
	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalStock)
	assert.Equal(t, 3, got.AvailableStock)

	// Shrinking below the number of copies on loan is rejected.
	assert.ErrorIs(t, s.SetTotalStock(book.ID, 1), ErrInvalidStock)

	// Shrinking to exactly the on-loan count leaves nothing available.
	require.NoError(t, s.SetTotalStock(book.ID, 2))
	got, err = s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalStock)
	assert.Equal(t, 0, got.AvailableStock)

	assert.ErrorIs(t, s.SetTotalStock(99, 1), ErrNotFound)
}

// Two concurrent reservations against a single copy must resolve to exactly
// one success; the guarded UPDATE serializes them inside SQLite.
func TestConcurrentReservations(t *testing.T) {
	s := tempStore(t)
	book := seedBook(t, s, "Dune", 1)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ReserveCopy(book.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrOutOfStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableStock)
}
