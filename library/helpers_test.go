package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{DBPath: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func seedBook(t *testing.T, s *Store, title string, stock int) *Book {
	t.Helper()
	b := &Book{Title: title, Author: "Test Author", TotalStock: stock, AvailableStock: stock}
	require.NoError(t, s.CreateBook(b))
	return b
}

func seedMember(t *testing.T, s *Store, name, status string) *Member {
	t.Helper()
	m := &Member{
		FullName:            name,
		Status:              status,
		DueReminders:        true,
		NewBookAlerts:       true,
		ReturnConfirmations: true,
	}
	require.NoError(t, s.CreateMember(m))
	return m
}
