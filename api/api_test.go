package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"library-circulation/library"
)

// newTestServer wires a Server over a throwaway database with rate limits
// high enough to stay out of the way.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	mgr, err := library.NewManager(library.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	s := New(Config{Env: "test", RateRPS: 1000, RateBurst: 1000}, zap.NewNop(), mgr)
	return s.routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst))
}

func createBook(t *testing.T, h http.Handler, title string, stock int) library.Book {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/books", map[string]any{
		"title": title, "author": "Test Author", "total_stock": stock,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var got struct {
		Book library.Book `json:"book"`
	}
	decode(t, rr, &got)
	return got.Book
}

func createMember(t *testing.T, h http.Handler, name string) library.Member {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/members", map[string]any{"full_name": name})
	require.Equal(t, http.StatusCreated, rr.Code)
	var got struct {
		Member library.Member `json:"member"`
	}
	decode(t, rr, &got)
	return got.Member
}

func TestWriteJSON(t *testing.T) {
	s := New(Config{Env: "test"}, zap.NewNop(), nil)

	rr := httptest.NewRecorder()
	headers := http.Header{"Location": []string{"/v1/books/1"}}
	require.NoError(t, s.writeJSON(rr, http.StatusCreated, envelope{"ok": true}, headers))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "/v1/books/1", rr.Header().Get("Location"))

	var got map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got["ok"])
}

// Serving requests must not leave anything running behind the handler.
func TestHandlerLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr, err := library.NewManager(library.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	defer mgr.Close()

	s := New(Config{Env: "test", RateRPS: 1000, RateBurst: 1000}, zap.NewNop(), mgr)
	h := s.routes()

	for i := 0; i < 3; i++ {
		rr := do(t, h, http.MethodGet, "/v1/healthcheck", nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestHealthcheck(t *testing.T) {
	h := newTestServer(t)
	rr := do(t, h, http.MethodGet, "/v1/healthcheck", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var got struct {
		Status string `json:"status"`
	}
	decode(t, rr, &got)
	assert.Equal(t, "available", got.Status)
}

func TestBookEndpoints(t *testing.T) {
	h := newTestServer(t)

	book := createBook(t, h, "Dune", 3)
	assert.Equal(t, 3, book.AvailableStock)

	rr := do(t, h, http.MethodGet, "/v1/books/"+itoa(book.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Partial update leaves unmentioned fields alone.
	rr = do(t, h, http.MethodPatch, "/v1/books/"+itoa(book.ID), map[string]any{"category": "Sci-Fi"})
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Book library.Book `json:"book"`
	}
	decode(t, rr, &got)
	assert.Equal(t, "Dune", got.Book.Title)
	assert.Equal(t, "Sci-Fi", got.Book.Category)

	rr = do(t, h, http.MethodPatch, "/v1/books/"+itoa(book.ID)+"/stock", map[string]any{"total_stock": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &got)
	assert.Equal(t, 5, got.Book.TotalStock)
	assert.Equal(t, 5, got.Book.AvailableStock)

	rr = do(t, h, http.MethodDelete, "/v1/books/"+itoa(book.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodGet, "/v1/books/"+itoa(book.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateBookValidation(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/v1/books", map[string]any{"author": "Nobody"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/books", map[string]any{
		"title": "X", "author": "Y", "total_stock": -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Unknown fields are rejected outright.
	rr = do(t, h, http.MethodPost, "/v1/books", map[string]any{
		"title": "X", "author": "Y", "bogus": true,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoanEndpoints(t *testing.T) {
	h := newTestServer(t)

	book := createBook(t, h, "Dune", 1)
	alice := createMember(t, h, "Alice")
	bob := createMember(t, h, "Bob")

	rr := do(t, h, http.MethodPost, "/v1/loans", map[string]any{
		"book_id": book.ID, "member_id": alice.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var got struct {
		Loan library.Loan `json:"loan"`
	}
	decode(t, rr, &got)
	loan := got.Loan
	assert.Equal(t, library.LoanBorrowed, loan.Status)
	assert.Equal(t, "/v1/loans/"+itoa(loan.ID), rr.Header().Get("Location"))

	// No copies left.
	rr = do(t, h, http.MethodPost, "/v1/loans", map[string]any{
		"book_id": book.ID, "member_id": bob.ID,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/loans/"+itoa(loan.ID)+"/return", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &got)
	assert.Equal(t, library.LoanReturned, got.Loan.Status)

	// Returning twice conflicts.
	rr = do(t, h, http.MethodPost, "/v1/loans/"+itoa(loan.ID)+"/return", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = do(t, h, http.MethodPost, "/v1/loans/"+itoa(loan.ID)+"/lost", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/loans?status=returned", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Loans []library.Loan `json:"loans"`
	}
	decode(t, rr, &list)
	assert.Len(t, list.Loans, 1)

	rr = do(t, h, http.MethodGet, "/v1/loans?status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestLoanForSuspendedMember(t *testing.T) {
	h := newTestServer(t)

	book := createBook(t, h, "Dune", 1)
	member := createMember(t, h, "Alice")

	rr := do(t, h, http.MethodPatch, "/v1/members/"+itoa(member.ID), map[string]any{"status": "suspended"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/loans", map[string]any{
		"book_id": book.ID, "member_id": member.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestMemberNotificationsEndpoint(t *testing.T) {
	h := newTestServer(t)

	// Member first so the new-book alert has a recipient.
	member := createMember(t, h, "Alice")
	createBook(t, h, "Dune", 1)

	rr := do(t, h, http.MethodGet, "/v1/members/"+itoa(member.ID)+"/notifications", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Notifications []library.Notification `json:"notifications"`
	}
	decode(t, rr, &got)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, library.NotifNewBook, got.Notifications[0].Type)
	assert.False(t, got.Notifications[0].IsRead)

	rr = do(t, h, http.MethodPatch, "/v1/notifications/"+itoa(got.Notifications[0].ID)+"/read", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/members/"+itoa(member.ID)+"/notifications", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &got)
	require.Len(t, got.Notifications, 1)
	assert.True(t, got.Notifications[0].IsRead)

	// Unknown member yields 404, not an empty list.
	rr = do(t, h, http.MethodGet, "/v1/members/999/notifications", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsEndpoints(t *testing.T) {
	h := newTestServer(t)

	book := createBook(t, h, "Dune", 2)
	createBook(t, h, "The Hobbit", 1)
	member := createMember(t, h, "Alice")

	rr := do(t, h, http.MethodPost, "/v1/loans", map[string]any{
		"book_id": book.ID, "member_id": member.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Stats library.Stats `json:"stats"`
	}
	decode(t, rr, &got)
	assert.Equal(t, 2, got.Stats.TotalBooks)
	assert.Equal(t, 1, got.Stats.TotalMembers)
	assert.Equal(t, 1, got.Stats.ActiveLoans)
	assert.Equal(t, 0, got.Stats.OverdueLoans)

	rr = do(t, h, http.MethodGet, "/v1/stats/popular?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var popular struct {
		Books []library.Book `json:"books"`
	}
	decode(t, rr, &popular)
	require.Len(t, popular.Books, 1)
	assert.Equal(t, book.ID, popular.Books[0].ID)
}

func TestRouterErrorResponses(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/v1/healthcheck", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/books/notanumber", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimit(t *testing.T) {
	mgr, err := library.NewManager(library.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	s := New(Config{Env: "test", RateRPS: 1, RateBurst: 2}, zap.NewNop(), mgr)
	h := s.routes()

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rr := do(t, h, http.MethodGet, "/v1/healthcheck", nil)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}
