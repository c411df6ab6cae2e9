package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all endpoints and wraps the router in the middleware
// chain (outermost first): recoverPanic -> requestID -> rateLimit -> router.
func (s *Server) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON.
	router.NotFound = http.HandlerFunc(s.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", s.healthcheckHandler)

	// Catalog
	router.HandlerFunc(http.MethodPost, "/v1/books", s.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books", s.listBooksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", s.showBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", s.updateBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id/stock", s.updateBookStockHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", s.deleteBookHandler)

	// Members
	router.HandlerFunc(http.MethodPost, "/v1/members", s.createMemberHandler)
	router.HandlerFunc(http.MethodGet, "/v1/members", s.listMembersHandler)
	router.HandlerFunc(http.MethodGet, "/v1/members/:id", s.showMemberHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/members/:id", s.updateMemberHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/members/:id", s.deleteMemberHandler)
	router.HandlerFunc(http.MethodGet, "/v1/members/:id/notifications", s.memberNotificationsHandler)

	// Circulation
	router.HandlerFunc(http.MethodPost, "/v1/loans", s.createLoanHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans", s.listLoansHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:id", s.showLoanHandler)
	router.HandlerFunc(http.MethodPost, "/v1/loans/:id/return", s.returnLoanHandler)
	router.HandlerFunc(http.MethodPost, "/v1/loans/:id/lost", s.lostLoanHandler)
	router.HandlerFunc(http.MethodPost, "/v1/sweep", s.sweepHandler)

	// Dashboard views
	router.HandlerFunc(http.MethodGet, "/v1/stats", s.statsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stats/popular", s.popularBooksHandler)

	// Notifications
	router.HandlerFunc(http.MethodPatch, "/v1/notifications/:id/read", s.readNotificationHandler)

	return s.recoverPanic(s.requestID(s.rateLimit(router)))
}
