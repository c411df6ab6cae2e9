package api

import (
	"net/http"
	"strconv"
	"time"

	"library-circulation/library"
)

// ---------------------------------------------------------------------------
// Healthcheck
// ---------------------------------------------------------------------------

func (s *Server) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	data := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": s.cfg.Env,
			"version":     Version,
		},
	}
	if err := s.writeJSON(w, http.StatusOK, data, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s *Server) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title           string `json:"title"`
		Author          string `json:"author"`
		Publisher       string `json:"publisher"`
		PublicationYear int    `json:"publication_year"`
		ISBN            string `json:"isbn"`
		Category        string `json:"category"`
		Description     string `json:"description"`
		CoverURL        string `json:"cover_url"`
		TotalStock      *int   `json:"total_stock"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	totalStock := 1
	if input.TotalStock != nil {
		totalStock = *input.TotalStock
	}

	v := NewValidator()
	v.Check(input.Title != "", "title", "must be provided")
	v.Check(input.Author != "", "author", "must be provided")
	v.Check(totalStock >= 0, "total_stock", "must not be negative")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := &library.Book{
		Title:           input.Title,
		Author:          input.Author,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		ISBN:            input.ISBN,
		Category:        input.Category,
		Description:     input.Description,
		CoverURL:        input.CoverURL,
		TotalStock:      totalStock,
	}
	if err := s.mgr.AddBook(book); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/books/"+itoa(book.ID))
	if err := s.writeJSON(w, http.StatusCreated, envelope{"book": book}, headers); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	sort := s.readString(r.URL.Query(), "sort", "id")
	books, err := s.mgr.ListBooks(sort)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"books": books}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	book, err := s.mgr.GetBook(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	book, err := s.mgr.GetBook(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}

	// Pointer fields distinguish "not provided" from "set to empty".
	var input struct {
		Title           *string `json:"title"`
		Author          *string `json:"author"`
		Publisher       *string `json:"publisher"`
		PublicationYear *int    `json:"publication_year"`
		ISBN            *string `json:"isbn"`
		Category        *string `json:"category"`
		Description     *string `json:"description"`
		CoverURL        *string `json:"cover_url"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}
	if input.PublicationYear != nil {
		book.PublicationYear = *input.PublicationYear
	}
	if input.ISBN != nil {
		book.ISBN = *input.ISBN
	}
	if input.Category != nil {
		book.Category = *input.Category
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.CoverURL != nil {
		book.CoverURL = *input.CoverURL
	}

	v := NewValidator()
	v.Check(book.Title != "", "title", "must not be empty")
	v.Check(book.Author != "", "author", "must not be empty")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := s.mgr.UpdateBook(book); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) updateBookStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}

	var input struct {
		TotalStock *int `json:"total_stock"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	v := NewValidator()
	v.Check(input.TotalStock != nil, "total_stock", "must be provided")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := s.mgr.SetTotalStock(id, *input.TotalStock); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	book, err := s.mgr.GetBook(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	if err := s.mgr.DeleteBook(id); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func (s *Server) createMemberHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FullName   string `json:"full_name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		MemberType string `json:"member_type"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	v := NewValidator()
	v.Check(input.FullName != "", "full_name", "must be provided")
	if input.Email != "" {
		v.Check(emailRX.MatchString(input.Email), "email", "must be a valid email address")
	}
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	member := &library.Member{
		FullName:            input.FullName,
		Email:               input.Email,
		Phone:               input.Phone,
		Address:             input.Address,
		MemberType:          input.MemberType,
		DueReminders:        true,
		NewBookAlerts:       true,
		ReturnConfirmations: true,
	}
	if err := s.mgr.AddMember(member); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/members/"+itoa(member.ID))
	if err := s.writeJSON(w, http.StatusCreated, envelope{"member": member}, headers); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	members, err := s.mgr.ListMembers()
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"members": members}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) showMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	member, err := s.mgr.GetMember(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"member": member}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) updateMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	member, err := s.mgr.GetMember(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}

	var input struct {
		FullName            *string `json:"full_name"`
		Email               *string `json:"email"`
		Phone               *string `json:"phone"`
		Address             *string `json:"address"`
		MemberType          *string `json:"member_type"`
		Status              *string `json:"status"`
		DueReminders        *bool   `json:"due_reminders"`
		NewBookAlerts       *bool   `json:"new_book_alerts"`
		ReturnConfirmations *bool   `json:"return_confirmations"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	if input.FullName != nil {
		member.FullName = *input.FullName
	}
	if input.Email != nil {
		member.Email = *input.Email
	}
	if input.Phone != nil {
		member.Phone = *input.Phone
	}
	if input.Address != nil {
		member.Address = *input.Address
	}
	if input.MemberType != nil {
		member.MemberType = *input.MemberType
	}
	if input.Status != nil {
		member.Status = *input.Status
	}
	if input.DueReminders != nil {
		member.DueReminders = *input.DueReminders
	}
	if input.NewBookAlerts != nil {
		member.NewBookAlerts = *input.NewBookAlerts
	}
	if input.ReturnConfirmations != nil {
		member.ReturnConfirmations = *input.ReturnConfirmations
	}

	v := NewValidator()
	v.Check(member.FullName != "", "full_name", "must not be empty")
	v.Check(In(member.Status, library.MemberActive, library.MemberSuspended, library.MemberExpired),
		"status", "must be one of active, suspended, expired")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := s.mgr.UpdateMember(member); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"member": member}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) deleteMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	if err := s.mgr.DeleteMember(id); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"message": "member successfully deleted"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) memberNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	if _, err := s.mgr.GetMember(id); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	notifs, err := s.mgr.Notifications(id)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"notifications": notifs}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BookID   int64 `json:"book_id"`
		MemberID int64 `json:"member_id"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	v := NewValidator()
	v.Check(input.BookID > 0, "book_id", "must be provided")
	v.Check(input.MemberID > 0, "member_id", "must be provided")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan, err := s.mgr.CreateLoan(input.BookID, input.MemberID)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/loans/"+itoa(loan.ID))
	if err := s.writeJSON(w, http.StatusCreated, envelope{"loan": loan}, headers); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	status := s.readString(r.URL.Query(), "status", "")
	if status != "" && !In(status, library.LoanBorrowed, library.LoanReturned, library.LoanOverdue, library.LoanLost) {
		s.failedValidationResponse(w, r, map[string]string{"status": "must be one of borrowed, returned, overdue, lost"})
		return
	}
	loans, err := s.mgr.ListLoans(status)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	loan, err := s.mgr.GetLoan(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	loan, err := s.mgr.ReturnLoan(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) lostLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	loan, err := s.mgr.MarkLost(id)
	if err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) sweepHandler(w http.ResponseWriter, r *http.Request) {
	moved, err := s.mgr.Sweep(time.Now())
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"overdue": moved}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// ---------------------------------------------------------------------------
// Dashboard views
// ---------------------------------------------------------------------------

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.mgr.Stats()
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"stats": stats}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) popularBooksHandler(w http.ResponseWriter, r *http.Request) {
	limit := s.readInt(r.URL.Query(), "limit", 5)
	books, err := s.mgr.PopularBooks(limit)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"books": books}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (s *Server) readNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.readIDParam(r)
	if err != nil {
		s.notFoundResponse(w, r)
		return
	}
	if err := s.mgr.MarkNotificationRead(id); err != nil {
		s.coreErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"message": "notification marked as read"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// itoa formats an ID for Location headers.
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
