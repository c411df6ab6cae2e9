package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"library-circulation/library"
)

// logError logs an internal error with request context.
func (s *Server) logError(r *http.Request, err error) {
	s.logger.Error(err.Error(),
		zap.String("request_method", r.Method),
		zap.String("request_url", r.URL.String()),
	)
}

// errorResponse sends a JSON error envelope with the given status code.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	data := envelope{"error": message}
	if err := s.writeJSON(w, status, data, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs the error and sends a generic 500. Internal
// details never reach the client.
func (s *Server) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	s.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (s *Server) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusMethodNotAllowed, "the "+r.Method+" method is not supported for this resource")
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 422 with the field-level errors
// collected by a Validator.
func (s *Server) failedValidationResponse(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	s.errorResponse(w, r, http.StatusUnprocessableEntity, errs)
}

func (s *Server) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// coreErrorResponse maps the circulation core's error kinds onto HTTP
// status codes. Anything unrecognized is treated as an internal error.
func (s *Server) coreErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		s.errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, library.ErrBookUnavailable),
		errors.Is(err, library.ErrOutOfStock),
		errors.Is(err, library.ErrInventoryOverflow),
		errors.Is(err, library.ErrLoanNotActive),
		errors.Is(err, library.ErrConflict):
		s.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, library.ErrMemberIneligible),
		errors.Is(err, library.ErrInvalidStock):
		s.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		s.serverErrorResponse(w, r, err)
	}
}
