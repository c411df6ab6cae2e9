package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the top-level JSON wrapper for all responses, e.g.
// {"book": {...}} or {"loans": [...]}.
type envelope map[string]any

// readIDParam extracts and validates the ":id" URL parameter.
func (s *Server) readIDParam(r *http.Request) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readString reads a string query parameter, with a default.
func (s *Server) readString(qs url.Values, key, defaultValue string) string {
	v := qs.Get(key)
	if v == "" {
		return defaultValue
	}
	return v
}

// readInt reads an integer query parameter, with a default.
func (s *Server) readInt(qs url.Values, key string, defaultValue int) int {
	v := qs.Get(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

// writeJSON marshals data to indented JSON, applies headers and writes the
// response. jsoniter only accepts space indentation.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// readJSON decodes a single JSON value from the request body into dst,
// capping the body at 1 MB and rejecting unknown fields and trailing data.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
