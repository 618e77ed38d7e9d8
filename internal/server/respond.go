package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// Wire texts for client errors.
const (
	msgNoData         = "No data to insert"
	msgMissingRowData = "Missing old or new row data"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, core.ErrorResponse{Error: msg})
}

// fail maps a backend error onto a status and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	var (
		unknownCol *store.UnknownColumnError
		codeLen    *core.CodeLengthError
		tooLarge   *http.MaxBytesError
		bodyErr    *bodyError
	)
	switch {
	case errors.Is(err, store.ErrNoData):
		return http.StatusBadRequest, msgNoData
	case errors.Is(err, store.ErrMissingRowData):
		return http.StatusBadRequest, msgMissingRowData
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.As(err, &bodyErr),
		errors.As(err, &unknownCol),
		errors.As(err, &codeLen),
		errors.Is(err, store.ErrIsFolder),
		errors.Is(err, core.ErrInvalidName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// bodyError is a request body that could not be decoded.
type bodyError struct {
	err error
}

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *bodyError) Unwrap() error { return e.err }

// decodeBody decodes a JSON body with UseNumber so integers keep their
// precision on the way to the database.
func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &bodyError{err: errors.New("empty body")}
		}
		return &bodyError{err: err}
	}
	return nil
}

// pathParam returns a decoded URL parameter. chi matches against the raw
// path when the request has one, leaving the parameter escaped.
func pathParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw, nil
	}
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", &bodyError{err: fmt.Errorf("bad %s %q", key, raw)}
	}
	return v, nil
}
