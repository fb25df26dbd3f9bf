package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/scan"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("invalid request body")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), model.ErrorResponse{Detail: err.Error()})
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, scan.ErrNotFound),
		errors.Is(err, scan.ErrReportNotFound),
		errors.Is(err, scan.ErrUnknownRule):
		return http.StatusNotFound
	case scan.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, scan.ErrInvalidURL),
		errors.Is(err, scan.ErrInvalidConfig),
		errors.Is(err, errValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scan.ErrClosed),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errValidation marks well-formed requests with missing or bad fields.
var errValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into dst. An empty body leaves dst unchanged.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
