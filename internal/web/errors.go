package web

// errors.go maps processing failures to HTTP responses.
//
// Every API error body has the shape {"detail": "..."}, which is what the
// billing client reads. Failures caused by the upload are described
// verbatim; internal failures are logged in full and answered with a
// generic message.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/courierbill/internal/billing"
	"github.com/JonMunkholm/courierbill/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// classify returns the status code and client-facing message for err.
func classify(err error) (int, string) {
	var (
		inputErr   *billing.InputError
		unknownErr *billing.UnknownCourierError
		calcErr    *billing.CalculationError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Error()
	case errors.As(err, &unknownErr):
		return http.StatusNotFound, unknownErr.Error()
	case errors.As(err, &calcErr):
		return http.StatusInternalServerError, calcErr.Error()
	case errors.Is(err, billing.ErrBusy):
		return http.StatusServiceUnavailable, "Server busy, please try again shortly"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Processing timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest, "Request cancelled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError logs err and answers with its classified status. Requests
// from the HTML form get an HTML page; everything else gets JSON.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsHTML(r) {
		s.renderIndex(w, r, status, detail)
		return
	}
	writeDetail(w, status, detail)
}

// writeDetail writes a {"detail": ...} JSON error.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Detail: detail}); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// wantsHTML reports whether the request came from the upload page form.
func wantsHTML(r *http.Request) bool {
	return r.URL.Path == "/upload" && strings.Contains(r.Header.Get("Accept"), "text/html")
}
