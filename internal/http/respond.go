package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"expense-tracker/internal/log"
	"expense-tracker/internal/services"
	"expense-tracker/internal/storage"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSummaryNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, services.ErrSummaryThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrSummaryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged and hidden from the
// client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
		writeJSON(w, status, errorResponse{Error: "internal server error"})
	case http.StatusUnprocessableEntity:
		writeJSON(w, status, errorResponse{
			Error:   services.ErrValidation.Error(),
			Details: validationDetails(err),
		})
	case http.StatusNotFound:
		writeJSON(w, status, errorResponse{Error: "not found"})
	default:
		writeJSON(w, status, errorResponse{Error: err.Error()})
	}
}

// validationDetails lists the individual rule violations of err.
func validationDetails(err error) []string {
	msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}
