package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"umlreg/internal/auth"
	"umlreg/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := ErrorResponse{
		Error: err.Error(),
	}

	if e, ok := errors.As(err); ok {
		resp.Code = string(e.Code)
		resp.Details = e.Details
		resp.SuggestedFixes = e.SuggestedFixes()
	} else {
		resp.Code = string(errors.InternalError)
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteRegistryError writes err with the status mapped from its code
func WriteRegistryError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ModelNotFound, errors.ElementNotFound:
		return http.StatusNotFound // 404
	case errors.InvalidMetaData, errors.UnsupportedVersion:
		return http.StatusBadRequest // 400
	case errors.ResourceUnreadable:
		return http.StatusBadGateway // 502
	case errors.TransformFailed, errors.ProjectionFailed, errors.NoResult:
		return http.StatusUnprocessableEntity // 422
	case errors.TerminologyUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// writeAuthError maps guard failures to 401 and 429
func writeAuthError(w http.ResponseWriter, err error, retryAfter int) {
	switch err {
	case auth.ErrRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		WriteError(w, err, http.StatusTooManyRequests)
	default:
		w.Header().Set("WWW-Authenticate", `Bearer realm="umlreg"`)
		WriteError(w, err, http.StatusUnauthorized)
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.InvalidMetaData, message, nil), http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.ModelNotFound, message, nil), http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.New(errors.InternalError, message, err), http.StatusInternalServerError)
}

func errMethodNotAllowed(method string) error {
	return fmt.Errorf("method %s not allowed", method)
}
