package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"umlreg/internal/auth"
	"umlreg/internal/errors"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ModelNotFound, http.StatusNotFound},
		{errors.ElementNotFound, http.StatusNotFound},
		{errors.InvalidMetaData, http.StatusBadRequest},
		{errors.UnsupportedVersion, http.StatusBadRequest},
		{errors.ResourceUnreadable, http.StatusBadGateway},
		{errors.TransformFailed, http.StatusUnprocessableEntity},
		{errors.ProjectionFailed, http.StatusUnprocessableEntity},
		{errors.NoResult, http.StatusUnprocessableEntity},
		{errors.TerminologyUnavailable, http.StatusServiceUnavailable},
		{errors.InternalError, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError}, // default case
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := MapErrorToStatus(tt.code)
			if got != tt.want {
				t.Errorf("MapErrorToStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("writes basic error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("something went wrong"), http.StatusInternalServerError)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if resp.Code != "INTERNAL_ERROR" {
			t.Errorf("Code = %q, want INTERNAL_ERROR", resp.Code)
		}
		if resp.Error != "something went wrong" {
			t.Errorf("Error = %q", resp.Error)
		}
	})

	t.Run("writes classified error through wrapping", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := fmt.Errorf("load sample: %w", errors.New(errors.ResourceUnreadable, "cannot open x.xmi", nil))
		WriteRegistryError(w, err)

		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if resp.Code != "RESOURCE_UNREADABLE" {
			t.Errorf("Code = %q, want RESOURCE_UNREADABLE", resp.Code)
		}
		if len(resp.SuggestedFixes) == 0 {
			t.Error("expected suggested fixes")
		}
	})
}

func TestWriteAuthError(t *testing.T) {
	w := httptest.NewRecorder()
	writeAuthError(w, auth.ErrRateLimited, 7)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "7" {
		t.Errorf("Retry-After = %q, want 7", got)
	}

	w = httptest.NewRecorder()
	writeAuthError(w, auth.ErrTokenMissing, 0)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad") }, http.StatusBadRequest, "INVALID_METADATA"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") }, http.StatusNotFound, "MODEL_NOT_FOUND"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "boom", fmt.Errorf("cause")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("Code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}
