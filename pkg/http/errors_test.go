package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
	assert.Empty(t, resp.Fields)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Test message", "Additional details")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Additional details", resp.Details)
}

func TestWriteValidationError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteValidationError(w, "Validation failed", []pkghttp.FieldError{
		{Field: "password", Message: "must have a minimum of 6 characters"},
		{Field: "firstName", Message: "this field is required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "password", resp.Fields[0].Field)
}

func TestCommonErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", pkghttp.WriteBadRequest, http.StatusBadRequest, "bad_request"},
		{"unauthorized", pkghttp.WriteUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", pkghttp.WriteForbidden, http.StatusForbidden, "forbidden"},
		{"not found", pkghttp.WriteNotFound, http.StatusNotFound, "not_found"},
		{"too many requests", pkghttp.WriteTooManyRequests, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"unavailable", pkghttp.WriteServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"internal", pkghttp.WriteInternalError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "msg")

			assert.Equal(t, tt.status, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "msg", resp.Message)
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
