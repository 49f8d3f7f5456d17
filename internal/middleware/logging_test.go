package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logEntry(t *testing.T, target string, status int) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	})
	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = "192.0.2.5:1234"
	SecureLogger(logger, nil)(next).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSecureLogger_RecordsRequest(t *testing.T) {
	entry := logEntry(t, "/health?verbose=1", http.StatusOK)

	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "/health?verbose=1", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.EqualValues(t, 2, entry["bytes"])
	assert.Equal(t, "192.0.2.5", entry["remote_addr"])
}

func TestSecureLogger_RedactsSearchTerms(t *testing.T) {
	entry := logEntry(t, "/api/admin/get-members?term=jane@example.com", http.StatusOK)

	assert.Equal(t, "/api/admin/get-members?[REDACTED]", entry["path"])
}

func TestSecureLogger_ServerErrorsAtWarn(t *testing.T) {
	entry := logEntry(t, "/api/admin/get-members", http.StatusServiceUnavailable)

	assert.Equal(t, "WARN", entry["level"])
}
