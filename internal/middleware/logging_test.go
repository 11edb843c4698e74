package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedLog struct {
	Level    string  `json:"level"`
	Msg      string  `json:"msg"`
	Method   string  `json:"method"`
	Path     string  `json:"path"`
	Status   int     `json:"status"`
	Duration float64 `json:"duration_ms"`
	PersonID string  `json:"person_id"`
}

type countingReporter struct {
	statuses []int
}

func (c *countingReporter) RecordHTTPStatus(statusCode int) {
	c.statuses = append(c.statuses, statusCode)
}

func serveWithLogger(t *testing.T, inner http.Handler, reporter StatusReporter, req *http.Request) (recordedLog, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	NewLoggingMiddleware(logger, reporter)(inner).ServeHTTP(rec, req)

	var entry recordedLog
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v (raw: %s)", err, buf.String())
	}
	return entry, rec
}

// TestLoggingMiddleware_LogsRequestFields はmethod、path、status、duration_msが
// ログに含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	req := httptest.NewRequest(http.MethodPost, "/person/login", nil)

	entry, _ := serveWithLogger(t, inner, nil, req)

	if entry.Msg != "http_request" {
		t.Errorf("msg = %q, want %q", entry.Msg, "http_request")
	}
	if entry.Method != http.MethodPost {
		t.Errorf("method = %q, want %q", entry.Method, http.MethodPost)
	}
	if entry.Path != "/person/login" {
		t.Errorf("path = %q, want %q", entry.Path, "/person/login")
	}
	if entry.Status != http.StatusCreated {
		t.Errorf("status = %d, want %d", entry.Status, http.StatusCreated)
	}
	if entry.Duration < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry.Duration)
	}
}

// TestLoggingMiddleware_AuthenticatedRequest_LogsPersonID は認証済み
// リクエストでperson_idがログに含まれることを検証する。
func TestLoggingMiddleware_AuthenticatedRequest_LogsPersonID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/person/me", nil)
	req = req.WithContext(ContextWithPerson(req.Context(), "person-7", 2))

	entry, _ := serveWithLogger(t, inner, nil, req)

	if entry.PersonID != "person-7" {
		t.Errorf("person_id = %q, want %q", entry.PersonID, "person-7")
	}
}

// TestLoggingMiddleware_LevelFollowsStatus はステータスコードに応じて
// ログレベルが変わることを検証する。
func TestLoggingMiddleware_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tc := range cases {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

		entry, _ := serveWithLogger(t, inner, nil, req)

		if entry.Level != tc.wantLevel {
			t.Errorf("status %d: level = %q, want %q", tc.status, entry.Level, tc.wantLevel)
		}
	}
}

// TestLoggingMiddleware_ReportsStatusToMetrics はステータスコードが
// メトリクスに記録されることを検証する。
func TestLoggingMiddleware_ReportsStatusToMetrics(t *testing.T) {
	reporter := &countingReporter{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	req := httptest.NewRequest(http.MethodPost, "/person/verifyVerificationCode", nil)

	_, _ = serveWithLogger(t, inner, reporter, req)

	if len(reporter.statuses) != 1 || reporter.statuses[0] != http.StatusBadRequest {
		t.Errorf("recorded statuses = %v, want [400]", reporter.statuses)
	}
}

// TestStatusRecorder_DefaultsTo200OnWrite はWriteHeader未呼び出しの
// Writeで200が記録されることを検証する。
func TestStatusRecorder_DefaultsTo200OnWrite(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	entry, rec := serveWithLogger(t, inner, nil, req)

	if entry.Status != http.StatusOK {
		t.Errorf("logged status = %d, want %d", entry.Status, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}
