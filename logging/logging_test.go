package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info"}, &buf)

	h := HTTPMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := Ctx(r.Context())
		l.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	reqID := rec.Header().Get(headerRequestID)
	if reqID == "" {
		t.Fatal("expected a request id header")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines got %d: %q", len(lines), buf.String())
	}
	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if last[FieldRequestID] != reqID {
		t.Fatalf("expected request id %q got %v", reqID, last[FieldRequestID])
	}
	if int(last[FieldStatus].(float64)) != http.StatusTeapot {
		t.Fatalf("expected status %d got %v", http.StatusTeapot, last[FieldStatus])
	}
}

func TestHTTPMiddlewareKeepsIncomingRequestID(t *testing.T) {
	logger := New(Config{Level: "disabled"}, &bytes.Buffer{})
	h := HTTPMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(headerRequestID); got != "abc" {
		t.Fatalf("expected request id abc got %q", got)
	}
}

func TestAuditEntry(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(Config{}, &buf))

	Audit(ctx, ActionFollow, "u1", "u2", "followed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit entry: %v", err)
	}
	if entry[FieldLogType] != "audit" || entry[FieldAction] != ActionFollow {
		t.Fatalf("unexpected audit entry %v", entry)
	}
	if entry[FieldUserID] != "u1" || entry[FieldTargetID] != "u2" {
		t.Fatalf("unexpected actors in %v", entry)
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"direct", "10.0.0.1:4000", "", "", "10.0.0.1"},
		{"untrusted peer", "8.8.8.8:4000", "1.2.3.4", "5.6.7.8", "8.8.8.8"},
		{"trusted peer", "10.0.0.1:4000", "1.2.3.4", "", "1.2.3.4"},
		{"spoofed left hop", "10.0.0.1:4000", "6.6.6.6, 1.2.3.4", "", "1.2.3.4"},
		{"proxy chain", "192.168.1.1:4000", "1.2.3.4, 10.0.0.7", "", "1.2.3.4"},
		{"only proxies", "10.0.0.1:4000", "10.0.0.2", "", "10.0.0.2"},
		{"real ip", "10.0.0.1:4000", "", "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := proxies.ClientIP(req); got != tt.want {
				t.Fatalf("expected %s got %q", tt.want, got)
			}
		})
	}
}

func TestClientIPWithoutProxiesIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	if got := TrustedProxies(nil).ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1 got %q", got)
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected an error")
	}
}
