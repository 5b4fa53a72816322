package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentEMI, Output: &buf})

	l.Info("payment recorded", FieldEMIID, "e1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentEMI || rec[FieldEMIID] != "e1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestMiddleware_LogsStatusAndInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	h := Middleware(l, func(*http.Request) string { return "req-1" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromContext(r.Context()).Component() != ComponentHTTP {
				t.Error("request logger missing from context")
			}
			w.WriteHeader(http.StatusNotFound)
		}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/emis/x", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "status_code=404", "request_id=req-1", "path=/api/emis/x"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
