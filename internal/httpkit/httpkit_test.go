package httpkit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"menuforge/internal/pkg/errors"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"main"}`, false},
		{"unknown field", `{"name":"main","extra":1}`, true},
		{"trailing data", `{"name":"a"}{"name":"b"}`, true},
		{"malformed", `{"name":`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errors.GetCode(err) != errors.CodeValidation {
				t.Errorf("code = %s, want %s", errors.GetCode(err), errors.CodeValidation)
			}
		})
	}
}

func TestWriteAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAttachment(rec, "Main nav.json", "application/json", []byte("[]"))

	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Main nav.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "2" {
		t.Errorf("Content-Length = %q", got)
	}
	if rec.Body.String() != "[]" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORS(CORSOptions{AllowedOrigins: []string{" http://localhost:5173 ", ""}})(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:5173", http.StatusTeapot, "http://localhost:5173"},
		{"other origin", http.MethodGet, "http://evil.test", http.StatusTeapot, ""},
		{"preflight", http.MethodOptions, "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/menus", nil)
			r.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow != "" && rec.Header().Get("Access-Control-Max-Age") != "600" {
				t.Errorf("Max-Age = %q", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestPgPredicates(t *testing.T) {
	unique := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})
	check := &pgconn.PgError{Code: "23514"}

	if !IsUniqueViolation(unique) || IsCheckViolation(unique) {
		t.Errorf("wrapped 23505 not classified as unique violation")
	}
	if !IsCheckViolation(check) || IsUniqueViolation(check) {
		t.Errorf("23514 not classified as check violation")
	}
	if IsUniqueViolation(fmt.Errorf("boom")) {
		t.Errorf("plain error classified as pg error")
	}
}
