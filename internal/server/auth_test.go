package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidToken(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		want   bool
	}{
		{"correct token", "s3cret", "Bearer s3cret", true},
		{"wrong token", "s3cret", "Bearer nope", false},
		{"missing prefix", "s3cret", "s3cret", false},
		{"lowercase scheme", "s3cret", "bearer s3cret", false},
		{"empty header", "s3cret", "", false},
		{"empty secret rejects all", "", "Bearer anything", false},
		{"empty secret empty header", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validToken(tc.secret, tc.header); got != tc.want {
				t.Errorf("validToken(%q, %q) = %v", tc.secret, tc.header, got)
			}
		})
	}
}

func TestRequireTokenPassesThrough(t *testing.T) {
	called := false
	h := requireToken("s3cret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("next handler not invoked for a valid token")
	}
}

func TestRequireTokenRejects(t *testing.T) {
	h := requireToken("s3cret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler invoked without a valid token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}
