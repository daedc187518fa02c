package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins, "X-Tabula-Session-ID")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSExplicitOrigin(t *testing.T) {
	rec := serveCORS([]string{"http://localhost:3000"}, http.MethodGet, "http://localhost:3000")

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Allow-Credentials = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Tabula-Session-ID" {
		t.Fatalf("Allow-Headers = %q", got)
	}
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	rec := serveCORS([]string{"*"}, http.MethodGet, "http://evil.example")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://evil.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard must not allow credentials, got %q", got)
	}
}

func TestCORSUnknownOriginAndPreflight(t *testing.T) {
	rec := serveCORS([]string{"http://localhost:3000"}, http.MethodOptions, "http://other.example")

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected Allow-Origin %q", got)
	}
}
