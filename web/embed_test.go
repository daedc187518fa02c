package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSPAHandler(t *testing.T) {
	files := fstest.MapFS{
		"index.html":    {Data: []byte("<html>shell</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	}
	h := spaHandler(files)

	cases := []struct {
		path       string
		status     int
		bodyPrefix string
		cache      string
	}{
		{"/", http.StatusOK, "<html>shell", ""},
		{"/delegations/0xabc", http.StatusOK, "<html>shell", "no-cache"},
		{"/assets/app.js", http.StatusOK, "console.log", "public, max-age=31536000, immutable"},
		{"/api/unknown", http.StatusNotFound, `{"error"`, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.status)
		}
		if !strings.HasPrefix(rec.Body.String(), tc.bodyPrefix) {
			t.Errorf("%s: body = %q", tc.path, rec.Body.String())
		}
		if got := rec.Header().Get("Cache-Control"); got != tc.cache {
			t.Errorf("%s: Cache-Control = %q, want %q", tc.path, got, tc.cache)
		}
	}
}

func TestEmbeddedPlaceholder(t *testing.T) {
	rec := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
