package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tabula-labs/tabula/internal/domain"
)

type memRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	lastSeen int
}

func newMemRepo() *memRepo { return &memRepo{users: map[string]*domain.User{}} }

func (m *memRepo) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *memRepo) UpdateLastSeen(_ context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen++
	if u, ok := m.users[id]; ok {
		u.LastSeenAt = t
	}
	return nil
}

func (m *memRepo) UpdateWallet(context.Context, string, string) error { return nil }

func (m *memRepo) GetUsersByWallet(context.Context, string) ([]*domain.User, error) {
	return nil, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

func (m *memRepo) Close() error { return nil }

func TestMiddlewareIssuesCookieAndCreatesUser(t *testing.T) {
	repo := newMemRepo()
	var gotUser, gotSession, gotName string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
		gotName = UsernameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set(SessionHeaderName, "tab-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !isValidAnonID(gotUser) {
		t.Fatalf("invalid user id %q", gotUser)
	}
	if gotSession != "tab-1" {
		t.Fatalf("session = %q, want tab-1", gotSession)
	}
	if gotName != deriveUsername(gotUser) {
		t.Fatalf("username = %q", gotName)
	}
	if _, ok := repo.users[gotUser]; !ok {
		t.Fatal("user was not created")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName || cookies[0].Value != gotUser {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	if cookies[0].Secure {
		t.Fatal("dev cookie should not be Secure")
	}
}

func TestMiddlewareReusesCookieAndRefreshesLastSeen(t *testing.T) {
	repo := newMemRepo()
	id := "anon_0123456789abcdef0123456789abcdef"
	repo.users[id] = &domain.User{UserID: id, Username: "anon-89abcdef", LastSeenAt: time.Now().Add(-time.Hour)}

	var gotUser string
	h := Middleware(repo, false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if gotUser != id {
		t.Fatalf("user = %q, want %q", gotUser, id)
	}
	if repo.lastSeen != 1 {
		t.Fatalf("UpdateLastSeen called %d times, want 1", repo.lastSeen)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                 DefaultSessionIDValue,
		"  tab-2 ":         "tab-2",
		"bad id!":          DefaultSessionIDValue,
		"a:b.c_d-e":        "a:b.c_d-e",
		"../../etc/passwd": DefaultSessionIDValue,
	}
	for in, want := range cases {
		if got := sanitizeSessionID(in); got != want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}
