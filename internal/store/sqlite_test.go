package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tabula-labs/tabula/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "tabula.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo Repository, id string) {
	t.Helper()
	now := time.Now()
	if err := repo.UpsertUser(context.Background(), &domain.User{
		UserID:     id,
		Username:   "anon-" + id,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
}

func TestGetUserMissing(t *testing.T) {
	repo := newTestStore(t)
	user, err := repo.GetUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestUpdateWalletRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	seedUser(t, repo, "u1")

	if err := repo.UpdateWallet(ctx, "u1", "0xAbC0000000000000000000000000000000000001"); err != nil {
		t.Fatalf("UpdateWallet failed: %v", err)
	}

	user, err := repo.GetUser(ctx, "u1")
	if err != nil || user == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !user.HasWallet() || user.WalletAddress != "0xAbC0000000000000000000000000000000000001" {
		t.Fatalf("unexpected wallet %q", user.WalletAddress)
	}

	// A later upsert without a wallet keeps it.
	seedUser(t, repo, "u1")
	user, _ = repo.GetUser(ctx, "u1")
	if !user.HasWallet() {
		t.Fatal("upsert cleared wallet")
	}

	users, err := repo.GetUsersByWallet(ctx, "0xabc0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("GetUsersByWallet failed: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "u1" {
		t.Fatalf("unexpected users %+v", users)
	}

	if err := repo.UpdateWallet(ctx, "u1", ""); err != nil {
		t.Fatalf("clear wallet failed: %v", err)
	}
	user, _ = repo.GetUser(ctx, "u1")
	if user.HasWallet() {
		t.Fatal("wallet not cleared")
	}
}

func TestUpdateWalletUnknownUser(t *testing.T) {
	repo := newTestStore(t)
	err := repo.UpdateWallet(context.Background(), "ghost", "0x1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	seedUser(t, repo, "u1")

	seen := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := repo.UpdateLastSeen(ctx, "u1", seen); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}
	user, _ := repo.GetUser(ctx, "u1")
	if !user.LastSeenAt.Equal(seen) {
		t.Fatalf("LastSeenAt = %v, want %v", user.LastSeenAt, seen)
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
