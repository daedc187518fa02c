package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/shared"
	_ "modernc.org/sqlite"
)

// ErrUserNotFound is returned by updates that matched no user.
var ErrUserNotFound = errors.New("user not found")

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	walletMu sync.Mutex // serializes wallet writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		wallet_address TEXT,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address) WHERE wallet_address IS NOT NULL;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var wallet sql.NullString
	var lastSeen, createdAt, updatedAt int64

	if err := row.Scan(
		&user.UserID, &user.Username, &wallet,
		&lastSeen, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	user.WalletAddress = wallet.String
	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, wallet_address,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// UpsertUser creates or updates a user record. An existing wallet address is
// kept when user.WalletAddress is empty.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, wallet_address, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		wallet_address = COALESCE(excluded.wallet_address, users.wallet_address),
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	var wallet any
	if user.WalletAddress != "" {
		wallet = user.WalletAddress
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, wallet,
		user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// UpdateWallet records the connected wallet for a user.
// Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) UpdateWallet(ctx context.Context, userID string, address string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.updateWalletOnce(ctx, userID, address)
		if err == nil || errors.Is(err, ErrUserNotFound) {
			return err
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("UpdateWallet failed with SQLITE_BUSY, retrying",
				"user_id", userID,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return fmt.Errorf("failed to update wallet for %s after %d attempts: %w", userID, i+1, err)
	}

	return nil
}

func (s *SQLiteStore) updateWalletOnce(ctx context.Context, userID string, address string) error {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()

	var wallet any
	if address = strings.TrimSpace(address); address != "" {
		wallet = address
	}

	query := `UPDATE users SET wallet_address = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, wallet, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update wallet_address: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUsersByWallet lists the users that last connected address,
// case-insensitively.
func (s *SQLiteStore) GetUsersByWallet(ctx context.Context, address string) ([]*domain.User, error) {
	query := `
		SELECT user_id, username, wallet_address,
		       last_seen_at, created_at, updated_at
		FROM users WHERE lower(wallet_address) = lower(?)
		ORDER BY last_seen_at DESC`

	rows, err := s.db.QueryContext(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query users by wallet: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close users rows", "error", closeErr)
		}
	}()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
