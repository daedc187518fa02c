// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/tabula-labs/tabula/internal/domain"
)

// Repository defines the interface for persisting device users.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// UpdateWallet records the wallet a user connected. An empty address
	// clears it.
	UpdateWallet(ctx context.Context, userID string, address string) error

	// GetUsersByWallet lists the users that last connected address.
	GetUsersByWallet(ctx context.Context, address string) ([]*domain.User, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
