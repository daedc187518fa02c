// Package api provides HTTP handlers for the Tabula API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/backend"
	"github.com/tabula-labs/tabula/internal/chaindata"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/store"
	"github.com/tabula-labs/tabula/internal/wallet"
)

// maxRequestBodySize bounds decoded JSON bodies (1MB).
const maxRequestBodySize = 1 << 20

// DAOBackend is the subset of the backend client the handlers use.
type DAOBackend interface {
	Delegations(ctx context.Context, address string) (domain.DelegationsData, error)
	RefreshDelegations(ctx context.Context, address string, holdings []domain.TokenHolding) (domain.DelegationsData, error)
	Updates(ctx context.Context, slugs []string, holdings []domain.TokenHolding) ([]domain.DaoUpdate, error)
	Subscribe(ctx context.Context, address string, prefs domain.NotificationPreferences) error
	Unsubscribe(ctx context.Context, address string) error
}

// SignerFactory opens a signer for a connected wallet. A nil signer with a
// nil error means the wallet is recorded but cannot sign.
type SignerFactory func(ctx context.Context, address common.Address) (wallet.Signer, error)

// Handler provides common handler utilities and dependencies.
type Handler struct {
	repo     store.Repository
	sessions *chat.Registry
	backend  DAOBackend
	holdings chaindata.Provider
	signers  SignerFactory
	logger   *slog.Logger
}

// NewHandler creates a new Handler with common dependencies. holdings and
// signers may be nil.
func NewHandler(repo store.Repository, sessions *chat.Registry, dao DAOBackend, holdings chaindata.Provider, signers SignerFactory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:     repo,
		sessions: sessions,
		backend:  dao,
		holdings: holdings,
		signers:  signers,
		logger:   logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a bounded request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseAddress validates a hex wallet address and returns it checksummed.
func parseAddress(raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// backendError maps a backend failure onto a response. 4xx statuses pass
// through; everything else is a bad gateway.
func (h *Handler) backendError(w http.ResponseWriter, op string, err error) {
	var se *backend.StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		h.logger.Warn("Backend rejected request", "op", op, "status", se.Status, "body", se.Body)
		Error(w, se.Status, se.Body)
		return
	}
	h.logger.Error("Backend request failed", "op", op, "error", err)
	Error(w, http.StatusBadGateway, "backend_unavailable")
}
