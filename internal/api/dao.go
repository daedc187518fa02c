package api

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/identity"
)

// DAOHandler proxies the DAO intelligence backend and the chain data
// provider.
type DAOHandler struct {
	*Handler
}

// NewDAOHandler creates a DAO handler.
func NewDAOHandler(base *Handler) *DAOHandler {
	return &DAOHandler{Handler: base}
}

// RegisterRoutes registers DAO routes.
func (h *DAOHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/delegations/{address}", h.GetDelegations)
	r.Post("/api/delegations/{address}", h.RefreshDelegations)
	r.Post("/api/updates", h.GetUpdates)
	r.Get("/api/holdings/{address}", h.GetHoldings)
	r.Post("/api/notifications/subscribe", h.Subscribe)
	r.Post("/api/notifications/unsubscribe/{address}", h.Unsubscribe)
}

func (h *DAOHandler) addressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	address, ok := parseAddress(chi.URLParam(r, "address"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid wallet address")
	}
	return address, ok
}

// GetDelegations returns the delegation overview of an address.
func (h *DAOHandler) GetDelegations(w http.ResponseWriter, r *http.Request) {
	address, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	data, err := h.backend.Delegations(r.Context(), address.Hex())
	if err != nil {
		h.backendError(w, "delegations", err)
		return
	}
	JSON(w, http.StatusOK, data)
}

type refreshRequest struct {
	TokenHoldings []domain.TokenHolding `json:"token_holdings"`
}

// RefreshDelegations recomputes delegations, reading holdings on chain when
// the body carries none.
func (h *DAOHandler) RefreshDelegations(w http.ResponseWriter, r *http.Request) {
	address, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	holdings := req.TokenHoldings
	if holdings == nil && h.holdings != nil {
		var err error
		if holdings, err = h.holdings.Holdings(r.Context(), address); err != nil {
			h.logger.Error("Failed to read holdings", "error", err, "address", address.Hex())
			Error(w, http.StatusBadGateway, "holdings_unavailable")
			return
		}
	}

	data, err := h.backend.RefreshDelegations(r.Context(), address.Hex(), holdings)
	if err != nil {
		h.backendError(w, "refresh_delegations", err)
		return
	}
	JSON(w, http.StatusOK, data)
}

type updatesRequest struct {
	Address       string                `json:"address,omitempty"`
	DaoSlugs      []string              `json:"dao_slugs"`
	TokenHoldings []domain.TokenHolding `json:"token_holdings"`
}

// GetUpdates returns prioritized governance updates. Missing slugs come
// from the address's delegations and missing holdings from chain data; the
// address defaults to the tab's connected wallet.
func (h *DAOHandler) GetUpdates(w http.ResponseWriter, r *http.Request) {
	var req updatesRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var address common.Address
	haveAddress := false
	if req.Address != "" {
		if address, haveAddress = parseAddress(req.Address); !haveAddress {
			Error(w, http.StatusBadRequest, "invalid wallet address")
			return
		}
	} else if s, ok := h.sessions.Lookup(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context())); ok {
		if signer := s.Signer(); signer != nil {
			address, haveAddress = signer.Address(), true
		}
	}

	slugs := req.DaoSlugs
	if slugs == nil && haveAddress {
		data, err := h.backend.Delegations(r.Context(), address.Hex())
		if err != nil {
			h.backendError(w, "delegations", err)
			return
		}
		slugs = data.Slugs()
	}

	holdings := req.TokenHoldings
	if holdings == nil && haveAddress && h.holdings != nil {
		var err error
		if holdings, err = h.holdings.Holdings(r.Context(), address); err != nil {
			h.logger.Error("Failed to read holdings", "error", err, "address", address.Hex())
			Error(w, http.StatusBadGateway, "holdings_unavailable")
			return
		}
	}

	updates, err := h.backend.Updates(r.Context(), slugs, holdings)
	if err != nil {
		h.backendError(w, "updates", err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"updates": updates})
}

// GetHoldings returns the governance token balances of an address.
func (h *DAOHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	address, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	if h.holdings == nil {
		Error(w, http.StatusServiceUnavailable, "holdings_disabled")
		return
	}
	holdings, err := h.holdings.Holdings(r.Context(), address)
	if err != nil {
		h.logger.Error("Failed to read holdings", "error", err, "address", address.Hex())
		Error(w, http.StatusBadGateway, "holdings_unavailable")
		return
	}
	if holdings == nil {
		holdings = []domain.TokenHolding{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"address":  address.Hex(),
		"holdings": holdings,
	})
}

// Subscribe registers notification preferences.
func (h *DAOHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.NotificationSubscription
	if err := decodeJSON(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	address, ok := parseAddress(req.Address)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid wallet address")
		return
	}
	if hook := req.Preferences.DiscordWebhookURL; hook != "" && !strings.HasPrefix(hook, "https://") {
		Error(w, http.StatusBadRequest, "discord webhook must be an https URL")
		return
	}

	if !h.requireWalletOwner(w, r, address) {
		return
	}

	if err := h.backend.Subscribe(r.Context(), address.Hex(), req.Preferences); err != nil {
		h.backendError(w, "subscribe", err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

// Unsubscribe removes notification preferences.
func (h *DAOHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	address, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	if !h.requireWalletOwner(w, r, address) {
		return
	}
	if err := h.backend.Unsubscribe(r.Context(), address.Hex()); err != nil {
		h.backendError(w, "unsubscribe", err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// requireWalletOwner answers 403 unless the device user last connected
// address.
func (h *DAOHandler) requireWalletOwner(w http.ResponseWriter, r *http.Request, address common.Address) bool {
	userID := identity.UserIDFromContext(r.Context())
	users, err := h.repo.GetUsersByWallet(r.Context(), address.Hex())
	if err != nil {
		h.logger.Error("Failed to look up wallet owners", "error", err, "address", address.Hex())
		Error(w, http.StatusInternalServerError, "failed to look up wallet")
		return false
	}
	for _, u := range users {
		if u.UserID == userID {
			return true
		}
	}
	Error(w, http.StatusForbidden, "wallet_not_connected")
	return false
}
