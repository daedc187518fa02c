package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tabula-labs/tabula/internal/identity"
	"github.com/tabula-labs/tabula/internal/wallet"
)

// WalletHandler binds wallets to tab sessions.
type WalletHandler struct {
	*Handler
}

// NewWalletHandler creates a wallet handler.
func NewWalletHandler(base *Handler) *WalletHandler {
	return &WalletHandler{Handler: base}
}

// RegisterRoutes registers wallet routes.
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Post("/api/wallet/connect", h.Connect)
	r.Post("/api/wallet/disconnect", h.Disconnect)
}

type connectRequest struct {
	Address string `json:"address"`
}

// GetMe returns the device user and the wallet of the current tab.
func (h *WalletHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	session := h.sessions.Get(userID, identity.SessionIDFromContext(r.Context()))
	connected := ""
	if s := session.Signer(); s != nil {
		connected = s.Address().Hex()
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        user.UserID,
		"username":       user.Username,
		"wallet_address": user.WalletAddress,
		"session_wallet": connected,
	})
}

// Connect records the wallet on the device user and binds a signer to the
// tab session.
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	var req connectRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	address, ok := parseAddress(req.Address)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	session := h.sessions.Get(userID, sessionID)
	if session.Busy() {
		Error(w, http.StatusConflict, "command_in_progress")
		return
	}

	var signer wallet.Signer
	if h.signers != nil {
		var err error
		signer, err = h.signers(r.Context(), address)
		if err != nil {
			h.logger.Error("Failed to open signer", "error", err, "user_id", userID, "address", address.Hex())
			Error(w, http.StatusBadGateway, "wallet_unavailable")
			return
		}
	}

	// A command may have started during the dial.
	prev, err := session.SwapSigner(signer)
	if err != nil {
		wallet.Release(signer)
		Error(w, http.StatusConflict, "command_in_progress")
		return
	}
	if prev != signer {
		wallet.Release(prev)
	}

	if err := h.repo.UpdateWallet(r.Context(), userID, address.Hex()); err != nil {
		h.logger.Error("Failed to record wallet", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to record wallet")
		return
	}

	h.logger.Info("Wallet connected",
		"user_id", userID,
		"session_id", sessionID,
		"address", address.Hex(),
		"can_sign", signer != nil,
	)
	JSON(w, http.StatusOK, map[string]interface{}{
		"address":  address.Hex(),
		"can_sign": signer != nil,
	})
}

// Disconnect unbinds the tab's signer. The device user keeps the last
// wallet it connected.
func (h *WalletHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	session, ok := h.sessions.Lookup(userID, sessionID)
	if ok {
		prev, err := session.SwapSigner(nil)
		if err != nil {
			Error(w, http.StatusConflict, "command_in_progress")
			return
		}
		wallet.Release(prev)
	}

	h.logger.Info("Wallet disconnected", "user_id", userID, "session_id", sessionID)
	JSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
