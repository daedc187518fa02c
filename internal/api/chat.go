package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/identity"
)

// ChatHandler serves the command transcript of a tab.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/chat", h.GetTranscript)
	r.Post("/api/chat", h.PostMessage)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Messages  []chat.Message `json:"messages"`
	Command   bool           `json:"command"`
	Status    string         `json:"status,omitempty"`
	TxHash    string         `json:"tx_hash,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

// GetTranscript returns the full transcript and whether input is disabled.
func (h *ChatHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Get(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))

	connected := ""
	if s := session.Signer(); s != nil {
		connected = s.Address().Hex()
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"messages": session.Transcript().Messages(),
		"busy":     session.Busy(),
		"phase":    session.Phase().String(),
		"wallet":   connected,
	})
}

// PostMessage submits one chat input and returns the messages it appended.
// It answers 409 while a previous command is still running.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	session := h.sessions.Get(userID, sessionID)
	reply, err := session.Submit(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrBusy):
		h.logger.Warn("Command already in progress", "user_id", userID, "session_id", sessionID)
		Error(w, http.StatusConflict, "command_in_progress")
		return
	case errors.Is(err, chat.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "message is required")
		return
	case err != nil:
		h.logger.Error("Chat submit failed", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "chat_failed")
		return
	}

	resp := chatResponse{Messages: reply.Messages, Command: reply.Command}
	switch {
	case reply.Outcome != nil:
		resp.Status = "confirmed"
		resp.TxHash = reply.Outcome.TxHash.Hex()
	case reply.Failure != nil:
		resp.Status = "failed"
		resp.ErrorKind = string(reply.Failure.Kind)
	}
	JSON(w, http.StatusOK, resp)
}
