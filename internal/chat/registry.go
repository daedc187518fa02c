package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tabula-labs/tabula/internal/delegation"
	"github.com/tabula-labs/tabula/internal/wallet"
)

// Registry keeps sessions in memory, keyed by user and tab. Nothing
// survives a restart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	executor *delegation.Executor
	log      ConversationLogger
	logger   *slog.Logger
}

// NewRegistry creates an empty registry whose sessions share executor.
func NewRegistry(executor *delegation.Executor, log ConversationLogger, logger *slog.Logger) *Registry {
	if log == nil {
		log = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		executor: executor,
		log:      log,
		logger:   logger,
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Get returns the session for userID/sessionID, creating it on first use.
func (r *Registry) Get(userID, sessionID string) *Session {
	key := sessionKey(userID, sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		s.Touch()
		return s
	}
	s := NewSession(userID, sessionID, r.executor, r.log, r.logger)
	r.sessions[key] = s
	r.logger.Info("Chat session created", "user_id", userID, "session_id", sessionID)
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(userID, sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(userID, sessionID)]
	return s, ok
}

// Remove drops a session. The next Get starts a new transcript.
func (r *Registry) Remove(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(userID, sessionID))
}

// ForUser returns every session of userID.
func (r *Registry) ForUser(userID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expired is a session dropped by Sweep together with the signer detached
// from it. The caller owns Signer.
type Expired struct {
	Session *Session
	Signer  wallet.Signer
}

// Sweep removes sessions idle for longer than ttl and detaches their
// signers. Sessions with a command in flight are kept.
func (r *Registry) Sweep(ttl time.Duration) []Expired {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Expired
	for key, s := range r.sessions {
		if s.LastActive().After(cutoff) {
			continue
		}
		signer, err := s.SwapSigner(nil)
		if err != nil {
			continue
		}
		delete(r.sessions, key)
		expired = append(expired, Expired{Session: s, Signer: signer})
	}
	return expired
}
