package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/command"
	"github.com/tabula-labs/tabula/internal/delegation"
	"github.com/tabula-labs/tabula/internal/wallet"
)

var (
	// ErrBusy is returned while a previous command is still in flight.
	ErrBusy = errors.New("command in progress")
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("message is required")
)

// Reply is the result of one Submit.
type Reply struct {
	// Messages holds every message appended by the call, user input first.
	Messages []Message
	// Command is true when the input matched the delegate command.
	Command bool
	// Outcome is set when the delegation was confirmed.
	Outcome *delegation.Outcome
	// Failure is set when the delegation failed.
	Failure *delegation.Error
}

// Session is the conversation state of one browser tab.
type Session struct {
	UserID string
	ID     string

	transcript *Transcript
	executor   *delegation.Executor
	log        ConversationLogger
	logger     *slog.Logger

	// mu guards the signer together with inFlight, so the signer cannot be
	// swapped while a command runs.
	mu         sync.RWMutex
	signer     wallet.Signer
	inFlight   bool
	phase      delegation.Phase
	lastActive time.Time
}

// NewSession creates a session with a freshly seeded transcript.
func NewSession(userID, sessionID string, executor *delegation.Executor, log ConversationLogger, logger *slog.Logger) *Session {
	if log == nil {
		log = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		UserID:     userID,
		ID:         sessionID,
		transcript: NewTranscript(),
		executor:   executor,
		log:        log,
		logger:     logger,
		lastActive: time.Now(),
	}
}

// Transcript returns the session transcript.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// SetSigner connects a wallet before the session is shared. Use SwapSigner
// once commands may be running.
func (s *Session) SetSigner(signer wallet.Signer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
}

// SwapSigner replaces the signer and returns the previous one, which the
// caller owns. It returns ErrBusy and changes nothing while a command is in
// flight. A nil next disconnects.
func (s *Session) SwapSigner(next wallet.Signer) (wallet.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, ErrBusy
	}
	prev := s.signer
	s.signer = next
	return prev, nil
}

// Signer returns the connected wallet, or nil.
func (s *Session) Signer() wallet.Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}

// Phase returns the phase of the in-flight command, or Idle.
func (s *Session) Phase() delegation.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// Busy reports whether a command is in flight.
func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.lastActive = time.Now()
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.phase = delegation.PhaseIdle
}

// Submit appends input as a user message and answers it. Unrecognized input
// gets the help text; a delegate command runs the delegation flow. The
// error is only ErrEmptyInput or ErrBusy; delegation failures are reported
// in the transcript and in Reply.Failure. Cancelling ctx does not abort a
// submitted transaction.
func (s *Session) Submit(ctx context.Context, input string) (Reply, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{}, ErrEmptyInput
	}
	if !s.begin() {
		return Reply{}, ErrBusy
	}
	defer s.end()

	start := s.transcript.Len()
	s.append(UserMessage(input), "chat_user_message", nil)

	req, ok := command.ParseDelegation(input)
	if !ok || s.executor == nil {
		s.append(AssistantMessage(command.HelpText), "chat_help_message", nil)
		return Reply{Messages: s.transcript.Since(start)}, nil
	}

	s.logger.Info("Delegation command received",
		"user_id", s.UserID,
		"session_id", s.ID,
		"amount", req.Amount,
		"token", req.TokenSymbol,
		"protocol", req.TargetProtocol,
	)
	ctx = context.WithoutCancel(ctx)
	signer := s.Signer()
	out, err := s.executor.Execute(ctx, signer, req.Amount, func(u delegation.Update) {
		s.setPhase(u.Phase)
		if u.Message == "" {
			return
		}
		meta := map[string]any{"phase": u.Phase.String()}
		if u.TxHash != (common.Hash{}) {
			meta["tx_hash"] = u.TxHash.Hex()
		}
		s.append(AssistantMessage(u.Message), "delegation_status", meta)
	})
	s.setPhase(delegation.PhaseIdle)

	reply := Reply{Command: true}
	if err != nil {
		var de *delegation.Error
		if !errors.As(err, &de) {
			de = &delegation.Error{Kind: delegation.KindChain, Phase: delegation.PhaseFailed, Err: err}
		}
		reply.Failure = de
		s.logger.Info("Delegation command failed",
			"user_id", s.UserID,
			"session_id", s.ID,
			"kind", de.Kind,
			"error", de.Err,
		)
	} else {
		reply.Outcome = &out
	}
	reply.Messages = s.transcript.Since(start)
	return reply, nil
}

func (s *Session) setPhase(p delegation.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) append(m Message, eventType string, meta map[string]any) {
	s.transcript.Append(m)

	direction := "inbound"
	if m.Role == RoleUser {
		direction = "outbound"
	}
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     s.UserID,
		SessionID:  s.ID,
		Channel:    "chat",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: m.Content,
		Content:    cleanForReadability(m.Content),
		Meta:       meta,
	})
}
