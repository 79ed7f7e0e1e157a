// Package session holds the live state of one call and the directives the
// application sends back to the call platform.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/protocol"
)

// ErrInvalidTransition is returned for a state change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Sender writes one outbound frame to the platform. Implementations must be
// safe for concurrent use.
type Sender interface {
	SendJSON(v interface{}) error
}

// Transcript is one utterance reported by the agent.
type Transcript struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one active call. State, transcripts and the verb queue are
// owned by the goroutine delivering the call's notifications; Logger and
// SendToolOutput may be used from any goroutine.
type Session struct {
	CallSID string
	Path    string
	Logger  *slog.Logger

	state       domain.CallStatus
	transcripts []Transcript

	queue      []protocol.Verb
	newMsgID   string
	hookMsgIDs []string

	sender Sender

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session in the Created state.
func New(ctx context.Context, callSID, path string, sender Sender, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		CallSID:     callSID,
		Path:        path,
		Logger:      logger.With("call_sid", callSID),
		state:       domain.CallStatusCreated,
		transcripts: []Transcript{},
		sender:      sender,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the current lifecycle state.
func (s *Session) State() domain.CallStatus {
	return s.state
}

// Transition moves the session forward in its lifecycle:
// Created -> Configuring -> Active, and any live state -> Terminated.
func (s *Session) Transition(to domain.CallStatus) error {
	if !allowed(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	from := s.state
	s.state = to
	s.Logger.Info("session state changed", "from", from, "to", to)
	if to == domain.CallStatusTerminated {
		s.cancel()
	}
	return nil
}

// Terminate moves the session to Terminated. It reports false when the
// session had already ended.
func (s *Session) Terminate() bool {
	if s.state == domain.CallStatusTerminated {
		return false
	}
	_ = s.Transition(domain.CallStatusTerminated)
	return true
}

func allowed(from, to domain.CallStatus) bool {
	switch to {
	case domain.CallStatusConfiguring:
		return from == domain.CallStatusCreated
	case domain.CallStatusActive:
		return from == domain.CallStatusConfiguring
	case domain.CallStatusTerminated:
		return from != domain.CallStatusTerminated
	default:
		return false
	}
}

// AddTranscript appends an utterance.
func (s *Session) AddTranscript(t Transcript) {
	s.transcripts = append(s.transcripts, t)
}

// Transcripts returns a copy of the utterances seen so far.
func (s *Session) Transcripts() []Transcript {
	out := make([]Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

// Go runs fn on its own goroutine, tracked until Wait returns.
func (s *Session) Go(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close ends the session context without changing state.
func (s *Session) Close() {
	s.cancel()
}
