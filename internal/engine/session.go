package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"invoicer/internal/domain"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateGenerating
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateGenerating:
		return "generating"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// endMarkers are stripped from the tail of generated text.
var endMarkers = []string{"<|end|>", "</s>", "[END]"}

// Session owns one loaded backend and serves one generation at a time.
//
//	Uninitialized -> Ready -> (Generating <-> Ready) -> Released
//
// Released is terminal and only entered from Ready or Uninitialized. A Session
// is safe for concurrent use, but a second Generate while one is in flight
// fails with domain.ErrEngineBusy rather than queueing; use a Pool to wait for
// a free session.
type Session struct {
	backend Backend

	mu    sync.Mutex
	idle  *sync.Cond // signalled when a generation ends
	state State
}

// NewSession wraps backend in an uninitialized Session.
func NewSession(backend Backend) *Session {
	s := &Session{backend: backend}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Name returns the backend name.
func (s *Session) Name() string {
	return s.backend.Name()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize loads the backend. Calling it on a Ready session is a no-op.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		return nil
	case StateUninitialized:
	default:
		return newStateError("initialize", s.state)
	}

	if err := s.backend.Load(ctx); err != nil {
		return fmt.Errorf("engine.Session.Initialize: %s: %w", s.backend.Name(), err)
	}
	s.state = StateReady
	return nil
}

// Generate runs prompt through the backend and returns the trimmed output.
func (s *Session) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return "", newStateError("generate", state)
	}
	s.state = StateGenerating
	s.mu.Unlock()

	out, err := s.backend.Generate(ctx, prompt)

	s.mu.Lock()
	s.state = StateReady
	s.idle.Broadcast()
	s.mu.Unlock()

	if err != nil {
		return "", err
	}
	return trimEndMarkers(out), nil
}

// Close releases the backend. A generation in flight is allowed to finish
// first. Closing an already released session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.state == StateGenerating {
		s.idle.Wait()
	}
	if s.state == StateReleased {
		return nil
	}
	loaded := s.state != StateUninitialized
	s.state = StateReleased
	if !loaded {
		return nil
	}
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("engine.Session.Close: %s: %w", s.backend.Name(), err)
	}
	return nil
}

func trimEndMarkers(s string) string {
	s = strings.TrimSpace(s)
	for trimmed := true; trimmed; {
		trimmed = false
		for _, m := range endMarkers {
			if strings.HasSuffix(s, m) {
				s = strings.TrimSpace(strings.TrimSuffix(s, m))
				trimmed = true
			}
		}
	}
	return s
}
