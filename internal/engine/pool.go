package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"invoicer/internal/domain"
)

// Pool hands out a fixed set of sessions one request at a time. It implements
// port.TextGenerator. Callers waiting for a session give up when their context
// is done.
type Pool struct {
	sessions []*Session
	free     chan *Session
	logger   *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// PoolStatus summarizes the pool for status endpoints.
type PoolStatus struct {
	Backend  string         `json:"backend"`
	Sessions int            `json:"sessions"`
	Idle     int            `json:"idle"`
	States   map[string]int `json:"states"`
}

// NewPool creates a pool of n sessions, each wrapping a backend from newBackend.
func NewPool(n int, newBackend func() (Backend, error), logger *zap.Logger) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: pool size must be at least 1", domain.ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		sessions: make([]*Session, 0, n),
		free:     make(chan *Session, n),
		logger:   logger,
		closed:   make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		b, err := newBackend()
		if err != nil {
			return nil, fmt.Errorf("engine.NewPool: backend %d: %w", i, err)
		}
		s := NewSession(b)
		p.sessions = append(p.sessions, s)
		p.free <- s
	}
	return p, nil
}

// Initialize loads every session. It stops at the first failure.
func (p *Pool) Initialize(ctx context.Context) error {
	for i, s := range p.sessions {
		if err := s.Initialize(ctx); err != nil {
			return fmt.Errorf("engine.Pool.Initialize: session %d: %w", i, err)
		}
	}
	p.logger.Info("engine.Pool.Initialize: sessions ready",
		zap.Int("sessions", len(p.sessions)),
		zap.String("backend", p.sessions[0].Name()),
	)
	return nil
}

// Generate waits for a free session and runs prompt on it.
func (p *Pool) Generate(ctx context.Context, prompt string) (string, error) {
	var s *Session
	select {
	case <-p.closed:
		return "", &StateError{Op: "generate", State: StateReleased, Err: domain.ErrEngineReleased}
	case <-ctx.Done():
		return "", fmt.Errorf("engine.Pool.Generate: waiting for session: %w", ctx.Err())
	case s = <-p.free:
	}
	defer func() { p.free <- s }()

	out, err := s.Generate(ctx, prompt)
	if err != nil {
		var stErr *StateError
		if !errors.As(err, &stErr) {
			p.logger.Warn("engine.Pool.Generate: generation failed",
				zap.String("backend", s.Name()),
				zap.Error(err),
			)
		}
		return "", err
	}
	return out, nil
}

// Ready reports whether at least one session is Ready or Generating.
func (p *Pool) Ready() bool {
	for _, s := range p.sessions {
		switch s.State() {
		case StateReady, StateGenerating:
			return true
		}
	}
	return false
}

// Status returns a snapshot of session states.
func (p *Pool) Status() PoolStatus {
	st := PoolStatus{
		Backend:  p.sessions[0].Name(),
		Sessions: len(p.sessions),
		Idle:     len(p.free),
		States:   make(map[string]int),
	}
	for _, s := range p.sessions {
		st.States[s.State().String()]++
	}
	return st
}

// Close releases every session, waiting for generations in flight. Generate
// calls after Close fail with domain.ErrEngineReleased.
func (p *Pool) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.closed)
		for _, s := range p.sessions {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
