package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// circuitState tracks rate-limit backoff for a single backend.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries backends in order, skipping those with open circuits or that
// failed to load. It implements Backend.
type Fallback struct {
	backends []Backend
	circuits []*circuitState
	loaded   []bool
	logger   *zap.Logger
	now      func() time.Time
}

// NewFallback creates a Fallback from an ordered list of backends.
func NewFallback(backends []Backend, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	circuits := make([]*circuitState, len(backends))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Fallback{
		backends: backends,
		circuits: circuits,
		loaded:   make([]bool, len(backends)),
		logger:   logger,
		now:      time.Now,
	}
}

// Name joins the backend names, e.g. "claude>gemini".
func (f *Fallback) Name() string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, ">")
}

// Load loads every backend. It fails only when none could be loaded.
func (f *Fallback) Load(ctx context.Context) error {
	var errs []error
	for i, b := range f.backends {
		if err := b.Load(ctx); err != nil {
			f.logger.Warn("engine.Fallback.Load: backend unavailable",
				zap.String("backend", b.Name()),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		f.loaded[i] = true
	}
	if len(errs) == len(f.backends) {
		return fmt.Errorf("no backend could be loaded: %w", errors.Join(errs...))
	}
	return nil
}

func (f *Fallback) Generate(ctx context.Context, prompt string) (string, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, b := range f.backends {
		if !f.loaded[i] {
			continue
		}
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.logger.Debug("engine.Fallback.Generate: skipping backend",
				zap.String("backend", b.Name()),
				zap.Time("circuit_open_until", resetAt),
			)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := b.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}

		f.logger.Warn("engine.Fallback.Generate: backend failed",
			zap.String("backend", b.Name()),
			zap.Error(err),
		)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		// Every candidate was skipped or rate limited.
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return "", NewRateLimitError("all", fmt.Errorf("all backends rate limited"), int(math.Ceil(retryAfter.Seconds())))
	}

	return "", fmt.Errorf("all backends failed: %w", lastErr)
}

// Close closes every loaded backend.
func (f *Fallback) Close() error {
	var errs []error
	for i, b := range f.backends {
		if !f.loaded[i] {
			continue
		}
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
		f.loaded[i] = false
	}
	return errors.Join(errs...)
}
