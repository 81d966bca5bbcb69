package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicer/internal/domain"
	"invoicer/internal/engine"
	"invoicer/mocks"
)

func newMockBackend(name string) *mocks.MockBackend {
	b := new(mocks.MockBackend)
	b.On("Name").Return(name).Maybe()
	return b
}

func TestSession_GenerateBeforeInitialize(t *testing.T) {
	b := newMockBackend("claude")
	s := engine.NewSession(b)

	_, err := s.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEngineNotReady))
	var stErr *engine.StateError
	require.True(t, errors.As(err, &stErr))
	assert.Equal(t, engine.StateUninitialized, stErr.State)
	b.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSession_InitializeAndGenerate(t *testing.T) {
	b := newMockBackend("claude")
	b.On("Load", mock.Anything).Return(nil).Once()
	b.On("Generate", mock.Anything, "hello").Return("  [{\"action\":\"unknown\"}] <|end|>\n", nil).Once()
	s := engine.NewSession(b)

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, engine.StateReady, s.State())

	// Second Initialize on a Ready session is a no-op.
	require.NoError(t, s.Initialize(context.Background()))

	out, err := s.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `[{"action":"unknown"}]`, out)
	assert.Equal(t, engine.StateReady, s.State())
	b.AssertNumberOfCalls(t, "Load", 1)
}

func TestSession_InitializeLoadFailure(t *testing.T) {
	b := newMockBackend("gemini")
	b.On("Load", mock.Anything).Return(errors.New("missing api key")).Once()
	s := engine.NewSession(b)

	err := s.Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
	assert.Equal(t, engine.StateUninitialized, s.State())
}

func TestSession_GenerateBlankPrompt(t *testing.T) {
	b := newMockBackend("claude")
	b.On("Load", mock.Anything).Return(nil)
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Generate(context.Background(), "  ")

	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	b.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSession_GenerateErrorReturnsToReady(t *testing.T) {
	b := newMockBackend("claude")
	b.On("Load", mock.Anything).Return(nil)
	b.On("Generate", mock.Anything, "p").Return("", errors.New("boom")).Once()
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Generate(context.Background(), "p")

	assert.EqualError(t, err, "boom")
	assert.Equal(t, engine.StateReady, s.State())
}

func TestSession_BusyWhileGenerating(t *testing.T) {
	b := newBlockingBackend("slow")
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "first")
		done <- err
	}()
	<-b.started

	_, err := s.Generate(context.Background(), "second")
	assert.True(t, errors.Is(err, domain.ErrEngineBusy))
	assert.Equal(t, engine.StateGenerating, s.State())

	close(b.release)
	require.NoError(t, <-done)
	assert.Equal(t, engine.StateReady, s.State())
}

func TestSession_Close(t *testing.T) {
	b := newMockBackend("claude")
	b.On("Load", mock.Anything).Return(nil)
	b.On("Close").Return(nil).Once()
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, engine.StateReleased, s.State())
	b.AssertNumberOfCalls(t, "Close", 1)

	_, err := s.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, domain.ErrEngineReleased))

	err = s.Initialize(context.Background())
	assert.True(t, errors.Is(err, domain.ErrEngineReleased))
}

func TestSession_CloseWaitsForGeneration(t *testing.T) {
	b := newBlockingBackend("slow")
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	generated := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "first")
		generated <- err
	}()
	<-b.started

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a generation was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, engine.StateGenerating, s.State())

	close(b.release)
	require.NoError(t, <-generated)
	require.NoError(t, <-closed)
	assert.Equal(t, engine.StateReleased, s.State())
	assert.True(t, b.closed.Load())
	assert.False(t, b.closedDuringGenerate.Load())
}

func TestSession_CloseUninitializedSkipsBackend(t *testing.T) {
	b := newMockBackend("claude")
	s := engine.NewSession(b)

	require.NoError(t, s.Close())
	assert.Equal(t, engine.StateReleased, s.State())
	b.AssertNotCalled(t, "Close")
}

func TestSession_TrimsStackedEndMarkers(t *testing.T) {
	b := newMockBackend("claude")
	b.On("Load", mock.Anything).Return(nil)
	b.On("Generate", mock.Anything, "p").Return("[]</s> [END]\n<|end|>", nil)
	s := engine.NewSession(b)
	require.NoError(t, s.Initialize(context.Background()))

	out, err := s.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", engine.StateUninitialized.String())
	assert.Equal(t, "ready", engine.StateReady.String())
	assert.Equal(t, "generating", engine.StateGenerating.String())
	assert.Equal(t, "released", engine.StateReleased.String())
	assert.Equal(t, "State(9)", engine.State(9).String())
}

// blockingBackend holds each Generate call until release is closed and records
// whether Close overlapped a generation.
type blockingBackend struct {
	name    string
	started chan struct{}
	release chan struct{}

	generating           atomic.Bool
	closed               atomic.Bool
	closedDuringGenerate atomic.Bool
}

func newBlockingBackend(name string) *blockingBackend {
	return &blockingBackend{name: name, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingBackend) Name() string { return b.name }

func (b *blockingBackend) Load(ctx context.Context) error { return nil }

func (b *blockingBackend) Close() error {
	if b.generating.Load() {
		b.closedDuringGenerate.Store(true)
	}
	b.closed.Store(true)
	return nil
}

func (b *blockingBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.generating.Store(true)
	defer b.generating.Store(false)
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return "[]", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
