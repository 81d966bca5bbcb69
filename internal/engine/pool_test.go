package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicer/internal/domain"
	"invoicer/internal/engine"
	"invoicer/mocks"
)

func TestNewPool_InvalidSize(t *testing.T) {
	_, err := engine.NewPool(0, func() (engine.Backend, error) { return newMockBackend("x"), nil }, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestNewPool_BackendFactoryError(t *testing.T) {
	_, err := engine.NewPool(2, func() (engine.Backend, error) { return nil, errors.New("no provider") }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider")
}

func TestPool_GenerateAndStatus(t *testing.T) {
	var backends []*mocks.MockBackend
	p, err := engine.NewPool(2, func() (engine.Backend, error) {
		b := newMockBackend("claude")
		b.On("Load", mock.Anything).Return(nil)
		b.On("Generate", mock.Anything, mock.Anything).Return("[] [END]", nil).Maybe()
		b.On("Close").Return(nil)
		backends = append(backends, b)
		return b, nil
	}, nil)
	require.NoError(t, err)

	assert.False(t, p.Ready())
	st := p.Status()
	assert.Equal(t, 2, st.States["uninitialized"])

	require.NoError(t, p.Initialize(context.Background()))
	assert.True(t, p.Ready())

	out, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	st = p.Status()
	assert.Equal(t, "claude", st.Backend)
	assert.Equal(t, 2, st.Sessions)
	assert.Equal(t, 2, st.Idle)
	assert.Equal(t, 2, st.States["ready"])

	require.NoError(t, p.Close())
	for _, b := range backends {
		b.AssertNumberOfCalls(t, "Close", 1)
	}
}

func TestPool_InitializeFailure(t *testing.T) {
	p, err := engine.NewPool(1, func() (engine.Backend, error) {
		b := newMockBackend("openai")
		b.On("Load", mock.Anything).Return(errors.New("openai api key is required"))
		return b, nil
	}, nil)
	require.NoError(t, err)

	err = p.Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api key is required")
	assert.False(t, p.Ready())

	_, err = p.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, domain.ErrEngineNotReady))
}

func TestPool_WaitHonoursContext(t *testing.T) {
	b := newBlockingBackend("slow")
	p, err := engine.NewPool(1, func() (engine.Backend, error) { return b, nil }, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := p.Generate(context.Background(), "first")
		done <- err
	}()
	<-b.started
	assert.Equal(t, 0, p.Status().Idle)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(b.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.Status().Idle)
}

func TestPool_GenerateAfterClose(t *testing.T) {
	p, err := engine.NewPool(1, func() (engine.Backend, error) {
		b := newMockBackend("claude")
		b.On("Load", mock.Anything).Return(nil)
		b.On("Close").Return(nil)
		return b, nil
	}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, domain.ErrEngineReleased))
	assert.False(t, p.Ready())
	assert.Equal(t, 1, p.Status().States["released"])
}
