package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicer/internal/engine"
	"invoicer/mocks"
)

func loadedMock(name string) *mocks.MockBackend {
	b := newMockBackend(name)
	b.On("Load", mock.Anything).Return(nil)
	return b
}

func TestFallback_Name(t *testing.T) {
	f := engine.NewFallback([]engine.Backend{newMockBackend("claude"), newMockBackend("gemini")}, nil)
	assert.Equal(t, "claude>gemini", f.Name())
}

func TestFallback_FirstSucceeds(t *testing.T) {
	b1, b2 := loadedMock("claude"), loadedMock("gemini")
	b1.On("Generate", mock.Anything, "p").Return("[]", nil)

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	out, err := f.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	b2.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallback_FirstFails_SecondSucceeds(t *testing.T) {
	b1, b2 := loadedMock("claude"), loadedMock("gemini")
	b1.On("Generate", mock.Anything, "p").Return("", errors.New("generic error"))
	b2.On("Generate", mock.Anything, "p").Return("[1]", nil)

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	out, err := f.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "[1]", out)
}

func TestFallback_RateLimitOpensCircuit(t *testing.T) {
	b1, b2 := loadedMock("claude"), loadedMock("gemini")
	b1.On("Generate", mock.Anything, "p").Return("", engine.NewRateLimitError("claude", errors.New("429"), 60)).Once()
	b2.On("Generate", mock.Anything, "p").Return("[]", nil)

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	_, err := f.Generate(context.Background(), "p")
	require.NoError(t, err)

	// The open circuit keeps the first backend out of the second call.
	_, err = f.Generate(context.Background(), "p")
	require.NoError(t, err)

	b1.AssertNumberOfCalls(t, "Generate", 1)
	b2.AssertNumberOfCalls(t, "Generate", 2)
}

func TestFallback_AllRateLimited(t *testing.T) {
	b1, b2 := loadedMock("claude"), loadedMock("gemini")
	b1.On("Generate", mock.Anything, "p").Return("", engine.NewRateLimitError("claude", errors.New("429"), 60))
	b2.On("Generate", mock.Anything, "p").Return("", engine.NewRateLimitError("gemini", errors.New("429"), 30))

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	_, err := f.Generate(context.Background(), "p")

	require.Error(t, err)
	var rlErr *engine.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
	assert.LessOrEqual(t, rlErr.RetryAfter.Seconds(), float64(30))
	assert.Greater(t, rlErr.RetryAfter.Seconds(), float64(0))

	// Both circuits are open now; no backend is called.
	_, err = f.Generate(context.Background(), "p")
	assert.True(t, engine.IsRateLimited(err))
	b1.AssertNumberOfCalls(t, "Generate", 1)
	b2.AssertNumberOfCalls(t, "Generate", 1)
}

func TestFallback_RetryAfterRoundsUp(t *testing.T) {
	b1 := loadedMock("claude")
	b1.On("Generate", mock.Anything, "p").Return("", engine.NewRateLimitError("claude", errors.New("429"), 30))

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	f := engine.NewFallback([]engine.Backend{b1}, nil)
	f.SetClock(func() time.Time { return now })
	require.NoError(t, f.Load(context.Background()))

	_, err := f.Generate(context.Background(), "p")
	var rlErr *engine.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)

	now = start.Add(500 * time.Millisecond)
	_, err = f.Generate(context.Background(), "p")
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)

	now = start.Add(29*time.Second + 800*time.Millisecond)
	_, err = f.Generate(context.Background(), "p")
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, time.Second, rlErr.RetryAfter)
	b1.AssertNumberOfCalls(t, "Generate", 1)
}

func TestFallback_AllFailed(t *testing.T) {
	b1, b2 := loadedMock("claude"), loadedMock("gemini")
	b1.On("Generate", mock.Anything, "p").Return("", engine.NewRateLimitError("claude", errors.New("429"), 60))
	b2.On("Generate", mock.Anything, "p").Return("", errors.New("server error"))

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	_, err := f.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all backends failed")
	assert.Contains(t, err.Error(), "server error")
	assert.False(t, engine.IsRateLimited(err))
}

func TestFallback_LoadSkipsUnavailable(t *testing.T) {
	b1 := newMockBackend("claude")
	b1.On("Load", mock.Anything).Return(errors.New("claude api key is required"))
	b2 := loadedMock("gemini")
	b2.On("Generate", mock.Anything, "p").Return("[]", nil)
	b2.On("Close").Return(nil)

	f := engine.NewFallback([]engine.Backend{b1, b2}, nil)
	require.NoError(t, f.Load(context.Background()))

	_, err := f.Generate(context.Background(), "p")
	require.NoError(t, err)
	b1.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	require.NoError(t, f.Close())
	b1.AssertNotCalled(t, "Close")
	b2.AssertNumberOfCalls(t, "Close", 1)
}

func TestFallback_LoadFailsWhenNoneLoad(t *testing.T) {
	b1 := newMockBackend("claude")
	b1.On("Load", mock.Anything).Return(errors.New("a"))
	b2 := newMockBackend("gemini")
	b2.On("Load", mock.Anything).Return(errors.New("b"))

	err := engine.NewFallback([]engine.Backend{b1, b2}, nil).Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend could be loaded")
}
