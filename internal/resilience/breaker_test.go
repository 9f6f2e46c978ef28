package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("jina", 2, time.Minute)
	boom := errors.New("boom")
	fail := func(context.Context) (int, error) { return 0, boom }

	_, err := Call(context.Background(), b, nil, fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateClosed, b.State())

	_, _ = Call(context.Background(), b, nil, fail)
	assert.Equal(t, StateOpen, b.State())

	_, err = Call(context.Background(), b, nil, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker("jina", 1, time.Second)
	b.now = func() time.Time { return now }

	b.Failure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	b.Failure()
	assert.Equal(t, StateOpen, b.State())

	now = now.Add(2 * time.Second)
	v, err := Call(context.Background(), b, nil, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_TripOnFilter(t *testing.T) {
	b := NewBreaker("jina", 1, time.Minute)
	notFound := errors.New("404")
	_, _ = Call(context.Background(), b, func(err error) bool { return !errors.Is(err, notFound) },
		func(context.Context) (int, error) { return 0, notFound })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
