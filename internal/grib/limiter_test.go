package grib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_RejectsBeyondCapacity(t *testing.T) {
	limiter := NewLimiter(2)

	release1, err := limiter.Acquire()
	require.NoError(t, err)
	release2, err := limiter.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 2, limiter.InUse())

	_, err = limiter.Acquire()
	assert.ErrorIs(t, err, ErrServerBusy)

	release1()
	assert.Equal(t, 1, limiter.InUse())

	release3, err := limiter.Acquire()
	require.NoError(t, err)

	release2()
	release3()
	assert.Equal(t, 0, limiter.InUse())
}

func TestLimiter_ReleaseIsIdempotent(t *testing.T) {
	limiter := NewLimiter(1)

	release, err := limiter.Acquire()
	require.NoError(t, err)

	release()
	release()
	release()
	assert.Equal(t, 0, limiter.InUse())

	// A double release must not free someone else's slot.
	_, err = limiter.Acquire()
	require.NoError(t, err)
	release()
	assert.Equal(t, 1, limiter.InUse())
}

func TestLimiter_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultMaxConcurrentParses, NewLimiter(0).Capacity())
	assert.Equal(t, DefaultMaxConcurrentParses, NewLimiter(-3).Capacity())
	assert.Equal(t, 5, NewLimiter(5).Capacity())
}
