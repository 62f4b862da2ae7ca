package ratelimiter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/pkg/ratelimiter"
)

func TestKeyedLimiter(t *testing.T) {
	limiter := ratelimiter.New(1, 2)
	require.NotNil(t, limiter)

	require.True(t, limiter.Allow("key-a"))
	require.True(t, limiter.Allow("key-a"))
	require.False(t, limiter.Allow("key-a"))

	// Independent bucket per key.
	require.True(t, limiter.Allow("key-b"))

	// Empty keys and nil limiters allow everything.
	require.True(t, limiter.Allow(""))
	var nilLimiter *ratelimiter.KeyedLimiter
	require.True(t, nilLimiter.Allow("key-a"))

	require.Nil(t, ratelimiter.New(0, 1))
	require.Nil(t, ratelimiter.New(1, 0))
}
