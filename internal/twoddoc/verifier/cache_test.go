package verifier

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	key   *ecdsa.PublicKey
	err   error
	calls int
}

func (r *countingResolver) ResolveKey(context.Context, string, string) (*ecdsa.PublicKey, error) {
	r.calls++
	return r.key, r.err
}

func TestCachingResolver(t *testing.T) {
	ctx := context.Background()
	next := &countingResolver{key: DefaultKey()}
	cache := NewCachingResolver(next, time.Minute)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		key, err := cache.ResolveKey(ctx, "FR05", "FR05")
		require.NoError(t, err)
		assert.Same(t, DefaultKey(), key)
	}
	assert.Equal(t, 1, next.calls)

	// other certificate has its own entry
	_, err := cache.ResolveKey(ctx, "FR05", "FR06")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	now = now.Add(2 * time.Minute)
	_, err = cache.ResolveKey(ctx, "FR05", "FR05")
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)

	cache.Invalidate()
	_, err = cache.ResolveKey(ctx, "FR05", "FR05")
	require.NoError(t, err)
	assert.Equal(t, 4, next.calls)
}

func TestCachingResolver_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingResolver{err: errors.New("db down")}
	cache := NewCachingResolver(next, time.Minute)

	_, err := cache.ResolveKey(ctx, "FR05", "FR05")
	require.Error(t, err)
	_, err = cache.ResolveKey(ctx, "FR05", "FR05")
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}
