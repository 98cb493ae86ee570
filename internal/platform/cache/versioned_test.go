package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestVersionedFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewVersioned(client, "summary", time.Minute)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "org", "1")
	require.NoError(t, err)
	require.Equal(t, "summary:org:1:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}

	var got map[string]int
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got["n"])
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got["n"])
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "org", "1")
	require.NoError(t, err)
	require.Equal(t, "summary:org:1:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, got["n"])
}

func TestVersionedWithoutClientCallsLoader(t *testing.T) {
	c := NewVersioned(nil, "summary", time.Minute)
	var got []int
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, got)
	require.NoError(t, c.Bump(context.Background()))
}
