package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 30*time.Second))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	clock = clock.Add(31 * time.Second)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLCacheNoExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 0))
	_, ok, _ := c.GetBytes(ctx, "k")
	assert.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()

	type payload struct {
		Symbol string  `json:"symbol"`
		Score  float64 `json:"score"`
	}
	require.NoError(t, SetJSON(ctx, c, "s:AAPL", payload{Symbol: "AAPL", Score: 0.4}, time.Minute))

	var got payload
	ok, err := GetJSON(ctx, c, "s:AAPL", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Symbol: "AAPL", Score: 0.4}, got)

	ok, err = GetJSON(ctx, c, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
