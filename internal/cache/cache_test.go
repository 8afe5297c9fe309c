package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Callers cannot mutate stored values.
	got[0] = 'x'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(time.Minute)
	_, err := m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemory_SweepsExpiredOnSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	m.sweepAt = 2

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Second))
	now = now.Add(time.Hour)
	require.NoError(t, m.Set(ctx, "c", []byte("3"), time.Second))

	assert.Equal(t, 1, m.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type report struct {
		City string  `json:"city"`
		Temp float64 `json:"temp"`
	}
	require.NoError(t, SetJSON(ctx, m, "weather:pune", report{City: "Pune", Temp: 31.5}, time.Minute))

	var got report
	require.NoError(t, GetJSON(ctx, m, "weather:pune", &got))
	assert.Equal(t, report{City: "Pune", Temp: 31.5}, got)

	assert.ErrorIs(t, GetJSON(ctx, m, "missing", &got), ErrMiss)

	require.NoError(t, m.Set(ctx, "broken", []byte("{"), time.Minute))
	assert.Error(t, GetJSON(ctx, m, "broken", &got))
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &Memory{}, c)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("EDUFARMA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EDUFARMA_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RedisAddr = addr
	cfg.KeyPrefix = "edufarma-test:"

	r, err := NewRedis(ctx, cfg)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
