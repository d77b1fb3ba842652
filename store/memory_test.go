package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesphere/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrStoreNotFound)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	s.data["old"] = &entry{value: []byte("x"), expire: time.Now().Add(-time.Second)}
	_, err := s.Get(ctx, "old")
	assert.ErrorIs(t, err, core.ErrStoreNotFound)

	s.evictExpired()
	assert.NotContains(t, s.data, "old")

	require.NoError(t, s.Set(ctx, "fresh", []byte("y"), 60))
	got, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
}

func TestMemoryStore_Batch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.HSet(ctx, "meta", "rows", []byte("6")))
	require.NoError(t, s.HSet(ctx, "meta", "dim", []byte("6")))
	require.NoError(t, s.HSet(ctx, "metadata", "rows", []byte("9")))

	v, err := s.HGet(ctx, "meta", "rows")
	require.NoError(t, err)
	assert.Equal(t, "6", string(v))

	all, err := s.HGetAll(ctx, "meta")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.HGet(ctx, "meta", "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
