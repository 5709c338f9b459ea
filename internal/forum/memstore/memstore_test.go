package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/forum-importer/internal/forum"
)

func TestObjects(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SetObject(ctx, "user:1", map[string]any{"username": "alice", "uid": int64(1)}))
	require.NoError(t, s.SetObjectField(ctx, "user:1", "email", "alice@example.com"))

	obj, err := s.GetObject(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "alice", obj["username"])
	assert.Equal(t, "1", obj["uid"])
	assert.Equal(t, "alice@example.com", obj["email"])

	field, err := s.GetObjectField(ctx, "user:1", "username")
	require.NoError(t, err)
	assert.Equal(t, "alice", field)

	missing, err := s.GetObjectField(ctx, "user:1", "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, s.DeleteKey(ctx, "user:1"))
	obj, err = s.GetObject(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestIncrObjectField(t *testing.T) {
	ctx := context.Background()
	s := New()

	n, err := s.IncrObjectField(ctx, "global", "nextUid")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.SetObjectField(ctx, "global", "nextUid", 41))
	n, err = s.IncrObjectField(ctx, "global", "nextUid")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestSortedSetRanges(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SortedSetAdd(ctx, "set", 3, "c"))
	require.NoError(t, s.SortedSetAdd(ctx, "set", 1, "a"))
	require.NoError(t, s.SortedSetAdd(ctx, "set", 2, "b"))

	asc, err := s.SortedSetRange(ctx, "set", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, asc)

	desc, err := s.SortedSetRevRange(ctx, "set", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, desc)

	first, err := s.SortedSetRange(ctx, "set", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, first)

	card, err := s.SortedSetCard(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, int64(3), card)

	require.NoError(t, s.SortedSetRemove(ctx, "set", "b"))
	asc, err = s.SortedSetRange(ctx, "set", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, asc)

	// re-adding with a new score moves the member
	require.NoError(t, s.SortedSetAdd(ctx, "set", 0.5, "c"))
	asc, err = s.SortedSetRange(ctx, "set", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, asc)
}

func TestSortedSetRangeOutOfBounds(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SortedSetAdd(ctx, "set", 1, "a"))

	out, err := s.SortedSetRange(ctx, "set", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = s.SortedSetRange(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SetObjectField(ctx, "confirm:abc", "email", "a@example.com"))
	require.NoError(t, s.SetObjectField(ctx, "confirm:def", "email", "b@example.com"))
	require.NoError(t, s.SetObjectField(ctx, "email:a@example.com:confirm", "code", "x"))

	keys, err := s.Keys(ctx, "confirm:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"confirm:abc", "confirm:def"}, keys)

	keys, err = s.Keys(ctx, "email:*:confirm")
	require.NoError(t, err)
	assert.Equal(t, []string{"email:a@example.com:confirm"}, keys)
}

func TestKeysUnsupported(t *testing.T) {
	s := New()
	s.KeysUnsupported = true

	_, err := s.Keys(context.Background(), "confirm:*")
	assert.ErrorIs(t, err, forum.ErrKeysUnsupported)
}
