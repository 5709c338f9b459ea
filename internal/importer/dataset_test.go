package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLifecycle(t *testing.T) {
	rec := &Record{ID: "u1", Fields: map[string]any{"_username": "alice"}}

	assert.Equal(t, StatePending, rec.State())
	assert.False(t, rec.Imported())
	assert.Zero(t, rec.TargetID())

	rec.MarkImported(42, map[string]any{"uid": int64(42)})
	assert.Equal(t, StateImported, rec.State())
	assert.True(t, rec.Imported())
	assert.Equal(t, int64(42), rec.TargetID())

	// imported is monotonic; a later skip must not demote
	rec.Skip("too late")
	assert.True(t, rec.Imported())
	assert.Empty(t, rec.SkipReason())
}

func TestRecordSkip(t *testing.T) {
	rec := &Record{ID: "t1"}
	rec.Skip("category not imported")

	assert.Equal(t, StateSkipped, rec.State())
	assert.False(t, rec.Imported())
	assert.Equal(t, "category not imported", rec.SkipReason())
}

func TestRecordMergePrecedence(t *testing.T) {
	rec := &Record{ID: "u1", Fields: map[string]any{
		"_username": "alice",
		"slug":      "raw-slug",
	}}

	// raw fields readable before any merge
	assert.Equal(t, "alice", rec.Str("_username"))
	assert.Equal(t, "raw-slug", rec.Str("slug"))

	rec.Merge(map[string]any{"slug": "authoritative-slug", "uid": int64(7)})

	// authoritative wins on collision; raw stays untouched underneath
	assert.Equal(t, "authoritative-slug", rec.Str("slug"))
	assert.Equal(t, int64(7), rec.Int64("uid"))
	assert.Equal(t, "raw-slug", rec.Fields["slug"])
}

func TestRecordAccessors(t *testing.T) {
	rec := &Record{ID: "x", Fields: map[string]any{
		"str":      "hello",
		"intish":   float64(12),
		"numstr":   "34",
		"floatstr": "2.5",
		"flagOn":   "1",
		"flagOff":  "0",
		"flagWord": "false",
	}}

	assert.Equal(t, "hello", rec.Str("str"))
	assert.Empty(t, rec.Str("absent"))
	assert.Equal(t, int64(12), rec.Int64("intish"))
	assert.Equal(t, int64(34), rec.Int64("numstr"))
	assert.Zero(t, rec.Int64("absent"))
	assert.InDelta(t, 2.5, rec.Float("floatstr"), 0.001)
	assert.True(t, rec.Bool("flagOn"))
	assert.False(t, rec.Bool("flagOff"))
	assert.False(t, rec.Bool("flagWord"))
	assert.False(t, rec.Bool("absent"))
}

func TestArenaOrderAndDuplicates(t *testing.T) {
	a := NewArena()
	a.Add("c", map[string]any{"n": 1})
	a.Add("a", map[string]any{"n": 2})
	a.Add("b", map[string]any{"n": 3})

	assert.Equal(t, []string{"c", "a", "b"}, a.IDs())
	assert.Equal(t, 3, a.Len())

	// duplicate ids keep the first record
	first := a.Get("a")
	again := a.Add("a", map[string]any{"n": 99})
	assert.Same(t, first, again)
	assert.Equal(t, 3, a.Len())

	require.Nil(t, a.Get("missing"))
}
