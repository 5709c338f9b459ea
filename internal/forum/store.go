// Package forum declares the contracts of the target forum system the
// migration engine writes into. The engine depends only on these interfaces;
// the concrete forum (its storage, validation and indexing) lives behind them.
package forum

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// ErrKeysUnsupported is returned by Store.Keys when the backing storage
// cannot enumerate keys by pattern. Callers must treat dependent cleanup
// steps as best-effort and skip them.
var ErrKeysUnsupported = errors.New("forum: key-pattern enumeration unsupported by storage backend")

// Store is the target forum's database contract: hash objects addressed by
// key, sorted sets for ordering, and global counters kept as fields on the
// "global" object.
type Store interface {
	GetObject(ctx context.Context, key string) (map[string]string, error)
	SetObject(ctx context.Context, key string, fields map[string]any) error
	GetObjectField(ctx context.Context, key, field string) (string, error)
	SetObjectField(ctx context.Context, key, field string, value any) error
	IncrObjectField(ctx context.Context, key, field string) (int64, error)
	DeleteKey(ctx context.Context, key string) error

	SortedSetAdd(ctx context.Context, key string, score float64, member string) error
	SortedSetRemove(ctx context.Context, key string, member string) error
	// SortedSetRange returns members ordered by ascending score, inclusive
	// bounds, -1 meaning the last element.
	SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	SortedSetCard(ctx context.Context, key string) (int64, error)

	// Keys enumerates keys matching a glob pattern. May return
	// ErrKeysUnsupported.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Object is an entity record as returned by the forum after creation. Field
// values are whatever the forum assigned (ids, slugs, computed timestamps).
type Object map[string]any

func (o Object) Int64(key string) int64 {
	switch v := o[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func (o Object) Str(key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
