// Package importer implements the staged bulk-migration engine: phase
// orchestration, bounded-concurrency batches, the per-entity import pipelines
// with dependency gating, the temporary-config swap protocol and the
// post-import reconciliation passes.
package importer

import (
	"fmt"
	"strconv"
)

// RecordState tags the engine-owned lifecycle of a source record.
type RecordState int

const (
	StatePending RecordState = iota
	StateImported
	StateSkipped
)

func (s RecordState) String() string {
	switch s {
	case StateImported:
		return "imported"
	case StateSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Record is one source entity: the raw export fields, read-only after load,
// plus the engine-owned state and the authoritative fields merged back after
// the forum accepts the entity.
type Record struct {
	ID     string
	Fields map[string]any

	state      RecordState
	targetID   int64
	skipReason string
	merged     map[string]any
}

// Imported reports whether the forum has durably accepted this record. It is
// monotonic: once true it never resets, and later stages must not re-create
// the entity.
func (r *Record) Imported() bool {
	return r.state == StateImported
}

func (r *Record) State() RecordState {
	return r.state
}

// TargetID is the forum-assigned identifier; zero until imported.
func (r *Record) TargetID() int64 {
	return r.targetID
}

func (r *Record) SkipReason() string {
	return r.skipReason
}

// MarkImported records the authoritative id and shallow-merges the given
// fields over anything merged so far. Raw source fields are left untouched;
// on key collision the authoritative value wins at read time.
func (r *Record) MarkImported(targetID int64, fields map[string]any) {
	r.state = StateImported
	r.targetID = targetID
	r.Merge(fields)
}

// Skip tags the record as not-imported for this run. Skips are never retried
// within the same run.
func (r *Record) Skip(reason string) {
	if r.state == StateImported {
		return
	}
	r.state = StateSkipped
	r.skipReason = reason
}

func (r *Record) Merge(fields map[string]any) {
	if r.merged == nil {
		r.merged = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		r.merged[k] = v
	}
}

// Value reads a field, preferring merged authoritative data over the raw
// source fields.
func (r *Record) Value(key string) any {
	if v, ok := r.merged[key]; ok {
		return v
	}
	return r.Fields[key]
}

func (r *Record) Str(key string) string {
	switch v := r.Value(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (r *Record) Int64(key string) int64 {
	switch v := r.Value(key).(type) {
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

func (r *Record) Float(key string) float64 {
	switch v := r.Value(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Bool treats absent fields, zero numbers, empty strings, "0" and "false" as
// false, everything else as true.
func (r *Record) Bool(key string) bool {
	switch v := r.Value(key).(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0" && v != "false"
	default:
		return true
	}
}

// Arena holds every record of one entity type, addressed by original id, plus
// the fixed processing order captured at load. Pipelines never add or remove
// ids, only mutate records in place.
type Arena struct {
	records map[string]*Record
	ids     []string
}

func NewArena() *Arena {
	return &Arena{records: make(map[string]*Record)}
}

func (a *Arena) Add(id string, fields map[string]any) *Record {
	if existing, ok := a.records[id]; ok {
		return existing
	}
	rec := &Record{ID: id, Fields: fields}
	a.records[id] = rec
	a.ids = append(a.ids, id)
	return rec
}

func (a *Arena) Get(id string) *Record {
	return a.records[id]
}

// IDs returns the processing order. Callers must not mutate it.
func (a *Arena) IDs() []string {
	return a.ids
}

func (a *Arena) Len() int {
	return len(a.ids)
}

// Dataset is the full in-memory import dataset, one arena per entity type.
type Dataset struct {
	Users      *Arena
	Categories *Arena
	Topics     *Arena
	Posts      *Arena
}

func NewDataset() *Dataset {
	return &Dataset{
		Users:      NewArena(),
		Categories: NewArena(),
		Topics:     NewArena(),
		Posts:      NewArena(),
	}
}
