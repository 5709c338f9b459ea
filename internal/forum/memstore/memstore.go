// Package memstore provides an in-memory implementation of the forum Store
// contract, used by tests and dry runs.
package memstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"

	"github.com/iota-uz/forum-importer/internal/forum"
)

type member struct {
	id    string
	score float64
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]map[string]string
	sets    map[string]map[string]float64

	// KeysUnsupported simulates storage backends without key-pattern
	// enumeration.
	KeysUnsupported bool
}

var _ forum.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		objects: make(map[string]map[string]string),
		sets:    make(map[string]map[string]float64),
	}
}

func (s *Store) GetObject(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetObject(_ context.Context, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.objects[key]
	if obj == nil {
		obj = make(map[string]string, len(fields))
		s.objects[key] = obj
	}
	for k, v := range fields {
		obj[k] = stringify(v)
	}
	return nil
}

func (s *Store) GetObjectField(_ context.Context, key, field string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key][field], nil
}

func (s *Store) SetObjectField(_ context.Context, key, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.objects[key]
	if obj == nil {
		obj = make(map[string]string, 1)
		s.objects[key] = obj
	}
	obj[field] = stringify(value)
	return nil
}

func (s *Store) IncrObjectField(_ context.Context, key, field string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.objects[key]
	if obj == nil {
		obj = make(map[string]string, 1)
		s.objects[key] = obj
	}
	n, _ := strconv.ParseInt(obj[field], 10, 64)
	n++
	obj[field] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *Store) DeleteKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.sets, key)
	return nil
}

func (s *Store) SortedSetAdd(_ context.Context, key string, score float64, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	if set == nil {
		set = make(map[string]float64)
		s.sets[key] = set
	}
	set[memberID] = score
	return nil
}

func (s *Store) SortedSetRemove(_ context.Context, key string, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[key], memberID)
	return nil
}

func (s *Store) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.rangeMembers(key, start, stop, false)
}

func (s *Store) SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.rangeMembers(key, start, stop, true)
}

func (s *Store) SortedSetCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	if s.KeysUnsupported {
		return nil, forum.ErrKeysUnsupported
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.objects {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	for key := range s.sets {
		if _, isObject := s.objects[key]; isObject {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) rangeMembers(key string, start, stop int64, reverse bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	members := make([]member, 0, len(set))
	for id, score := range set {
		members = append(members, member{id: id, score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].score == members[j].score {
			if reverse {
				return members[i].id > members[j].id
			}
			return members[i].id < members[j].id
		}
		if reverse {
			return members[i].score > members[j].score
		}
		return members[i].score < members[j].score
	})

	n := int64(len(members))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]string, 0, stop-start+1)
	for _, m := range members[start : stop+1] {
		out = append(out, m.id)
	}
	return out, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
