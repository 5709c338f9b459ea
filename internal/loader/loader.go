// Package loader reads a normalized export file into the in-memory dataset.
// The export format itself is produced upstream; this only maps its shape
// onto the arenas, preserving the file's insertion order as processing order.
package loader

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/iota-uz/forum-importer/internal/importer"
)

// export mirrors the top-level shape of a normalized export file: one object
// per entity type, keyed by original id. Records stay opaque field bags.
type export struct {
	Users      map[string]map[string]any `json:"users"`
	Categories map[string]map[string]any `json:"categories"`
	Topics     map[string]map[string]any `json:"topics"`
	Posts      map[string]map[string]any `json:"posts"`
}

// Load reads path into a Dataset.
func Load(path string) (*importer.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: read %q", path)
	}
	return Parse(raw)
}

// Parse decodes a normalized export document. The per-type id order follows
// the key order of the document.
func Parse(raw []byte) (*importer.Dataset, error) {
	var doc export
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "loader: parse export")
	}

	data := importer.NewDataset()
	for _, part := range []struct {
		arena   *importer.Arena
		section string
		records map[string]map[string]any
	}{
		{data.Users, "users", doc.Users},
		{data.Categories, "categories", doc.Categories},
		{data.Topics, "topics", doc.Topics},
		{data.Posts, "posts", doc.Posts},
	} {
		ids, err := sectionKeyOrder(raw, part.section)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			part.arena.Add(id, part.records[id])
		}
	}
	return data, nil
}

// sectionKeyOrder extracts the key order of one top-level section.
// encoding/json maps lose order, so the section is re-tokenized.
func sectionKeyOrder(raw []byte, section string) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errors.Wrap(err, "loader: parse export")
	}
	body, ok := top[section]
	if !ok {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrapf(err, "loader: section %q", section)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Errorf("loader: section %q is not an object", section)
	}

	var ids []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "loader: section %q", section)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.Errorf("loader: section %q has a non-string key", section)
		}
		ids = append(ids, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, errors.Wrapf(err, "loader: section %q record %q", section, key)
		}
	}
	return ids, nil
}
