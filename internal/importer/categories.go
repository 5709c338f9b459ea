package importer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/iota-uz/forum-importer/internal/forum"
)

func (imp *Importer) importCategories(ctx context.Context) error {
	imp.emitter.Phase("categoriesImportStart", nil)

	categories := imp.data.Categories
	ids := categories.IDs()
	imp.emitter.Successf("Importing %d categories.", len(ids))

	// ordinal of each id in processing order, used for name and order
	// defaults
	ordinals := make(map[string]int, len(ids))
	for i, id := range ids {
		ordinals[id] = i + 1
	}

	var imported atomic.Int64
	started := time.Now()

	err := runBatch(ctx, imp.emitter, imp.cfg.BatchSize, ids, func(ctx context.Context, id string) error {
		rec := categories.Get(id)
		ordinal := ordinals[id]

		imp.emitter.Logf("saving category:_cid: %s", id)

		name := rec.Str("_name")
		if name == "" {
			name = fmt.Sprintf("Category %d", ordinal)
		}
		description := rec.Str("_description")
		if description == "" {
			description = "no description available"
		}
		order := int(rec.Int64("_order"))
		if order == 0 {
			order = ordinal
		}
		parent := rec.Int64("_parent")
		if parent == 0 {
			parent = rec.Int64("_parentCid")
		}

		req := forum.CategoryRequest{
			Name:        name,
			Description: description,
			Order:       order,
			Disabled:    rec.Bool("_disabled"),
			ParentID:    parent,
			Link:        rec.Str("_link"),
			Icon:        imp.roulette(imp.cfg.CategoriesIcons),
			BgColor:     imp.roulette(imp.cfg.CategoriesBgColors),
			Color:       imp.roulette(imp.cfg.CategoriesTextColors),
		}

		category, err := imp.forum.Categories.Create(ctx, req)
		if err != nil {
			imp.emitter.Warnf("skipping category:_cid: %s : %v", id, err)
			rec.Skip(err.Error())
			return nil
		}

		cid := category.Int64("cid")
		provenance := map[string]any{
			"_imported_cid":         id,
			"_imported_name":        rec.Str("_name"),
			"_imported_slug":        rec.Str("_slug"),
			"_imported_description": rec.Str("_description"),
			"_imported_link":        rec.Str("_link"),
		}
		if err := imp.store.SetObject(ctx, fmt.Sprintf("category:%d", cid), provenance); err != nil {
			imp.emitter.Warnf("could not persist provenance for category:_cid: %s: %v", id, err)
		}

		rec.Merge(provenance)
		rec.MarkImported(cid, map[string]any(category))
		imported.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	imp.emitter.Successf("Importing %d/%d categories took: %.2f seconds",
		imported.Load(), len(ids), time.Since(started).Seconds())
	imp.emitter.Phase("categoriesImportDone", nil)
	return nil
}
