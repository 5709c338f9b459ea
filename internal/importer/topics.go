package importer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/forum-importer/internal/forum"
)

// pinnedSortKey is the sentinel score for pinned topics in a category's
// ordering set; it sorts before any real timestamp.
const pinnedSortKey = float64(1 << 53)

func (imp *Importer) importTopics(ctx context.Context) error {
	imp.emitter.Phase("topicsImportStart", nil)

	topics := imp.data.Topics
	ids := topics.IDs()
	imp.emitter.Successf("Importing %d topics.", len(ids))

	var imported atomic.Int64
	started := time.Now()

	err := runBatch(ctx, imp.emitter, imp.cfg.BatchSize, ids, func(ctx context.Context, id string) error {
		rec := topics.Get(id)
		category := imp.data.Categories.Get(rec.Str("_cid"))

		if !canImportChild(category) {
			imp.emitter.Warnf("skipping topic:_tid:%q --> _cid: %s:imported:%v",
				id, rec.Str("_cid"), category != nil && category.Imported())
			rec.Skip("category not imported")
			return nil
		}

		imp.emitter.Logf("saving topic:_tid: %s", id)

		result, err := imp.forum.Topics.Post(ctx, forum.TopicRequest{
			UID:     imp.resolveAuthor(rec.Str("_uid")),
			Title:   rec.Str("_title"),
			Content: rec.Str("_content"),
			CID:     category.TargetID(),
			Thumb:   rec.Str("_thumb"),
		})
		if err != nil {
			imp.emitter.Warnf("skipping topic:_tid: %s %v", id, err)
			rec.Skip(err.Error())
			return nil
		}

		tid := result.Topic.Int64("tid")
		timestamp := rec.Int64("_timestamp")
		if timestamp == 0 {
			timestamp = imp.startTime
		}

		topicFields := map[string]any{
			"viewcount": rec.Int64("_viewcount"),

			// Locked stays off until every post is in; the forum
			// rejects posts into a locked topic, so the true lock
			// state is reapplied by the re-lock pass.
			"locked": 0,

			"deleted":      boolField(rec.Bool("_deleted")),
			"pinned":       boolField(rec.Bool("_pinned")),
			"timestamp":    timestamp,
			"lastposttime": timestamp,

			"_imported_tid":     id,
			"_imported_uid":     rec.Str("_uid"),
			"_imported_cid":     rec.Str("_cid"),
			"_imported_slug":    rec.Str("_slug"),
			"_imported_title":   rec.Str("_title"),
			"_imported_content": rec.Str("_content"),
		}

		// pinned = 1 alone is not enough to float the topic to the top
		// of its category
		score := float64(timestamp)
		if rec.Bool("_pinned") {
			score = pinnedSortKey
		}
		orderingKey := fmt.Sprintf("categories:%d:tid", category.TargetID())
		if err := imp.store.SortedSetAdd(ctx, orderingKey, score, fmt.Sprint(tid)); err != nil {
			return errors.Wrapf(err, "inserting topic:_tid: %s into category ordering", id)
		}

		if err := imp.store.SetObject(ctx, fmt.Sprintf("topic:%d", tid), topicFields); err != nil {
			return errors.Wrapf(err, "setting fields for topic:_tid: %s", id)
		}

		// the generated first post carries the topic's timestamp
		pid := result.Post.Int64("pid")
		if err := imp.forum.Posts.SetFields(ctx, pid, map[string]any{"timestamp": timestamp}); err != nil {
			return errors.Wrapf(err, "setting first-post timestamp for topic:_tid: %s", id)
		}

		rec.Merge(topicFields)
		rec.Merge(map[string]any(result.Topic))
		rec.MarkImported(tid, map[string]any{"tid": tid})
		imported.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	imp.emitter.Successf("Importing %d/%d topics took: %.2f seconds",
		imported.Load(), len(ids), time.Since(started).Seconds())
	imp.emitter.Phase("topicsImportDone", nil)
	return nil
}
