package importer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iota-uz/forum-importer/internal/forum"
)

func (imp *Importer) importPosts(ctx context.Context) error {
	imp.emitter.Phase("postsImportStart", nil)

	posts := imp.data.Posts
	ids := posts.IDs()
	imp.emitter.Successf("Importing %d posts.", len(ids))

	var imported atomic.Int64
	started := time.Now()

	err := runBatch(ctx, imp.emitter, imp.cfg.BatchSize, ids, func(ctx context.Context, id string) error {
		rec := posts.Get(id)
		topic := imp.data.Topics.Get(rec.Str("_tid"))

		if !canImportChild(topic) {
			imp.emitter.Warnf("skipping post:_pid: %s _tid:valid: %v",
				id, topic != nil && topic.Imported())
			rec.Skip("topic not imported")
			return nil
		}

		imp.emitter.Logf("saving post: %s", id)

		timestamp := rec.Int64("_timestamp")
		if timestamp == 0 {
			timestamp = imp.startTime
		}

		post, err := imp.forum.Posts.Create(ctx, forum.PostRequest{
			UID:       imp.resolveAuthor(rec.Str("_uid")),
			TID:       topic.TargetID(),
			Content:   rec.Str("_content"),
			Timestamp: timestamp,

			// reply targets are passed through as-is; broken ones are
			// the source forum's problem, not a reason to drop a post
			ToPID: rec.Str("_toPid"),
		})
		if err != nil {
			imp.emitter.Warnf("skipping post: %s %v", id, err)
			rec.Skip(err.Error())
			return nil
		}

		pid := post.Int64("pid")
		fields := map[string]any{
			"reputation": rec.Int64("_reputation"),
			"votes":      rec.Int64("_votes"),
			"edited":     boolField(rec.Bool("_edited")),
			"deleted":    boolField(rec.Bool("_deleted")),

			"_imported_pid":     id,
			"_imported_uid":     rec.Str("_uid"),
			"_imported_tid":     rec.Str("_tid"),
			"_imported_content": rec.Str("_content"),
		}
		if err := imp.forum.Posts.SetFields(ctx, pid, fields); err != nil {
			imp.emitter.Warnf("could not set fields for post: %s: %v", id, err)
		}

		rec.Merge(fields)
		rec.Merge(map[string]any(post))
		rec.MarkImported(pid, map[string]any{"pid": pid})
		imported.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	imp.emitter.Successf("Importing %d/%d posts took: %.2f seconds",
		imported.Load(), len(ids), time.Since(started).Seconds())
	imp.emitter.Phase("postsImportDone", nil)
	return nil
}
