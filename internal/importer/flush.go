package importer

import (
	"context"
	"strconv"
	"sync"
)

// enumOpts controls paginated enumeration over a live id set during purge.
// Purging deletes members, which shifts the remaining range backwards, so
// purge loops always restart at offset zero and rely on convergence (the set
// draining, or doneIf firing) to terminate.
type enumOpts struct {
	// doneIf, when set, reports that the remaining batch is final and no
	// further rounds are needed.
	doneIf func(ids []string) bool
}

// purgeSet enumerates setKey page by page and applies worker to every member
// with bounded concurrency, reporting progress against total.
func (imp *Importer) purgeSet(ctx context.Context, setKey string, total int64, opts enumOpts, worker func(context.Context, string) error) error {
	pageSize := int64(imp.cfg.BatchSize)
	// doneIf decides on the page it sees; a page of one member could be a
	// skipped-over survivor with the set still holding more behind it, so
	// every page must reach past a single skipped member.
	if pageSize < 2 {
		pageSize = 2
	}
	var index int

	for {
		ids, err := imp.store.SortedSetRange(ctx, setKey, 0, pageSize-1)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if opts.doneIf != nil && opts.doneIf(ids) {
			return nil
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
		)
		for _, id := range ids {
			imp.emitter.Progress(index, int(total))
			index++

			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := worker(ctx, id); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()
		if firstErr != nil {
			return firstErr
		}
	}
}

// flushData resets the target forum to a blank slate: purge all categories
// (which cascades to their topics and posts), delete every user except the
// forum's account 1, and reset the global id and count fields.
func (imp *Importer) flushData(ctx context.Context) error {
	imp.emitter.Phase("purgeCategories+Topics+PostsStart", nil)
	imp.emitter.Progress(0, 1)

	total, err := imp.store.SortedSetCard(ctx, "categories:cid")
	if err != nil {
		return err
	}
	err = imp.purgeSet(ctx, "categories:cid", total, enumOpts{}, func(ctx context.Context, id string) error {
		cid, _ := strconv.ParseInt(id, 10, 64)
		return imp.forum.Categories.Purge(ctx, cid)
	})
	if err != nil {
		return err
	}
	imp.emitter.Progress(1, 1)
	imp.emitter.Phase("purgeCategories+Topics+PostsDone", nil)

	imp.emitter.Phase("purgeUsersStart", nil)
	imp.emitter.Progress(0, 1)

	total, err = imp.store.SortedSetCard(ctx, "users:joindate")
	if err != nil {
		return err
	}
	err = imp.purgeSet(ctx, "users:joindate", total, enumOpts{
		// done when the forum's own account 1 is the only one left
		doneIf: func(ids []string) bool {
			return len(ids) == 1 && ids[0] == "1"
		},
	}, func(ctx context.Context, id string) error {
		uid, _ := strconv.ParseInt(id, 10, 64)
		if uid == 1 {
			return nil
		}
		return imp.forum.Users.Delete(ctx, uid)
	})
	if err != nil {
		return err
	}
	imp.emitter.Progress(1, 1)
	imp.emitter.Phase("purgeUsersDone", nil)

	imp.emitter.Phase("resetGlobalsStart", nil)
	imp.emitter.Progress(0, 1)

	for _, field := range []string{
		"nextUid", "userCount",
		"nextCid", "categoryCount",
		"nextTid", "topicCount",
		"nextPid", "postCount",
	} {
		if err := imp.store.SetObjectField(ctx, "global", field, 1); err != nil {
			return err
		}
	}

	imp.emitter.Progress(1, 1)
	imp.emitter.Phase("resetGlobalsDone", nil)
	return nil
}
