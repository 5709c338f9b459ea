package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/forum-importer/internal/forum"
)

func (imp *Importer) importUsers(ctx context.Context) error {
	imp.emitter.Phase("usersImportStart", nil)

	users := imp.data.Users
	ids := users.IDs()
	imp.emitter.Successf("Importing %d users.", len(ids))

	var (
		imported atomic.Int64
		started  = time.Now()

		// The takeover fires at most once per run; first match wins.
		takeoverMu    sync.Mutex
		takeoverArmed = imp.cfg.AdminTakeOwnership.Enabled
	)

	claimTakeover := func(rec *Record) bool {
		if !imp.cfg.AdminTakeOwnership.Enabled {
			return false
		}
		takeoverMu.Lock()
		defer takeoverMu.Unlock()
		if !takeoverArmed {
			return false
		}
		if !strings.EqualFold(rec.Str("_username"), imp.cfg.AdminTakeOwnership.Username) {
			return false
		}
		takeoverArmed = false
		imp.takeoverSourceUID = rec.ID
		return true
	}

	err := runBatch(ctx, imp.emitter, imp.cfg.BatchSize, ids, func(ctx context.Context, id string) error {
		rec := users.Get(id)
		level := strings.ToLower(rec.Str("_level"))

		var uid int64
		if claimTakeover(rec) {
			imp.emitter.Warnf("user %q was revoked ownership, remapping onto the forum's account 1", rec.Str("_username"))
			// The account keeps its existing privileges; no role grant
			// needed, and no new account is created.
			level = ""
			uid = 1
		} else {
			username, slug := resolveUsername(rec.Str("_username"), rec.Str("_alternativeUsername"))
			if username == "" {
				imp.emitter.Warnf("skipping user: %q username is invalid", rec.Str("_username"))
				rec.Skip("invalid username")
				return nil
			}

			password := rec.Str("_password")
			if password == "" && imp.cfg.PasswordGen.Enabled {
				imp.rngMu.Lock()
				password = genRandPassword(imp.rng, imp.cfg.PasswordGen.Length, imp.cfg.PasswordGen.Chars)
				imp.rngMu.Unlock()
			}

			imp.emitter.Logf("saving user:_uid: %s", id)

			created, err := imp.forum.Users.Create(ctx, forum.UserRequest{
				Username: username,
				Email:    rec.Str("_email"),
				Password: password,
			})
			if err != nil {
				imp.emitter.Warnf("skipping username: %q %v", rec.Str("_username"), err)
				rec.Skip(err.Error())
				return nil
			}
			uid = created
			rec.Merge(map[string]any{"userslug": slug})
		}

		switch level {
		case "moderator":
			if err := imp.makeModeratorOnAllCategories(ctx, uid); err != nil {
				imp.emitter.Warnf("could not grant moderator privileges to user:_uid: %s: %v", id, err)
			} else {
				imp.emitter.Warnf("%s just became a moderator on all categories", rec.Str("_username"))
			}
		case "administrator":
			if err := imp.forum.Groups.Join(ctx, "administrators", uid); err != nil {
				return errors.Wrapf(err, "joining administrators group for user:_uid: %s", id)
			}
			imp.emitter.Warnf("%s became an Administrator", rec.Str("_username"))
		}

		joindate := rec.Int64("_joindate")
		if joindate == 0 {
			joindate = imp.startTime
		}

		fields := map[string]any{
			// the forum caps signatures at 255, truncate with a
			// trailing ellipsis
			"signature":    truncate(rec.Str("_signature"), 252),
			"website":      rec.Str("_website"),
			"banned":       boolField(rec.Bool("_banned")),
			"location":     rec.Str("_location"),
			"joindate":     joindate,
			"reputation":   rec.Float("_reputation") * imp.cfg.UserReputationMultiplier,
			"profileviews": rec.Int64("_profileViews"),
			"fullname":     rec.Str("_fullname"),
			"birthday":     rec.Str("_birthday"),
			"showemail":    boolField(rec.Bool("_showemail")),

			// this is a migration, no one is online
			"status": "offline",

			"_imported_uid":       id,
			"_imported_username":  rec.Str("_username"),
			"_imported_slug":      firstNonEmpty(rec.Str("_slug"), rec.Str("_userslug")),
			"_imported_signature": rec.Str("_signature"),
		}

		keptPicture := false
		if picture := rec.Str("_picture"); picture != "" {
			fields["gravatarpicture"] = picture
			fields["picture"] = picture
			keptPicture = true
		}

		if err := imp.forum.Users.SetFields(ctx, uid, fields); err != nil {
			return errors.Wrapf(err, "setting fields for user:_uid: %s", id)
		}

		if imp.cfg.AutoConfirmEmails {
			if email := rec.Str("_email"); email != "" {
				if err := imp.store.SetObjectField(ctx, "email:confirmed", email, "1"); err != nil {
					return errors.Wrapf(err, "confirming email for user:_uid: %s", id)
				}
			}
		}

		rec.Merge(fields)
		rec.Merge(map[string]any{"keptPicture": keptPicture})
		rec.MarkImported(uid, map[string]any{"uid": uid})
		imported.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	imp.emitter.Successf("Importing %d/%d users took: %.2f seconds",
		imported.Load(), len(ids), time.Since(started).Seconds())

	if imp.cfg.AutoConfirmEmails {
		imp.cleanupConfirmationKeys(ctx)
	}

	imp.emitter.Phase("usersImportDone", nil)
	return nil
}

// cleanupConfirmationKeys drops stale email-confirmation keys left behind by
// bulk user creation. Key enumeration is unsupported on some storage
// backends; the cleanup is best-effort and skipped there.
func (imp *Importer) cleanupConfirmationKeys(ctx context.Context) {
	for _, pattern := range []string{"confirm:*", "email:*:confirm"} {
		keys, err := imp.store.Keys(ctx, pattern)
		if err != nil {
			if errors.Is(err, forum.ErrKeysUnsupported) {
				return
			}
			imp.emitter.Warnf("could not enumerate %q keys: %v", pattern, err)
			continue
		}
		for _, key := range keys {
			if err := imp.store.DeleteKey(ctx, key); err != nil {
				imp.emitter.Warnf("could not delete key %q: %v", key, err)
			}
		}
	}
}

func (imp *Importer) makeModeratorOnAllCategories(ctx context.Context, uid int64) error {
	for _, cid := range imp.data.Categories.IDs() {
		category := imp.data.Categories.Get(cid)
		if category == nil || !category.Imported() {
			continue
		}
		// Join appends the ":members" suffix itself.
		group := fmt.Sprintf("cid:%d:privileges:mods", category.TargetID())
		if err := imp.forum.Groups.Join(ctx, group, uid); err != nil {
			return err
		}
	}
	return nil
}

// truncate cuts s down to at most n runes, ellipsis included.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func boolField(v bool) int {
	if v {
		return 1
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
