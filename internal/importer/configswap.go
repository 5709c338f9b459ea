package importer

import (
	"context"
	"encoding/json"
)

// backupConfig captures the forum's configuration before the temporary
// overlay is applied. If a snapshot file already exists, a previous run never
// restored: the config currently in the forum is assumed to be the temporary
// one, and the snapshot is loaded as the backup instead of being overwritten.
func (imp *Importer) backupConfig(ctx context.Context) error {
	if imp.snapshots.Exists() {
		backed, err := imp.snapshots.Load()
		if err != nil {
			return err
		}
		imp.backedConfig = backed
		imp.emitter.Warnf("found an existing config snapshot, resuming from a previous incomplete run")
		return nil
	}

	backed, err := imp.store.GetObject(ctx, "config")
	if err != nil {
		return err
	}
	imp.backedConfig = backed
	// Persist before touching the live config; a crash after this point is
	// recoverable from the snapshot file.
	return imp.snapshots.Save(backed)
}

// applyTmpConfig merges the backed-up config with the temporary overlay and
// pushes the result to the forum: minimal post lengths and delays, relaxed
// validation thresholds, email confirmation off.
func (imp *Importer) applyTmpConfig(ctx context.Context) error {
	merged := make(map[string]any, len(imp.backedConfig)+len(imp.cfg.TmpConfig))
	for k, v := range imp.backedConfig {
		merged[k] = v
	}
	for k, v := range imp.cfg.TmpConfig {
		merged[k] = v
	}

	// With auto-confirmation on, blank the outbound mail host so the forum
	// cannot try to send confirmation links mid-import.
	if imp.cfg.AutoConfirmEmails {
		merged["email:smtp:host"] = ""
	}

	if err := imp.store.SetObject(ctx, "config", merged); err != nil {
		return err
	}
	return imp.forum.Meta.ReloadConfig(ctx)
}

// restoreConfig pushes the snapshot back to the forum and deletes the file.
// It never fails the run: losing forum content is far worse than a manual
// config fix-up, so on push failure the snapshot is kept and the full config
// is logged at error severity for an operator to apply by hand.
func (imp *Importer) restoreConfig(ctx context.Context) {
	if !imp.snapshots.Exists() {
		imp.emitter.Warnf("could not restore forum config: no snapshot file present")
		return
	}

	backed, err := imp.snapshots.Load()
	if err != nil {
		imp.emitter.Errorf("could not read config snapshot: %v", err)
		imp.logBackedConfig()
		return
	}
	imp.backedConfig = backed

	toRestore := make(map[string]any, len(backed))
	for k, v := range backed {
		toRestore[k] = v
	}
	// Setting fields merges, which would leave overlay-only keys behind;
	// drop the object first so the restore is exact.
	if err := imp.store.DeleteKey(ctx, "config"); err != nil {
		imp.emitter.Errorf("something went wrong while restoring the forum config: %v", err)
		imp.logBackedConfig()
		return
	}
	if err := imp.store.SetObject(ctx, "config", toRestore); err != nil {
		imp.emitter.Errorf("something went wrong while restoring the forum config: %v", err)
		imp.logBackedConfig()
		return
	}

	raw, _ := json.Marshal(backed)
	imp.emitter.Successf("config restored: %s", raw)

	if err := imp.snapshots.Delete(); err != nil {
		imp.emitter.Warnf("config restored but the snapshot file could not be removed: %v", err)
	}

	if err := imp.forum.Meta.ReloadConfig(ctx); err != nil {
		imp.emitter.Warnf("could not reload forum config caches, restart the forum and you'll be fine: %v", err)
	}
}

func (imp *Importer) logBackedConfig() {
	raw, err := json.Marshal(imp.backedConfig)
	if err != nil {
		imp.emitter.Errorf("could not serialize the backed-up config: %v", err)
		return
	}
	imp.emitter.Errorf("here is your backed-up config, apply it manually: %s", raw)
}
