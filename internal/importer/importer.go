package importer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/forum-importer/internal/forum"
	"github.com/iota-uz/forum-importer/pkg/eventbus"
)

// SnapshotStore persists the pre-migration forum configuration. The file's
// existence doubles as the crash-recovery marker: present at run start means
// the previous run never restored.
type SnapshotStore interface {
	Exists() bool
	Load() (map[string]string, error)
	Save(config map[string]string) error
	Delete() error
}

type Options struct {
	Config    RunConfig
	Data      *Dataset
	Store     forum.Store
	Forum     forum.Services
	Snapshots SnapshotStore
	Bus       eventbus.EventBus
}

// Importer is the run context: it owns the RunConfig, the dataset arenas and
// the event emitter for exactly one run, created at run start and discarded
// at run end or failure. It is not safe for concurrent runs.
type Importer struct {
	cfg       RunConfig
	data      *Dataset
	store     forum.Store
	forum     forum.Services
	snapshots SnapshotStore
	emitter   *Emitter

	runID     uuid.UUID
	startTime int64

	rngMu sync.Mutex
	rng   *rand.Rand

	backedConfig map[string]string

	// Legacy-admin takeover bookkeeping; set once during the user phase,
	// read by the topic and post phases.
	takeoverSourceUID string
}

func New(opts Options) (*Importer, error) {
	if opts.Data == nil {
		return nil, errors.New("importer: dataset is required")
	}
	if opts.Store == nil {
		return nil, errors.New("importer: forum store is required")
	}
	if opts.Snapshots == nil {
		return nil, errors.New("importer: snapshot store is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("importer: event bus is required")
	}

	cfg := opts.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Importer{
		cfg:       cfg,
		data:      opts.Data,
		store:     opts.Store,
		forum:     opts.Forum,
		snapshots: opts.Snapshots,
		emitter:   NewEmitter(opts.Bus, cfg.ProgressInterval),
		runID:     uuid.New(),
		startTime: time.Now().UnixMilli(),
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

func (imp *Importer) RunID() uuid.UUID {
	return imp.runID
}

func (imp *Importer) Emitter() *Emitter {
	return imp.emitter
}

// Run executes the fixed phase sequence. Phases are strictly sequential;
// the first infrastructure error aborts the run. Config restore is attempted
// even on the failure path so the forum is never left running with the
// temporary import configuration.
func (imp *Importer) Run(ctx context.Context) (err error) {
	defer func() {
		imp.emitter.Completed(imp.runID, err)
	}()

	imp.emitter.Phase("importStart", nil)
	imp.emitter.Successf("To be imported: %d users, %d categories, %d topics, %d posts.",
		imp.data.Users.Len(), imp.data.Categories.Len(), imp.data.Topics.Len(), imp.data.Posts.Len())

	if err = imp.flushData(ctx); err != nil {
		imp.emitter.Errorf("flushing existing forum data failed: %v", err)
		return err
	}

	if err = imp.backupConfig(ctx); err != nil {
		imp.emitter.Errorf("backing up forum config failed: %v", err)
		return err
	}

	restored := false
	defer func() {
		// Restore must run even when a later phase aborts the run.
		if !restored {
			imp.restoreConfig(ctx)
		}
	}()

	if err = imp.applyTmpConfig(ctx); err != nil {
		imp.emitter.Errorf("applying temporary forum config failed: %v", err)
		return err
	}

	phases := []func(context.Context) error{
		imp.importCategories,
		imp.importUsers,
		imp.importTopics,
		imp.importPosts,
		imp.relockTopics,
		imp.fixTopicTimestamps,
	}
	for _, phase := range phases {
		if err = phase(ctx); err != nil {
			return err
		}
	}

	imp.restoreConfig(ctx)
	restored = true

	imp.teardown()
	return nil
}

func (imp *Importer) teardown() {
	imp.emitter.Phase("importerTeardownStart", nil)
	imp.emitter.Phase("importerTeardownDone", nil)
	imp.emitter.Phase("importerComplete", nil)
}

// canImportChild is the dependency gate: a child may only be processed once
// its declared parent exists and has been accepted by the forum.
func canImportChild(parent *Record) bool {
	return parent != nil && parent.Imported()
}

func (imp *Importer) randIntn(n int) int {
	imp.rngMu.Lock()
	defer imp.rngMu.Unlock()
	return imp.rng.Intn(n)
}

// roulette picks a cosmetic value uniformly from the configured palette.
func (imp *Importer) roulette(palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[imp.randIntn(len(palette))]
}

// resolveAuthor maps an original author id to a target forum uid. When the
// legacy-admin takeover is active and the author is the taken-over account,
// the author resolves to the forum's account 1. Unresolved authors map to 0,
// the forum's guest uid; no coercion is applied.
func (imp *Importer) resolveAuthor(sourceUID string) int64 {
	if imp.cfg.AdminTakeOwnership.Enabled && imp.takeoverSourceUID != "" && sourceUID == imp.takeoverSourceUID {
		return 1
	}
	user := imp.data.Users.Get(sourceUID)
	if user == nil || !user.Imported() {
		return 0
	}
	return user.TargetID()
}
