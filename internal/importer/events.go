package importer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/forum-importer/pkg/eventbus"
)

type Level int

const (
	LevelLog Level = iota
	LevelWarn
	LevelError
	LevelSuccess
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "log"
	}
}

// PhaseEvent announces a phase transition of the run.
type PhaseEvent struct {
	Phase string
	Data  map[string]any
}

// ProgressEvent reports completion counts within the current phase.
type ProgressEvent struct {
	Count      int
	Total      int
	Percentage float64
}

// LogEvent carries human-readable run output. Observers decide what to do
// with it; the engine itself never writes logs directly.
type LogEvent struct {
	Level   Level
	Message string
}

// CompletedEvent is published exactly once, when the run finishes or aborts.
type CompletedEvent struct {
	RunID uuid.UUID
	Err   error
}

// Emitter publishes the run's structured event stream. Progress events are
// throttled: only the first, the last, and advances beyond the configured
// percentage interval are emitted.
type Emitter struct {
	bus      eventbus.EventBus
	interval float64

	mu         sync.Mutex
	percentage float64
}

func NewEmitter(bus eventbus.EventBus, interval float64) *Emitter {
	if interval <= 0 {
		interval = 2
	}
	return &Emitter{bus: bus, interval: interval}
}

// Phase publishes a phase transition and resets the progress throttle.
func (e *Emitter) Phase(phase string, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.percentage = 0
	e.bus.Publish(&PhaseEvent{Phase: phase, Data: data})
}

// Progress publishes a throttled progress update. Publishing happens under
// the throttle lock: concurrent completions must not reorder on the bus, or
// observers would see percentages regress.
func (e *Emitter) Progress(count, total int) {
	if total <= 0 {
		return
	}
	percentage := float64(count) / float64(total) * 100

	e.mu.Lock()
	defer e.mu.Unlock()
	if percentage == 0 || percentage >= 100 || percentage-e.percentage > e.interval {
		e.percentage = percentage
		e.bus.Publish(&ProgressEvent{Count: count, Total: total, Percentage: percentage})
	}
}

func (e *Emitter) Completed(runID uuid.UUID, err error) {
	e.bus.Publish(&CompletedEvent{RunID: runID, Err: err})
}

func (e *Emitter) Logf(format string, args ...any) {
	e.bus.Publish(&LogEvent{Level: LevelLog, Message: fmt.Sprintf(format, args...)})
}

func (e *Emitter) Warnf(format string, args ...any) {
	e.bus.Publish(&LogEvent{Level: LevelWarn, Message: fmt.Sprintf(format, args...)})
}

func (e *Emitter) Errorf(format string, args ...any) {
	e.bus.Publish(&LogEvent{Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

func (e *Emitter) Successf(format string, args ...any) {
	e.bus.Publish(&LogEvent{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

// SubscribeLogger attaches a logrus sink to the event stream. Logging is an
// observer of the run, not part of its control flow.
func SubscribeLogger(bus eventbus.EventBus, logger *logrus.Logger, verbose bool) {
	bus.Subscribe(func(e *LogEvent) {
		switch e.Level {
		case LevelWarn:
			logger.Warn(e.Message)
		case LevelError:
			logger.Error(e.Message)
		case LevelSuccess:
			logger.Info(e.Message)
		default:
			if verbose {
				logger.Debug(e.Message)
			}
		}
	})
	bus.Subscribe(func(e *PhaseEvent) {
		logger.WithField("phase", e.Phase).Info("phase")
	})
	bus.Subscribe(func(e *ProgressEvent) {
		if verbose {
			logger.WithFields(logrus.Fields{
				"count": e.Count,
				"total": e.Total,
			}).Debugf("progress %.1f%%", e.Percentage)
		}
	})
	bus.Subscribe(func(e *CompletedEvent) {
		if e.Err != nil {
			logger.WithField("run_id", e.RunID).WithError(e.Err).Error("import failed")
			return
		}
		logger.WithField("run_id", e.RunID).Info("import complete")
	})
}
