package importer

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/forum-importer/pkg/eventbus"
)

// eventSink collects every engine event published on a bus. Handlers run on
// the publisher's goroutine, so collection is mutex-guarded.
type eventSink struct {
	mu        sync.Mutex
	phases    []string
	logs      []LogEvent
	progress  []ProgressEvent
	completed []CompletedEvent
}

func newEventSink(bus eventbus.EventBus) *eventSink {
	s := &eventSink{}
	bus.Subscribe(func(e *PhaseEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.phases = append(s.phases, e.Phase)
	})
	bus.Subscribe(func(e *LogEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logs = append(s.logs, *e)
	})
	bus.Subscribe(func(e *ProgressEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.progress = append(s.progress, *e)
	})
	bus.Subscribe(func(e *CompletedEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.completed = append(s.completed, *e)
	})
	return s
}

func (s *eventSink) progressEvents() []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProgressEvent(nil), s.progress...)
}

func (s *eventSink) phaseNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.phases...)
}

func (s *eventSink) messages(level Level) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.logs {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (s *eventSink) completedEvents() []CompletedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletedEvent(nil), s.completed...)
}

func TestEmitterProgressThrottling(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	sink := newEventSink(bus)
	em := NewEmitter(bus, 10)

	em.Progress(0, 100)   // 0%, always emitted
	em.Progress(1, 100)   // below interval, suppressed
	em.Progress(5, 100)   // still below, suppressed
	em.Progress(11, 100)  // 11% > 0% + 10, emitted
	em.Progress(15, 100)  // 4 points since last, suppressed
	em.Progress(40, 100)  // emitted
	em.Progress(100, 100) // 100%, always emitted

	events := sink.progressEvents()
	require.Len(t, events, 4)
	assert.Equal(t, 0, events[0].Count)
	assert.Equal(t, 11, events[1].Count)
	assert.Equal(t, 40, events[2].Count)
	assert.Equal(t, 100, events[3].Count)

	// percentages never regress within a phase
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percentage, events[i-1].Percentage)
	}
}

func TestEmitterPhaseResetsThrottle(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	sink := newEventSink(bus)
	em := NewEmitter(bus, 50)

	em.Progress(60, 100)
	em.Progress(1, 100) // suppressed, below the high-water mark
	em.Phase("nextPhase", nil)
	em.Progress(51, 100) // new phase, 51 > 0 + 50

	events := sink.progressEvents()
	require.Len(t, events, 2)
	assert.Equal(t, 60, events[0].Count)
	assert.Equal(t, 51, events[1].Count)
}

func TestEmitterProgressConcurrentPublishOrder(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	sink := newEventSink(bus)
	em := NewEmitter(bus, 0.0001)

	const total = 400
	var counter atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < total/8; i++ {
				em.Progress(int(counter.Add(1)), total)
			}
		}()
	}
	wg.Wait()

	events := sink.progressEvents()
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percentage, events[i-1].Percentage,
			"event %d regressed", i)
	}
	assert.InDelta(t, 100, events[len(events)-1].Percentage, 0.001)
}

func TestEmitterZeroTotal(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	sink := newEventSink(bus)
	em := NewEmitter(bus, 2)

	em.Progress(0, 0)
	em.Progress(1, -5)
	assert.Empty(t, sink.progressEvents())
}

func TestEmitterCompleted(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	sink := newEventSink(bus)
	em := NewEmitter(bus, 2)

	runID := uuid.New()
	em.Completed(runID, nil)

	events := sink.completedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, runID, events[0].RunID)
	assert.NoError(t, events[0].Err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "log", LevelLog.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "success", LevelSuccess.String())
}
