package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

type recordingPersister struct {
	mu     sync.Mutex
	events []GameEvent
}

func (p *recordingPersister) Append(e GameEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPersister) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestAppendStampsEvents(t *testing.T) {
	log := NewEventLog(0, nil)

	first := log.Append(GameEvent{Type: EventTypeDigApplied, ActorID: ActorPlayer})
	second := log.Append(GameEvent{Type: EventTypeWellCompleted, ActorID: ActorEngine})

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, uint64(2), log.LastSeq())
}

func TestAppendKeepsGivenIDAndTimestamp(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEventLog(4, nil).Append(GameEvent{ID: "fixed", Timestamp: at, Type: EventTypeGameReset})
	assert.Equal(t, "fixed", e.ID)
	assert.Equal(t, at, e.Timestamp)
}

func TestCapacityTrimsOldestButKeepsSequence(t *testing.T) {
	log := NewEventLog(3, nil)
	for i := 0; i < 5; i++ {
		log.Append(GameEvent{Type: EventTypeDigApplied})
	}

	all := log.Replay()
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].Seq)
	assert.Equal(t, uint64(5), all[2].Seq)
	assert.Equal(t, uint64(5), log.LastSeq())

	since := log.Since(3)
	require.Len(t, since, 2)
	assert.Equal(t, uint64(4), since[0].Seq)
	assert.Empty(t, log.Since(5))
}

func TestByType(t *testing.T) {
	log := NewEventLog(10, nil)
	log.Append(GameEvent{Type: EventTypeDigApplied})
	log.Append(GameEvent{Type: EventTypeWellCompleted})
	log.Append(GameEvent{Type: EventTypeDigApplied})

	assert.Len(t, log.ByType(EventTypeDigApplied), 2)
	assert.Len(t, log.ByType(EventTypeWellCompleted), 1)
	assert.Empty(t, log.ByType(EventTypeGameCompleted))
}

func TestReplayIsACopy(t *testing.T) {
	log := NewEventLog(10, nil)
	log.Append(GameEvent{Type: EventTypeDigApplied})

	replay := log.Replay()
	replay[0].Type = EventTypeGameReset
	assert.Equal(t, EventTypeDigApplied, log.Replay()[0].Type)
}

func TestPersisterReceivesEvents(t *testing.T) {
	p := &recordingPersister{}
	log := NewEventLog(10, p)
	log.Append(GameEvent{Type: EventTypeDifficultySelected})
	log.Append(GameEvent{Type: EventTypeWellCompleted})

	assert.Eventually(t, func() bool { return p.count() == 2 }, time.Second, 5*time.Millisecond)
}

// milestonePersister stores everything except digs.
type milestonePersister struct {
	recordingPersister
}

func (p *milestonePersister) Persists(t EventType) bool {
	return t != EventTypeDigApplied
}

type failingPersister struct{}

func (failingPersister) Append(GameEvent) error {
	return errors.New("disk full")
}

func TestFilteredEventsAreNotQueued(t *testing.T) {
	p := &milestonePersister{}
	log := NewEventLog(10, p)
	log.Append(GameEvent{Type: EventTypeDigApplied})
	log.Append(GameEvent{Type: EventTypeWellCompleted})
	log.Append(GameEvent{Type: EventTypeDigApplied})
	log.Append(GameEvent{Type: EventTypeGameCompleted})
	log.Close()

	assert.Equal(t, []EventType{EventTypeWellCompleted, EventTypeGameCompleted}, p.types())
	assert.Len(t, log.Replay(), 4, "the in-memory log keeps every event")
}

func TestCloseFlushesAndStopsPersisting(t *testing.T) {
	p := &recordingPersister{}
	log := NewEventLog(10, p)
	for i := 0; i < 5; i++ {
		log.Append(GameEvent{Type: EventTypeUpgradePurchased})
	}
	log.Close()
	require.Equal(t, 5, p.count())

	log.Append(GameEvent{Type: EventTypeGameReset})
	log.Close()
	assert.Equal(t, 5, p.count())
	assert.Equal(t, uint64(6), log.LastSeq())
}

func TestPersistFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewEventLog(10, failingPersister{}, WithLogger(logger.New(zap.New(core))))
	log.Append(GameEvent{Type: EventTypeWellCompleted})
	log.Close()

	entries := logs.FilterMessage("Event persist failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "disk full", entries[0].ContextMap()["error"])
}

func TestCloseWithoutPersisterIsSafe(t *testing.T) {
	log := NewEventLog(2, nil)
	log.Close()
	log.Close()
	log.Append(GameEvent{Type: EventTypeDigApplied})
	assert.Equal(t, uint64(1), log.LastSeq())
}
