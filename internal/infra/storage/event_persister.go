package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
)

// persistTimeout bounds a single history write.
const persistTimeout = 5 * time.Second

// HistoryPersister translates engine events to storage events.
// Per-dig events are not milestones and are skipped.
type HistoryPersister struct {
	repo      EventRepository
	sessionID string
}

// NewHistoryPersister creates an events.EventPersister writing to repo under sessionID.
func NewHistoryPersister(repo EventRepository, sessionID string) *HistoryPersister {
	return &HistoryPersister{repo: repo, sessionID: sessionID}
}

// Persists reports whether events of type t belong in the history.
func (p *HistoryPersister) Persists(t events.EventType) bool {
	return t != events.EventTypeDigApplied
}

func (p *HistoryPersister) Append(event events.GameEvent) error {
	if !p.Persists(event.Type) {
		return nil
	}

	var payloadMap map[string]interface{}
	if event.Payload != nil {
		payloadBytes, err := json.Marshal(event.Payload)
		if err != nil {
			metrics.Get().RecordEventWrite(err)
			return fmt.Errorf("failed to marshal %s payload: %w", event.Type, err)
		}
		if err := json.Unmarshal(payloadBytes, &payloadMap); err != nil {
			metrics.Get().RecordEventWrite(err)
			return fmt.Errorf("failed to flatten %s payload: %w", event.Type, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := p.repo.Append(ctx, GameEvent{
		ID:        event.ID,
		SessionID: p.sessionID,
		Seq:       event.Seq,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Payload:   payloadMap,
	})
	metrics.Get().RecordEventWrite(err)
	return err
}

var (
	_ events.EventPersister = (*HistoryPersister)(nil)
	_ events.PersistFilter  = (*HistoryPersister)(nil)
)
