// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the engine event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Seq       uint64                 `json:"seq" db:"seq"`
	Timestamp time.Time              `json:"timestamp" db:"-"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Payload   map[string]interface{} `json:"payload" db:"-"`
}

// EventRepository defines the interface for milestone history persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetBySessionID retrieves all events of one server session in order.
	GetBySessionID(ctx context.Context, sessionID string) ([]GameEvent, error)

	// GetRecent retrieves the newest events, optionally filtered by type (empty = all).
	GetRecent(ctx context.Context, eventType string, limit int) ([]GameEvent, error)
}

// SaveRepository stores whole game snapshots under a fixed key.
type SaveRepository interface {
	// Load returns the payload stored under key; found is false when absent.
	Load(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Save overwrites the payload stored under key.
	Save(ctx context.Context, key string, payload []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
