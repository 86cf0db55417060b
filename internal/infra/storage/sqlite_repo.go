package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// eventRow is the on-disk shape of a GameEvent.
type eventRow struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Seq       int64  `db:"seq"`
	Timestamp int64  `db:"timestamp"` // unix milliseconds
	EventType string `db:"event_type"`
	ActorID   string `db:"actor_id"`
	Payload   string `db:"payload"`
}

func (r eventRow) toEvent() (GameEvent, error) {
	e := GameEvent{
		ID:        r.ID,
		SessionID: r.SessionID,
		Seq:       uint64(r.Seq),
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		EventType: r.EventType,
		ActorID:   r.ActorID,
	}
	if err := json.Unmarshal([]byte(r.Payload), &e.Payload); err != nil {
		return GameEvent{}, fmt.Errorf("failed to unmarshal payload of %s: %w", r.ID, err)
	}
	return e, nil
}

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sqlx.DB
}

func NewSQLiteEventRepository(db *sqlx.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	row := eventRow{
		ID:        event.ID,
		SessionID: event.SessionID,
		Seq:       int64(event.Seq),
		Timestamp: event.Timestamp.UnixMilli(),
		EventType: event.EventType,
		ActorID:   event.ActorID,
		Payload:   string(payloadBytes),
	}
	query := `
		INSERT INTO events (id, session_id, seq, timestamp, event_type, actor_id, payload)
		VALUES (:id, :session_id, :seq, :timestamp, :event_type, :actor_id, :payload)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]GameEvent, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *SQLiteEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]GameEvent, error) {
	query := `SELECT id, session_id, seq, timestamp, event_type, actor_id, payload FROM events WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetRecent(ctx context.Context, eventType string, limit int) ([]GameEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if eventType == "" {
		query := `SELECT id, session_id, seq, timestamp, event_type, actor_id, payload FROM events ORDER BY timestamp DESC, seq DESC LIMIT ?`
		return r.getMany(ctx, query, limit)
	}
	query := `SELECT id, session_id, seq, timestamp, event_type, actor_id, payload FROM events WHERE event_type = ? ORDER BY timestamp DESC, seq DESC LIMIT ?`
	return r.getMany(ctx, query, eventType, limit)
}

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

type SQLiteSaveRepository struct {
	db *sqlx.DB
}

func NewSQLiteSaveRepository(db *sqlx.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM saves WHERE save_key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load save %q: %w", key, err)
	}
	return []byte(payload), true, nil
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, key string, payload []byte) error {
	query := `
		INSERT INTO saves (save_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(save_key) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(payload), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write save %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE save_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete save %q: %w", key, err)
	}
	return nil
}

var (
	_ EventRepository = (*SQLiteEventRepository)(nil)
	_ SaveRepository  = (*SQLiteSaveRepository)(nil)
)
