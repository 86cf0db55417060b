// Package network - history.go
// Milestone history endpoint: finished wells, purchases and playthrough changes.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/infra/storage"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistorySource reads persisted milestone events.
type HistorySource interface {
	GetRecent(ctx context.Context, eventType string, limit int) ([]storage.GameEvent, error)
}

// HistoryHandler provides the history API. Without a source it serves the in-memory log.
type HistoryHandler struct {
	source   HistorySource
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler. source may be nil.
func NewHistoryHandler(source HistorySource, el *events.EventLog, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		source:   source,
		eventLog: el,
		logger:   log,
	}
}

// HistoryEntry is one milestone as shown in the history panel.
type HistoryEntry struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Actor     string                 `json:"actor"`
	Summary   string                 `json:"summary"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HistoryResponse is the API response for the history endpoint.
type HistoryResponse struct {
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEntry `json:"events"`
}

// HandleHistory returns the newest milestones first.
// GET /api/history?type=WELL_COMPLETED&limit=20
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventType := r.URL.Query().Get("type")
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := hh.recent(r.Context(), eventType, limit)
	if err != nil {
		hh.logger.Error("History query failed", zap.Error(err))
		jsonError(w, "History unavailable", http.StatusInternalServerError)
		return
	}

	jsonSuccess(w, HistoryResponse{
		TotalEvents: len(entries),
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      entries,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
}

func (hh *HistoryHandler) recent(ctx context.Context, eventType string, limit int) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}

	if hh.source != nil {
		stored, err := hh.source.GetRecent(ctx, eventType, limit)
		if err != nil {
			return nil, err
		}
		for _, e := range stored {
			entries = append(entries, newHistoryEntry(e.ID, e.Seq, e.Timestamp, e.EventType, e.ActorID, e.Payload))
		}
		return entries, nil
	}

	all := hh.eventLog.Replay()
	for i := len(all) - 1; i >= 0 && len(entries) < limit; i-- {
		e := all[i]
		if e.Type == events.EventTypeDigApplied {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		entries = append(entries, newHistoryEntry(e.ID, e.Seq, e.Timestamp, string(e.Type), e.ActorID, payloadMap(e.Payload)))
	}
	return entries, nil
}

func newHistoryEntry(id string, seq uint64, ts time.Time, eventType, actor string, details map[string]interface{}) HistoryEntry {
	return HistoryEntry{
		ID:        id,
		Seq:       seq,
		Timestamp: ts.Format(time.RFC3339),
		Type:      eventType,
		Actor:     actor,
		Summary:   summarizeEvent(eventType, details),
		Details:   details,
	}
}

// payloadMap flattens a typed payload into its JSON field map.
func payloadMap(payload interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(eventType string, d map[string]interface{}) string {
	switch events.EventType(eventType) {
	case events.EventTypeWellCompleted:
		return fmt.Sprintf("Well #%s finished in %v", num(d["well_number"]), d["country"])
	case events.EventTypeWellProgress:
		return fmt.Sprintf("%s wells to go", num(d["remaining"]))
	case events.EventTypeGameCompleted:
		return fmt.Sprintf("Every country has a well: %s people helped", num(d["total_people_helped"]))
	case events.EventTypeUpgradePurchased:
		return fmt.Sprintf("Bought %v (now %s)", d["id"], num(d["owned"]))
	case events.EventTypeDifficultySelected:
		return fmt.Sprintf("Started a %v playthrough", d["difficulty"])
	case events.EventTypeDifficultyRequired:
		return "Waiting for a difficulty"
	case events.EventTypeGameReset:
		return "Progress reset"
	default:
		return "Something happened..."
	}
}

// num prints a decoded JSON number without an exponent.
func num(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
