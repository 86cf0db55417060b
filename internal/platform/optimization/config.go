// Package optimization provides buffer and pool profiles for the server under different loads.
package optimization

import (
	"fmt"
	"runtime"
	"time"

	"github.com/MRamiBalles/WellBuilder/server/internal/platform/config"
)

// Profile holds tuned parameters for one load scenario.
type Profile struct {
	Name string

	// Buffers
	EventLogCapacity int
	ClientSendBuffer int

	// SQLite allows one writer; extra conns only help readers of the history API.
	DBMaxOpenConns int

	// Rate limiting
	ActionMinInterval time.Duration
}

// DefaultProfile returns sensible defaults for production.
func DefaultProfile() Profile {
	return Profile{
		Name:              "default",
		EventLogCapacity:  1024,
		ClientSendBuffer:  256,
		DBMaxOpenConns:    1,
		ActionMinInterval: 25 * time.Millisecond,
	}
}

// StressTestProfile returns aggressive settings for autodigger runs.
func StressTestProfile() Profile {
	return Profile{
		Name:              "stress",
		EventLogCapacity:  4096,
		ClientSendBuffer:  512,
		DBMaxOpenConns:    runtime.NumCPU(),
		ActionMinInterval: 0,
	}
}

// LowResourceProfile returns minimal settings for development.
func LowResourceProfile() Profile {
	return Profile{
		Name:              "low",
		EventLogCapacity:  128,
		ClientSendBuffer:  16,
		DBMaxOpenConns:    1,
		ActionMinInterval: 50 * time.Millisecond,
	}
}

// ForName resolves a profile by name. The empty name means no profile.
func ForName(name string) (Profile, bool, error) {
	switch name {
	case "":
		return Profile{}, false, nil
	case "default":
		return DefaultProfile(), true, nil
	case "stress":
		return StressTestProfile(), true, nil
	case "low":
		return LowResourceProfile(), true, nil
	default:
		return Profile{}, false, fmt.Errorf("unknown profile %q", name)
	}
}

// Apply overwrites the buffer and pool settings of cfg.
func Apply(cfg *config.Config, p Profile) {
	cfg.EventLogCapacity = p.EventLogCapacity
	cfg.ClientSendBuffer = p.ClientSendBuffer
	cfg.DBMaxOpenConns = p.DBMaxOpenConns
	cfg.ActionMinInterval = p.ActionMinInterval
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseSendBuffer    bool
	IncreaseDBConnections bool
	SlowTicks             bool
	Notes                 []string
}

// Empty reports whether nothing needs attention.
func (r *Recommendations) Empty() bool {
	return len(r.Notes) == 0
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(snapshot map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := snapshot["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.SlowTicks = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - the engine lock is contended")
		}
	}

	if saves, ok := snapshot["saves"].(map[string]interface{}); ok {
		if maxLat, ok := saves["max_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Save latency exceeds 50ms - check the database file")
		}
		if errs, ok := saves["event_error"].(int64); ok && errs > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	if ws, ok := snapshot["websocket"].(map[string]interface{}); ok {
		if errs, ok := ws["errors"].(int64); ok && errs > 0 {
			rec.IncreaseSendBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies cfg based on rec.
func ApplyRecommendations(cfg *config.Config, rec *Recommendations) {
	if rec.IncreaseSendBuffer {
		cfg.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		cfg.DBMaxOpenConns = int(float64(cfg.DBMaxOpenConns)*1.5) + 1
	}
}
