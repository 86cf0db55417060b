// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers gameplay and performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Gameplay
	ManualDigs        int64
	PurchasesAccepted int64
	PurchasesRejected int64
	WellsCompleted    int64

	// Save metrics
	SavesWritten  int64
	SaveLatSum    int64
	SaveLatMax    int64
	SaveErrors    int64
	EventsWritten int64
	EventErrors   int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a passive tick cycle.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordManualDig counts a player initiated dig.
func (c *Collector) RecordManualDig() {
	atomic.AddInt64(&c.ManualDigs, 1)
}

// RecordPurchase counts a purchase attempt.
func (c *Collector) RecordPurchase(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.PurchasesAccepted, 1)
	} else {
		atomic.AddInt64(&c.PurchasesRejected, 1)
	}
}

// RecordWellCompleted counts a finished well.
func (c *Collector) RecordWellCompleted() {
	atomic.AddInt64(&c.WellsCompleted, 1)
}

// RecordSave records a snapshot flush to the save store.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.SavesWritten, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))
	storeMax(&c.SaveLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordEventWrite records an event written to the history table.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.SavesWritten)

	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatSum)) / float64(saves) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"gameplay": map[string]interface{}{
			"manual_digs":        atomic.LoadInt64(&c.ManualDigs),
			"purchases_accepted": atomic.LoadInt64(&c.PurchasesAccepted),
			"purchases_rejected": atomic.LoadInt64(&c.PurchasesRejected),
			"wells_completed":    atomic.LoadInt64(&c.WellsCompleted),
		},

		"saves": map[string]interface{}{
			"written":     saves,
			"avg_lat_ms":  saveAvg,
			"max_lat_ms":  float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"errors":      atomic.LoadInt64(&c.SaveErrors),
			"events":      atomic.LoadInt64(&c.EventsWritten),
			"event_error": atomic.LoadInt64(&c.EventErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		counter(w, "wellbuilder_tick_count", "Total passive tick cycles", atomic.LoadInt64(&c.TickCount))
		fmt.Fprintf(w, "# HELP wellbuilder_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE wellbuilder_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "wellbuilder_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		counter(w, "wellbuilder_manual_digs", "Total manual digs", atomic.LoadInt64(&c.ManualDigs))
		fmt.Fprintf(w, "# HELP wellbuilder_purchases_total Upgrade purchase attempts\n")
		fmt.Fprintf(w, "# TYPE wellbuilder_purchases_total counter\n")
		fmt.Fprintf(w, "wellbuilder_purchases_total{result=\"accepted\"} %d\n", atomic.LoadInt64(&c.PurchasesAccepted))
		fmt.Fprintf(w, "wellbuilder_purchases_total{result=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.PurchasesRejected))
		counter(w, "wellbuilder_wells_completed", "Total wells completed", atomic.LoadInt64(&c.WellsCompleted))

		counter(w, "wellbuilder_saves_written", "Total snapshot flushes", atomic.LoadInt64(&c.SavesWritten))
		counter(w, "wellbuilder_save_errors", "Total failed snapshot flushes", atomic.LoadInt64(&c.SaveErrors))

		fmt.Fprintf(w, "# HELP wellbuilder_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE wellbuilder_ws_connections gauge\n")
		fmt.Fprintf(w, "wellbuilder_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP wellbuilder_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE wellbuilder_ws_messages_total counter\n")
		fmt.Fprintf(w, "wellbuilder_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "wellbuilder_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n\n", name, v)
}
