// Package main - autodigger
// Load generator: N WebSocket clients digging and shopping against a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/network"
)

// Config for the autodigger
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Difficulty     string
	BuyChance      float64
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	StatesReceived   int64
	EventsReceived   int64
	Refusals         int64
	Errors           int64
	WellsSeen        int64
	GameCompleted    int32
	Latencies        []time.Duration
	mu               sync.Mutex
	selectDifficulty sync.Once
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 10, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	diff := flag.String("difficulty", "easy", "Difficulty chosen if the server asks for one")
	buyChance := flag.Float64("buy", 0.1, "Chance that an action is a purchase instead of a dig")
	out := flag.String("out", "autodigger_results.json", "Where to write the JSON results")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Difficulty:     *diff,
		BuyChance:      *buyChance,
	}

	fmt.Println("=========================================")
	fmt.Println("⛏️  AUTODIGGER - Load Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runLoadTest(ctx, config)
	printResults(stats, config, *out)
}

func runLoadTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("📊 Progress: Sent=%d States=%d Refused=%d Wells=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.StatesReceived),
					atomic.LoadInt64(&stats.Refusals),
					atomic.LoadInt64(&stats.WellsSeen))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	send := func(action network.PlayerAction) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		start := time.Now()
		if err := conn.WriteJSON(action); err != nil {
			return err
		}
		atomic.AddInt64(&stats.MessagesSent, 1)
		stats.mu.Lock()
		stats.Latencies = append(stats.Latencies, time.Since(start))
		stats.mu.Unlock()
		return nil
	}

	var upgradeCount atomic.Int32
	go func() {
		for {
			var msg network.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Kind {
			case network.MsgKindState:
				atomic.AddInt64(&stats.StatesReceived, 1)
				if msg.State == nil {
					continue
				}
				upgradeCount.Store(int32(len(msg.State.Upgrades)))
				if msg.State.NeedsDifficulty {
					stats.selectDifficulty.Do(func() {
						payload, _ := json.Marshal(network.DifficultyPayload{Difficulty: config.Difficulty})
						if err := send(network.PlayerAction{Type: network.ActionSelectDifficulty, Payload: payload}); err != nil {
							atomic.AddInt64(&stats.Errors, 1)
						}
					})
				}
				if msg.State.GameCompleted {
					atomic.StoreInt32(&stats.GameCompleted, 1)
				}
			case network.MsgKindEvent:
				atomic.AddInt64(&stats.EventsReceived, 1)
				if msg.Event != nil && msg.Event.Type == events.EventTypeWellCompleted {
					atomic.AddInt64(&stats.WellsSeen, 1)
				}
			case network.MsgKindError:
				atomic.AddInt64(&stats.Refusals, 1)
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(nextAction(config.BuyChance, int(upgradeCount.Load()))); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
		}
	}
}

func nextAction(buyChance float64, upgrades int) network.PlayerAction {
	if upgrades > 0 && rand.Float64() < buyChance {
		payload, _ := json.Marshal(network.PurchasePayload{Index: rand.Intn(upgrades)})
		return network.PlayerAction{Type: network.ActionPurchase, Payload: payload}
	}
	return network.PlayerAction{Type: network.ActionDig}
}

func printResults(stats *Stats, config Config, out string) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	states := atomic.LoadInt64(&stats.StatesReceived)
	evts := atomic.LoadInt64(&stats.EventsReceived)
	refused := atomic.LoadInt64(&stats.Refusals)
	errs := atomic.LoadInt64(&stats.Errors)
	wells := atomic.LoadInt64(&stats.WellsSeen)

	fmt.Printf("Actions Sent:      %d\n", sent)
	fmt.Printf("States Received:   %d\n", states)
	fmt.Printf("Events Received:   %d\n", evts)
	fmt.Printf("Refused Actions:   %d\n", refused)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Wells Observed:    %d\n", wells)
	fmt.Printf("Game Completed:    %v\n", atomic.LoadInt32(&stats.GameCompleted) == 1)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()
	if len(latencies) > 0 {
		var total time.Duration
		lo, hi := latencies[0], latencies[0]
		for _, l := range latencies {
			total += l
			if l < lo {
				lo = l
			}
			if l > hi {
				hi = l
			}
		}
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("✅ TEST PASSED: System handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	default:
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"actions_sent":       sent,
		"states_received":    states,
		"events_received":    evts,
		"refused":            refused,
		"errors":             errs,
		"wells_observed":     wells,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":    config.NumClients,
			"interval":   config.ActionInterval.String(),
			"duration":   config.TestDuration.String(),
			"difficulty": config.Difficulty,
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(out, jsonData, 0644); err != nil {
		log.Printf("write results: %v", err)
		return
	}
	fmt.Printf("\n📁 Results saved to %s\n", out)
}
