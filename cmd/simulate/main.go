// Package main - simulate
// Plays every difficulty headlessly and prints when each well gets finished.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/config"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
	"github.com/MRamiBalles/WellBuilder/server/internal/sim"
)

func main() {
	only := flag.String("difficulty", "", "Simulate a single difficulty (easy, normal, hard)")
	clicks := flag.Int("clicks", 5, "Manual digs per simulated second")
	maxTime := flag.Duration("max", 24*time.Hour, "Simulated time limit per playthrough")
	seed := flag.Int64("seed", 1, "Seed for the country draw")
	balance := flag.String("balance", "", "Optional YAML balance file")
	jsonOut := flag.Bool("json", false, "Print the reports as JSON")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	log := logger.NewLogger(*logLevel)
	defer log.Sync()

	var table difficulty.Table
	if *balance != "" {
		t, err := config.LoadBalance(*balance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		table = t
	}

	targets := difficulty.All()
	if *only != "" {
		d, err := difficulty.Parse(*only)
		if err != nil || !d.IsSet() {
			fmt.Fprintf(os.Stderr, "❌ unknown difficulty %q\n", *only)
			os.Exit(1)
		}
		targets = []difficulty.Difficulty{d}
	}

	ctx := context.Background()
	reports := make([]sim.Report, 0, len(targets))
	failed := 0

	for _, d := range targets {
		report, err := sim.NewAutoPlayer(sim.Config{
			Difficulty:      d,
			Table:           table,
			ClicksPerSecond: *clicks,
			MaxSeconds:      int(maxTime.Seconds()),
			Seed:            *seed,
		}, log).Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", d, err)
			os.Exit(1)
		}
		if !report.Completed {
			failed++
		}
		reports = append(reports, report)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(reports)
	} else {
		for _, r := range reports {
			printReport(r)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func printReport(r sim.Report) {
	p := message.NewPrinter(language.English)
	line := strings.Repeat("=", 60)

	fmt.Println("\n" + line)
	fmt.Printf("💧 %s playthrough\n", strings.ToUpper(string(r.Difficulty)))
	fmt.Println(line)
	for _, w := range r.Wells {
		fmt.Printf("   Well %2d  %-26s %s\n", w.Number, w.Country, time.Duration(w.Second)*time.Second)
	}
	p.Printf("   People helped: %d\n", r.PeopleHelped)
	fmt.Printf("   Purchases: %v\n", r.Purchases)
	if r.Completed {
		fmt.Printf("✅ Finished in %s\n", time.Duration(r.Seconds)*time.Second)
	} else {
		fmt.Printf("❌ Not finished after %s (%d/%d wells)\n",
			time.Duration(r.Seconds)*time.Second, len(r.Wells), r.Final.WellsRequired)
	}
}
