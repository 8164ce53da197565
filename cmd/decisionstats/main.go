package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brensch/cycles/game"
	"github.com/brensch/cycles/store"
)

func main() {
	roots := flag.String("roots", getEnvOrDefault("DECISION_ROOTS", "data"), "Comma separated directories holding decision parquet files")
	asJSON := flag.Bool("json", false, "Print summaries as JSON")
	timeout := flag.Duration("timeout", 5*time.Minute, "Query timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	summaries, err := store.Summarize(ctx, strings.Split(*roots, ",")...)
	if err != nil {
		log.Fatalf("Summarize failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	fmt.Printf("%-20s %-15s %7s %9s %8s %6s %6s", "AGENT", "POLICY", "GAMES", "TICKS", "INERTIA", "FLEE", "STALE")
	for _, d := range game.Directions {
		fmt.Printf(" %6s", strings.ToUpper(d.String()[:1]))
	}
	fmt.Println()
	for _, s := range summaries {
		fmt.Printf("%-20s %-15s %7d %9d %8.1f %5.1f%% %6d", s.Agent, s.Policy, s.Games, s.Ticks, s.AvgInertia, s.FleeRatio*100, s.StaleTicks)
		for _, d := range game.Directions {
			fmt.Printf(" %6d", s.Moves[d.String()])
		}
		fmt.Println()
	}
	log.Printf("Summarized %d agents in %s", len(summaries), time.Since(start).Round(time.Millisecond))
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
