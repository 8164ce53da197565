package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/cycles/client"
	"github.com/brensch/cycles/engine"
	"github.com/brensch/cycles/logging"
	"github.com/brensch/cycles/store"
)

func main() {
	serverURL := flag.String("server", getEnvOrDefault("CYCLES_SERVER", "ws://localhost:8080/ws"), "Game server websocket URL")
	name := flag.String("name", getEnvOrDefault("CYCLES_NAME", "cyclesbot"), "Agent name announced to the server")
	policyName := flag.String("policy", getEnvOrDefault("CYCLES_POLICY", string(engine.PolicyThreatAware)), "Scoring policy: open-space, threat-aware, visited-border or pursuit")
	seed := flag.Int64("seed", int64(getEnvIntOrDefault("CYCLES_SEED", 0)), "Inertia seed (0 uses the clock)")
	threatRadius := flag.Int("threat-radius", getEnvIntOrDefault("CYCLES_THREAT_RADIUS", engine.DefaultThreatRadius), "Manhattan distance that triggers flee mode")
	crowdRadius := flag.Int("crowd-radius", getEnvIntOrDefault("CYCLES_CROWD_RADIUS", engine.DefaultCrowdRadius), "Manhattan distance counted as crowding by visited-border")
	holdBonus := flag.Int("hold-bonus", getEnvIntOrDefault("CYCLES_HOLD_BONUS", 0), "Score bonus for keeping the previous heading while inertia is positive")
	maxStale := flag.Int("max-stale", getEnvIntOrDefault("CYCLES_MAX_STALE", 0), "Ticks the agent may be missing from state before giving up (0 = unbounded)")
	onStuck := flag.String("on-stuck", getEnvOrDefault("CYCLES_ON_STUCK", string(client.StuckExit)), "What to do with no legal move: exit or hold")
	games := flag.Int("games", getEnvIntOrDefault("CYCLES_GAMES", 1), "Games to play before exiting (0 = until interrupted)")
	reconnectDelay := flag.Duration("reconnect-delay", getEnvDurationOrDefault("CYCLES_RECONNECT_DELAY", 2*time.Second), "Pause between games")
	readTimeout := flag.Duration("read-timeout", getEnvDurationOrDefault("CYCLES_READ_TIMEOUT", 30*time.Second), "Max wait for a state frame")
	recordDir := flag.String("record-dir", getEnvOrDefault("CYCLES_RECORD_DIR", ""), "If set, write every decision to a parquet file in this directory")
	logFormat := flag.String("log-format", getEnvOrDefault("CYCLES_LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	logLevel := flag.String("log-level", getEnvOrDefault("CYCLES_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid -log-level: %v", err)
	}
	logger, err := logging.New(os.Stderr, *logFormat, level)
	if err != nil {
		log.Fatalf("Invalid -log-format: %v", err)
	}
	slog.SetDefault(logger)

	policy, err := engine.ParsePolicy(*policyName)
	if err != nil {
		log.Fatalf("Invalid -policy: %v", err)
	}
	stuck, err := client.ParseStuckPolicy(*onStuck)
	if err != nil {
		log.Fatalf("Invalid -on-stuck: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder client.Recorder
	var batch *store.BatchWriter
	if *recordDir != "" {
		batch, err = store.NewBatchWriter(*recordDir)
		if err != nil {
			log.Fatalf("Failed to open decision recorder: %v", err)
		}
		recorder = batch
		log.Printf("Recording decisions to %s", batch.TmpPath())
	}

	log.Printf("Starting cycles bot")
	log.Printf("  Server: %s", *serverURL)
	log.Printf("  Name: %s", *name)
	log.Printf("  Policy: %s", policy)
	log.Printf("  On Stuck: %s", stuck)

	newEngine := func(gameNum int) (*engine.Engine, error) {
		cfg := engine.DefaultConfig(*name)
		cfg.Policy = policy
		cfg.ThreatRadius = *threatRadius
		cfg.CrowdRadius = *crowdRadius
		cfg.HoldBonus = *holdBonus
		cfg.MaxStaleTicks = *maxStale
		cfg.Logger = logger
		if *seed != 0 {
			s := *seed + int64(gameNum)
			cfg.Seed = &s
		}
		return engine.New(cfg)
	}

	exitCode := 0
	for played := 0; *games <= 0 || played < *games; played++ {
		if played > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(*reconnectDelay):
			}
		}
		if ctx.Err() != nil {
			break
		}

		e, err := newEngine(played)
		if err != nil {
			log.Fatalf("Failed to build engine: %v", err)
		}
		res, err := playOne(ctx, *serverURL, *name, *readTimeout, e, recorder, stuck, logger)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Printf("Game %d failed after %d ticks: %v", played+1, res.Ticks, err)
			exitCode = 1
			continue
		}
		log.Printf("Game %d (%s) finished: ticks=%d skipped=%d winner=%q", played+1, res.GameID, res.Ticks, res.Skipped, res.Winner)
	}

	if batch != nil {
		outPath, rows, nGames, err := batch.Finalize()
		if err != nil {
			log.Printf("Failed to finalize decisions: %v", err)
			exitCode = 1
		} else if rows > 0 {
			log.Printf("Wrote %d decisions from %d games to %s", rows, nGames, outPath)
		}
	}
	os.Exit(exitCode)
}

func playOne(ctx context.Context, serverURL, name string, readTimeout time.Duration, e *engine.Engine, recorder client.Recorder, stuck client.StuckPolicy, logger *slog.Logger) (client.Result, error) {
	cfg := client.DefaultConfig(serverURL, name)
	cfg.ReadTimeout = readTimeout

	conn, err := client.Dial(ctx, cfg, logger)
	if err != nil {
		return client.Result{}, err
	}
	defer conn.Close()

	if err := conn.Join(); err != nil {
		return client.Result{}, fmt.Errorf("join: %w", err)
	}

	agent := &client.Agent{
		Transport: conn,
		Engine:    e,
		Recorder:  recorder,
		Stuck:     stuck,
		Logger:    logger,
	}
	return agent.Run(ctx)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
