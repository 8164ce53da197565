package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/cycles/engine"
	"github.com/brensch/cycles/logging"
	"github.com/brensch/cycles/selfplay"
	"github.com/brensch/cycles/store"
)

var totalTicks atomic.Int64
var totalRows atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Result   selfplay.GameResult
}

type runDoneMsg struct {
	err error
}

type gameWriteRequest struct {
	rows []store.DecisionRow
}

type model struct {
	gamesPlayed int
	stuck       int
	ticks       int64
	rows        int64
	wins        map[string]int
	draws       int
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
	cancel      context.CancelFunc
	done        bool
	err         error
}

func initialModel(updates chan GameUpdate, cancel context.CancelFunc) model {
	return model{
		startTime: time.Now(),
		wins:      make(map[string]int),
		updates:   updates,
		cancel:    cancel,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
	case TickMsg:
		m.ticks = totalTicks.Load()
		m.rows = totalRows.Load()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.stuck += msg.Result.Stuck
		winner := msg.Result.Winner
		if winner == "" {
			m.draws++
			winner = "draw"
		} else {
			m.wins[winner]++
		}
		logMsg := fmt.Sprintf("Worker %d: Winner %s, Ticks %d, Rows %d", msg.WorkerID, winner, msg.Result.Ticks, msg.Result.Rows)
		m.recentGames = append([]string{logMsg}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	ticksPerSec := float64(m.ticks) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
		ticksPerSec = 0
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games Played:   %d\n", m.gamesPlayed)
	fmt.Fprintf(&sb, "Total Ticks:    %d\n", m.ticks)
	fmt.Fprintf(&sb, "Decisions:      %d\n", m.rows)
	fmt.Fprintf(&sb, "Stuck Ticks:    %d\n", m.stuck)
	fmt.Fprintf(&sb, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&sb, "Games/Sec:      %.2f\n", gamesPerSec)
	fmt.Fprintf(&sb, "Ticks/Sec:      %.2f\n\n", ticksPerSec)

	sb.WriteString("Wins:\n")
	names := make([]string, 0, len(m.wins))
	for name := range m.wins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return m.wins[names[i]] > m.wins[names[j]] })
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-16s %d\n", name, m.wins[name])
	}
	fmt.Fprintf(&sb, "  %-16s %d\n\n", "draw", m.draws)

	sb.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		sb.WriteString(g + "\n")
	}

	if m.done {
		if m.err != nil {
			fmt.Fprintf(&sb, "\nStopped: %v\n", m.err)
		} else {
			sb.WriteString("\nDone.\n")
		}
	} else {
		sb.WriteString("\nPress q to quit.\n")
	}
	return sb.String()
}

func main() {
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", "data/selfplay"), "Output directory for decision parquet batches (empty disables recording)")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", 4), "Number of self-play workers")
	games := flag.Int("games", getEnvIntOrDefault("GAMES", 100), "Games to play (0 = until interrupted)")
	gamesPerFlush := flag.Int("games-per-flush", getEnvIntOrDefault("GAMES_PER_FLUSH", 50), "Number of games per parquet file")
	width := flag.Int("width", getEnvIntOrDefault("WIDTH", 20), "Grid width")
	height := flag.Int("height", getEnvIntOrDefault("HEIGHT", 20), "Grid height")
	maxTicks := flag.Int("max-ticks", getEnvIntOrDefault("MAX_TICKS", 0), "Tick limit per game (0 = width*height)")
	seed := flag.Int64("seed", int64(getEnvIntOrDefault("SEED", 0)), "Base seed (0 uses the clock)")
	policies := flag.String("policies", getEnvOrDefault("POLICIES", "open-space,threat-aware,visited-border,pursuit"), "Comma separated policy per seat")
	holdBonus := flag.Int("hold-bonus", getEnvIntOrDefault("HOLD_BONUS", 0), "Hold bonus applied to every seat")
	useTUI := flag.Bool("tui", getEnvBoolOrDefault("TUI", true), "Show the live progress view")
	logPath := flag.String("log-file", getEnvOrDefault("LOG_FILE", ""), "Write logs here (defaults to stderr without the TUI, discarded with it)")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "warn"), "Log level: debug, info, warn or error")
	flag.Parse()

	var logOut io.Writer = os.Stderr
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		logOut = f
	} else if *useTUI {
		logOut = io.Discard
	}
	log.SetOutput(logOut)

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid -log-level: %v", err)
	}
	logger, err := logging.New(logOut, logging.FormatText, level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	cfg := selfplay.GameConfig{
		Width:    *width,
		Height:   *height,
		MaxTicks: *maxTicks,
		Seed:     *seed,
		Logger:   logger,
	}
	for i, name := range strings.Split(*policies, ",") {
		kind, err := engine.ParsePolicy(strings.TrimSpace(name))
		if err != nil {
			log.Fatalf("Invalid -policies: %v", err)
		}
		cfg.Players = append(cfg.Players, selfplay.PlayerConfig{
			Name:      fmt.Sprintf("%s-%d", kind, i),
			Policy:    kind,
			HoldBonus: *holdBonus,
		})
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *gamesPerFlush, writeReqs)
		close(writerDone)
	}()

	runDone := make(chan error, 1)
	go func() {
		err := selfplay.RunGames(ctx, *games, *workers, cfg, func(worker int, res selfplay.GameResult, rows []store.DecisionRow) error {
			totalGames.Add(1)
			totalTicks.Add(int64(res.Ticks))
			totalRows.Add(int64(len(rows)))
			if len(rows) > 0 {
				writeReqs <- gameWriteRequest{rows: rows}
			}
			// Avoid blocking the workers if the UI stops consuming.
			select {
			case updates <- GameUpdate{WorkerID: worker, Result: res}:
			default:
			}
			return nil
		})
		close(writeReqs)
		runDone <- err
	}()

	log.Printf("Starting self-play: %d workers, %d seats on %dx%d", *workers, len(cfg.Players), *width, *height)

	var runErr error
	if *useTUI {
		p := tea.NewProgram(initialModel(updates, cancel))
		finished := make(chan error, 1)
		go func() {
			err := <-runDone
			finished <- err
			p.Send(runDoneMsg{err: err})
		}()
		if _, err := p.Run(); err != nil {
			log.Fatal(err)
		}
		cancel()
		runErr = <-finished
	} else {
		runErr = plainProgress(ctx, updates, runDone)
	}

	<-writerDone
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "self-play stopped: %v\n", runErr)
		os.Exit(1)
	}
	fmt.Printf("Played %d games (%d ticks, %d decisions)\n", totalGames.Load(), totalTicks.Load(), totalRows.Load())
}

// plainProgress logs results and periodic rates until the run finishes.
func plainProgress(ctx context.Context, updates <-chan GameUpdate, runDone <-chan error) error {
	startTime := time.Now()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-runDone:
			log.Printf("Run complete (games=%d)", totalGames.Load())
			return err
		case update := <-updates:
			log.Printf("Worker %d: Winner %q, Ticks %d, Rows %d", update.WorkerID, update.Result.Winner, update.Result.Ticks, update.Result.Rows)
		case <-ticker.C:
			duration := time.Since(startTime)
			log.Printf("Stats: Games/s: %.2f, Ticks/s: %.2f", float64(totalGames.Load())/duration.Seconds(), float64(totalTicks.Load())/duration.Seconds())
		case <-ctx.Done():
			log.Printf("Shutdown requested; waiting for workers to finish current games...")
			return <-runDone
		}
	}
}

// parquetWriterLoop rotates to a new batch file every gamesPerFlush games.
func parquetWriterLoop(outDir string, gamesPerFlush int, in <-chan gameWriteRequest) {
	if outDir == "" {
		for range in {
		}
		return
	}
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	pendingGames := 0

	flush := func() {
		if w == nil {
			return
		}
		outPath, rows, games, err := w.Finalize()
		if err != nil {
			log.Printf("Parquet flush failed (games=%d): %v", pendingGames, err)
		} else if rows > 0 {
			log.Printf("Parquet flush ok: %s (games=%d rows=%d)", outPath, games, rows)
		}
		w = nil
		pendingGames = 0
	}

	for req := range in {
		if w == nil {
			var err error
			w, err = store.NewBatchWriter(outDir)
			if err != nil {
				log.Printf("Failed to open batch writer: %v", err)
				continue
			}
		}
		if err := w.WriteRows(req.rows); err != nil {
			log.Printf("Failed to buffer rows: %v", err)
			continue
		}
		pendingGames++
		if pendingGames >= gamesPerFlush {
			flush()
		}
	}
	flush()
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

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
