// Package selfplay runs decision engines against each other in process,
// using the same rules a server would apply.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/cycles/engine"
	"github.com/brensch/cycles/game"
	"github.com/brensch/cycles/rules"
	"github.com/brensch/cycles/store"
)

// PlayerConfig describes one seat at the table.
type PlayerConfig struct {
	Name      string
	Policy    engine.PolicyKind
	HoldBonus int
}

// GameConfig describes one game. A zero Seed uses the clock.
type GameConfig struct {
	Width    int
	Height   int
	Players  []PlayerConfig
	MaxTicks int
	Seed     int64
	// Trace prints the board every tick through Logger at Debug.
	Trace  bool
	Logger *slog.Logger
}

// DefaultGameConfig seats one player per policy on a 20x20 grid.
func DefaultGameConfig() GameConfig {
	cfg := GameConfig{Width: 20, Height: 20}
	for _, k := range engine.Policies {
		cfg.Players = append(cfg.Players, PlayerConfig{Name: string(k), Policy: k})
	}
	return cfg
}

type GameResult struct {
	GameID string
	Winner string
	Ticks  int
	// Stuck counts ticks where an engine found no legal move.
	Stuck int
	Rows  int
}

// PlayGame plays one game to completion and returns one decision row per
// player per decided tick. An engine with no legal move submits nothing and
// its player dies in the next step.
func PlayGame(ctx context.Context, cfg GameConfig) (GameResult, []store.DecisionRow, error) {
	if len(cfg.Players) == 0 {
		return GameResult{}, nil, fmt.Errorf("no players configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxTicks := cfg.MaxTicks
	if maxTicks <= 0 {
		maxTicks = cfg.Width * cfg.Height
	}

	gameID := uuid.NewString()
	logger = logger.With("game_id", gameID)

	state := game.NewGameState(cfg.Width, cfg.Height)
	names := make([]string, len(cfg.Players))
	for i, p := range cfg.Players {
		names[i] = p.Name
	}
	rng := rand.New(rand.NewSource(seed))
	if err := game.SpawnPlayers(state, names, rng, uint64(seed)); err != nil {
		return GameResult{}, nil, fmt.Errorf("spawn: %w", err)
	}

	engines := make([]*engine.Engine, len(cfg.Players))
	for i, p := range cfg.Players {
		engineSeed := seed + int64(i) + 1
		ecfg := engine.DefaultConfig(p.Name)
		ecfg.Policy = p.Policy
		ecfg.HoldBonus = p.HoldBonus
		ecfg.Seed = &engineSeed
		ecfg.Logger = logger
		e, err := engine.New(ecfg)
		if err != nil {
			return GameResult{}, nil, fmt.Errorf("player %s: %w", p.Name, err)
		}
		engines[i] = e
	}

	res := GameResult{GameID: gameID}
	var rows []store.DecisionRow

	for !finished(state) && state.Tick < maxTicks {
		if err := ctx.Err(); err != nil {
			return res, rows, err
		}
		if cfg.Trace {
			logger.Debug("board", "tick", state.Tick, "board", "\n"+RenderBoard(state))
		}

		moves := make(map[string]game.Direction, len(state.Players))
		for i, p := range state.Players {
			if !p.Alive {
				continue
			}
			e := engines[i]
			move, err := e.Decide(state)
			if errors.Is(err, engine.ErrNoLegalMove) {
				res.Stuck++
				continue
			}
			if err != nil {
				return res, rows, fmt.Errorf("tick %d player %s: %w", state.Tick, p.Name, err)
			}
			moves[p.Name] = move
			rows = append(rows, store.NewDecisionRow(gameID, p.Name, e.Policy(), "selfplay", e.LastDecision()))
		}

		state = rules.Step(state, moves)
	}

	res.Winner = rules.Winner(state)
	res.Ticks = state.Tick
	res.Rows = len(rows)
	logger.Debug("game finished", "winner", res.Winner, "ticks", res.Ticks, "stuck", res.Stuck)
	return res, rows, nil
}

// finished reports whether play should stop. A solo game runs until its
// only player dies.
func finished(state *game.GameState) bool {
	if len(state.Players) == 1 {
		return !state.Players[0].Alive
	}
	return rules.IsGameOver(state)
}
