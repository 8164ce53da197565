package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/brensch/cycles/engine"
	"github.com/brensch/cycles/game"
	"github.com/brensch/cycles/store"
)

// StuckPolicy decides what the agent loop does when the engine reports
// that no legal move exists.
type StuckPolicy string

const (
	// StuckExit stops the loop and returns the error.
	StuckExit StuckPolicy = "exit"
	// StuckHold repeats the previous heading and keeps playing.
	StuckHold StuckPolicy = "hold"
)

func ParseStuckPolicy(s string) (StuckPolicy, error) {
	switch StuckPolicy(s) {
	case StuckExit, StuckHold:
		return StuckPolicy(s), nil
	}
	return "", fmt.Errorf("unknown stuck policy %q (want exit or hold)", s)
}

// Transport is the part of Conn the agent loop needs.
type Transport interface {
	ReceiveState(ctx context.Context) (*game.GameState, error)
	SendMove(tick int, d game.Direction) error
	GameID() string
	Winner() string
}

// Decider is the part of engine.Engine the agent loop needs.
type Decider interface {
	Name() string
	Policy() engine.PolicyKind
	Decide(state *game.GameState) (game.Direction, error)
	LastDecision() engine.Decision
}

// Recorder receives one row per decided tick. *store.BatchWriter satisfies it.
type Recorder interface {
	WriteRows(rows []store.DecisionRow) error
}

// Result summarizes one played game.
type Result struct {
	GameID  string
	Ticks   int
	Winner  string
	Skipped int
}

// Agent runs the receive, decide, record, send loop.
type Agent struct {
	Transport Transport
	Engine    Decider
	Recorder  Recorder
	Stuck     StuckPolicy
	Logger    *slog.Logger
	// GameID labels recorded rows when the server does not send one.
	GameID string
}

// Run plays until the server ends the game, the connection closes or ctx
// is cancelled. Game over and a normal close are not errors.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent", a.Engine.Name())

	res := Result{GameID: a.GameID}
	if res.GameID == "" {
		res.GameID = uuid.NewString()
	}

	var prev game.Direction
	hasPrev := false

	for {
		state, err := a.Transport.ReceiveState(ctx)
		switch {
		case errors.Is(err, ErrGameOver):
			res.Winner = a.Transport.Winner()
			logger.Info("game over", "ticks", res.Ticks, "winner", res.Winner)
			return res, nil
		case errors.Is(err, ErrClosed):
			logger.Info("server closed the connection", "ticks", res.Ticks)
			return res, nil
		case err != nil:
			return res, fmt.Errorf("receive state: %w", err)
		}
		if id := a.Transport.GameID(); id != "" {
			res.GameID = id
		}

		move, err := a.Engine.Decide(state)
		switch {
		case errors.Is(err, engine.ErrNoLegalMove):
			if a.Stuck != StuckHold {
				return res, err
			}
			if !hasPrev {
				prev = game.North
			}
			logger.Warn("no legal move, holding heading", "tick", state.Tick, "move", prev.String())
			move = prev
		case errors.Is(err, engine.ErrMissingSelf):
			logger.Warn("skipping tick", "tick", state.Tick, "err", err)
			res.Skipped++
			continue
		case err != nil:
			return res, fmt.Errorf("decide tick %d: %w", state.Tick, err)
		default:
			if a.Recorder != nil {
				row := store.NewDecisionRow(res.GameID, a.Engine.Name(), a.Engine.Policy(), "live", a.Engine.LastDecision())
				if err := a.Recorder.WriteRows([]store.DecisionRow{row}); err != nil {
					logger.Error("record decision", "tick", state.Tick, "err", err)
				}
			}
		}

		if err := a.Transport.SendMove(state.Tick, move); err != nil {
			return res, fmt.Errorf("send move: %w", err)
		}
		prev, hasPrev = move, true
		res.Ticks++
	}
}
