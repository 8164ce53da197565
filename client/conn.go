// Package client connects a decision engine to a light-cycle game server
// over a websocket and drives it one tick at a time.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/cycles/game"
)

var (
	// ErrGameOver is returned by ReceiveState once the server ends the game.
	ErrGameOver = errors.New("game over")
	// ErrClosed is returned when the server closes the connection normally.
	ErrClosed = errors.New("connection closed")
)

// Config holds transport configuration.
type Config struct {
	ServerURL      string
	Name           string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(serverURL, name string) Config {
	return Config{
		ServerURL:      serverURL,
		Name:           name,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Conn is one agent's websocket session.
type Conn struct {
	cfg  Config
	ws   *websocket.Conn
	log  *slog.Logger
	wmu  sync.Mutex
	once sync.Once

	gameID string
	winner string
}

// Dial connects to the server. The agent name is passed as the "name" query
// parameter; Join announces it again in-band.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Conn, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("name", cfg.Name)
	u.RawQuery = q.Encode()

	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Conn{cfg: cfg, ws: ws, log: logger.With("agent", cfg.Name)}, nil
}

func (c *Conn) Join() error {
	return c.write(EventJoin, JoinData{Name: c.cfg.Name})
}

// GameID returns the id reported by the server, if any.
func (c *Conn) GameID() string { return c.gameID }

// Winner is set once ReceiveState has returned ErrGameOver.
func (c *Conn) Winner() string { return c.winner }

// ReceiveState blocks until the next state frame. Unknown or malformed
// frames are logged and skipped.
//
// Cancelling ctx interrupts a blocked read; the connection is not usable
// for further reads afterwards.
func (c *Conn) ReceiveState(ctx context.Context) (*game.GameState, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		var deadline time.Time
		if c.cfg.ReadTimeout > 0 {
			deadline = time.Now().Add(c.cfg.ReadTimeout)
		}
		if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
			deadline = d
		}
		if err := c.ws.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
		// Cancellation may have fired before the deadline was reset.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
				return nil, context.DeadlineExceeded
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read error: %w", err)
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.log.Warn("failed to parse event", "err", err)
			continue
		}

		switch event.Type {
		case EventState:
			var data StateData
			if err := json.Unmarshal(event.Data, &data); err != nil {
				c.log.Warn("failed to parse state", "err", err)
				continue
			}
			state, err := data.ToGameState()
			if err != nil {
				c.log.Warn("rejected state frame", "tick", data.Tick, "err", err)
				continue
			}
			if data.GameID != "" {
				c.gameID = data.GameID
			}
			return state, nil

		case EventGameOver:
			var data GameOverData
			if err := json.Unmarshal(event.Data, &data); err != nil {
				c.log.Warn("failed to parse game_over", "err", err)
			}
			c.winner = data.Winner
			return nil, ErrGameOver

		default:
			c.log.Debug("ignoring event", "type", event.Type)
		}
	}
}

func (c *Conn) SendMove(tick int, d game.Direction) error {
	return c.write(EventMove, MoveData{Name: c.cfg.Name, Tick: tick, Direction: d.String()})
}

func (c *Conn) write(typ string, data any) error {
	payload, err := NewEvent(typ, data)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// Close sends a close frame and releases the socket. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.wmu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = c.ws.Close()
	})
	return err
}
