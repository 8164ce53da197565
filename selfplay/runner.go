package selfplay

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/cycles/store"
)

// ResultFunc is called from worker goroutines after each game. It must be
// safe for concurrent use. Returning an error stops the run.
type ResultFunc func(worker int, res GameResult, rows []store.DecisionRow) error

// RunGames plays n games across workers goroutines. n <= 0 plays until ctx
// is cancelled. Game i uses cfg.Seed+i when cfg.Seed is set, so a seeded
// run is reproducible game by game regardless of scheduling.
func RunGames(ctx context.Context, n, workers int, cfg GameConfig, onResult ResultFunc) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; n <= 0 || i < n; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				gc := cfg
				if cfg.Seed != 0 {
					gc.Seed = cfg.Seed + int64(i)
				}
				res, rows, err := PlayGame(ctx, gc)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				if onResult != nil {
					if err := onResult(w, res, rows); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	return g.Wait()
}
