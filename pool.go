package spacetime

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// pool runs independent units of work with bounded parallelism.
type pool struct {
	workers int
}

// run calls fn for every i in [0, n). The first error cancels the remaining
// work; a cancelled parent context is reported even when no unit ran.
func (p pool) run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
