package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Workers runs fn once per worker index in [0, workers) on separate goroutines
// and waits for all of them. The context passed to fn is cancelled as soon as
// one worker fails; the first error is returned.
func Workers(ctx context.Context, workers int, fn func(ctx context.Context, worker int) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return fn(gctx, w)
		})
	}

	return g.Wait()
}

// Strided splits the index range [0, n) across workers round-robin: worker w
// handles w, w+workers, w+2*workers, ... Striding keeps triangular workloads
// (row i costing n-i) balanced. Returns the first error encountered.
func Strided(ctx context.Context, n, workers int, fn func(worker, index int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return nil
	}

	return Workers(ctx, workers, func(ctx context.Context, worker int) error {
		for i := worker; i < n; i += workers {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(worker, i); err != nil {
				return err
			}
		}
		return nil
	})
}
