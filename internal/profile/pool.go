package profile

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Stage is the progress of one entity through the pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageParkRelation
	StageLayersClipped
	StageAggregated
	StageMerged
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageParkRelation:
		return "park_relation_computed"
	case StageLayersClipped:
		return "layers_clipped"
	case StageAggregated:
		return "aggregated"
	case StageMerged:
		return "merged"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// forEach calls fn for every index in [0, n) on at most workers
// goroutines. Scheduling stops once ctx is done or fn fails.
func forEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "profile: cancelled")
			}
			return fn(gCtx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "profile: cancelled")
	}
	return nil
}
