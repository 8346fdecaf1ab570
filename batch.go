package matchengine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openincentives/matchengine/pkg/types"
)

// MatchAll runs Match for every target with bounded parallelism. Results
// align with the input slice; a target that failed leaves a nil entry.
// Failures do not cancel the other targets; the errors come back joined.
func (m *HybridMatcher) MatchAll(ctx context.Context, targets []*types.Program) ([]*types.MatchRun, error) {
	runs := make([]*types.MatchRun, len(targets))
	var mu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Parallelism)

	for i, target := range targets {
		g.Go(func() error {
			run, err := m.Match(ctx, target)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("target %q: %w", target.ID, err))
				mu.Unlock()
				// Returning nil keeps the group running for the
				// remaining targets.
				return nil
			}
			runs[i] = run
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return runs, err
	}
	return runs, errors.Join(errs...)
}
