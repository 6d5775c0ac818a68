package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider"
)

// Execute runs steps in order for one artist, folding each step's result
// into the state. A failing step is logged and skipped so later steps still
// run. Only exhausted rate-limit retries and cancellation abort the chain.
func (e *Engine) Execute(ctx context.Context, a *artist.Artist, steps []Step) (State, error) {
	var s State
	for _, step := range steps {
		r, err := step.Run(ctx, a, s)
		if err != nil {
			if isFatal(err) {
				return s, fmt.Errorf("step %s: %w", step.Name, err)
			}
			level := slog.LevelWarn
			if isNotFound(err) {
				level = slog.LevelDebug
			}
			e.logger.Log(ctx, level, "enrichment step failed",
				"artist_id", a.ID, "step", step.Name, "error", err)
			continue
		}
		s = s.Merge(r)
	}
	return s, nil
}

// isFatal reports whether err must abort the current artist rather than
// just the current step.
func isFatal(err error) bool {
	var rl *provider.ErrRateLimited
	return errors.As(err, &rl) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isNotFound(err error) bool {
	var nf *provider.ErrNotFound
	return errors.As(err, &nf)
}
