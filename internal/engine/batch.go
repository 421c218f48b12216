package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tablequery/internal/translator"
)

// BatchResult is the outcome of one request of a batch.
type BatchResult struct {
	Index int
	Query *translator.CompiledQuery
	Err   error
}

// CompileBatch compiles requests concurrently, at most Config.Concurrency at
// a time. A failing request does not stop the others; its error is kept on
// its result. Results come back in request order. The returned error is only
// set when ctx is done before every request ran.
func (e *Engine) CompileBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := e.Compile(gctx, req)
			results[i] = BatchResult{Index: i, Query: q, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Debug("compiled batch", slog.Int("queries", len(reqs)), slog.Int("failed", failed))
	return results, nil
}
