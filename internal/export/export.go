// Package export fans a session snapshot out to downstream stores.
//
// Each sink receives the same immutable snapshot and runs on its own
// goroutine. A failing sink does not stop the others; all failures are
// joined into the returned error.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// Sink writes a snapshot to one downstream store.
type Sink interface {
	Name() string
	Export(ctx context.Context, snap *core.Snapshot) (Summary, error)
	Close(ctx context.Context) error
}

// Summary reports what a sink wrote, keyed by table, topic or label.
type Summary struct {
	Sink     string         `json:"sink"`
	Rows     map[string]int `json:"rows"`
	Duration time.Duration  `json:"duration_ns"`
	Error    string         `json:"error,omitempty"`
}

// SinkError ties a failure to the sink that produced it.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("export %s: %v", e.Sink, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }

// Run exports snap to every sink concurrently and returns one summary per
// sink in the order given.
func Run(ctx context.Context, snap *core.Snapshot, logger *slog.Logger, sinks ...Sink) ([]Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	summaries := make([]Summary, len(sinks))
	errs := make([]error, len(sinks))

	var g errgroup.Group
	for i, s := range sinks {
		g.Go(func() error {
			start := time.Now()
			sum, err := s.Export(ctx, snap)
			sum.Sink = s.Name()
			sum.Duration = time.Since(start)
			if err != nil {
				sum.Error = err.Error()
				errs[i] = &SinkError{Sink: s.Name(), Err: err}
				logger.Error("export failed", "sink", s.Name(), "error", err)
			} else {
				logger.Info("export complete", "sink", s.Name(), "rows", sum.Rows, "duration", sum.Duration)
			}
			summaries[i] = sum
			return nil
		})
	}
	_ = g.Wait()
	return summaries, errors.Join(errs...)
}

// CloseAll closes every sink and joins the errors.
func CloseAll(ctx context.Context, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
