package core

// readahead.go parses a window of lines concurrently ahead of admission.
//
// Parsing is pure, so lines within a window can be decoded in any order on
// a bounded pool of goroutines. Results are written into a slice indexed by
// line position and consumed strictly in order by the admission stage.

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWindowSize is the number of lines parsed ahead of admission.
const DefaultWindowSize = 1024

// parseFunc decodes one line into an entity pointer.
type parseFunc func([]byte) (any, error)

func parserFor(kind EntityKind) (parseFunc, error) {
	switch kind {
	case EntityCustomer:
		return func(b []byte) (any, error) { return ParseCustomer(b) }, nil
	case EntityProduct:
		return func(b []byte) (any, error) { return ParseProduct(b) }, nil
	case EntityTransaction:
		return func(b []byte) (any, error) { return ParseTransaction(b) }, nil
	case EntityErasureRequest:
		return func(b []byte) (any, error) { return ParseErasureRequest(b) }, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}

// rawLine is a line read from a batch with its 1-based position.
type rawLine struct {
	number int
	data   []byte
}

type parsed struct {
	entity any
	err    error
}

// parseWindow parses lines on at most workers goroutines. Per-line errors are
// returned in the result slice; only context cancellation fails the call.
func parseWindow(ctx context.Context, parse parseFunc, lines []rawLine, workers int) ([]parsed, error) {
	out := make([]parsed, len(lines))
	if workers <= 1 || len(lines) < 2 {
		for i, l := range lines {
			out[i].entity, out[i].err = parse(l.data)
		}
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i].entity, out[i].err = parse(lines[i].data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// defaultWorkers is used when SessionOptions.ParseWorkers is unset.
func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}
