// Package graph is a thin client over a Bolt-compatible graph database used
// for the transaction lineage sink.
package graph

import (
	"context"
	"errors"
)

// Client runs Cypher statements. Parameters are plain maps so callers do
// not depend on the driver's types.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the records returned by a statement.
type Result struct {
	Records []Record
}

// Record maps return keys to values.
type Record map[string]any

// Options configures the Bolt client.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI is returned when no graph URI is configured.
var ErrMissingURI = errors.New("graph URI is required")
