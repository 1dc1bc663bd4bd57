package export

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/retailetl/internal/config"
	"github.com/JonMunkholm/retailetl/internal/graph"
)

// OpenConfigured connects every sink enabled in cfg. If one fails, the
// sinks opened before it are closed and the error is returned.
func OpenConfigured(ctx context.Context, cfg *config.Config) ([]Sink, error) {
	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		CloseAll(ctx, sinks...)
		return nil, err
	}

	if cfg.Database.Enabled() {
		pool, err := OpenPostgres(ctx, PostgresOptions{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, NewPostgresPoolSink(pool))
	}

	if cfg.ClickHouse.Enabled() {
		conn, err := OpenClickHouse(ctx, ClickHouseOptions{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, NewClickHouseSink(conn, cfg.ClickHouse.Database))
	}

	if cfg.Graph.Enabled() {
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, NewLineageSink(client, cfg.Graph.BatchSize))
	}

	if cfg.Broker.Enabled() {
		pub, err := DialRejectPublisher(AMQPOptions{
			URL:      cfg.Broker.URL,
			Exchange: cfg.Broker.Exchange,
			Queue:    cfg.Broker.Queue,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, pub)
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	slog.Info("export sinks ready", "sinks", names)
	return sinks, nil
}
