package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/JonMunkholm/retailetl/internal/config"
	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/export"
	"github.com/JonMunkholm/retailetl/internal/logging"
	"github.com/JonMunkholm/retailetl/internal/output"
)

// runReport is printed to stdout when a run finishes.
type runReport struct {
	SessionID string              `json:"session_id"`
	Batches   []*core.BatchResult `json:"batches"`
	Replayed  int                 `json:"replayed,omitempty"`
	Stats     core.Stats          `json:"stats"`
	Exports   []export.Summary    `json:"exports"`
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "load every batch under --input and write --output",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "batch file or folder of *.json.gz batches"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output folder (default: INGEST_OUTPUT_DIR)"},
			&cli.BoolFlag{Name: "lenient-erasure", Usage: "reject malformed erasure requests instead of stopping"},
			&cli.BoolFlag{Name: "replay-erasures", Usage: "apply logged erasures to customers admitted after them"},
			&cli.IntFlag{Name: "workers", Usage: "parse workers (default: INGEST_PARSE_WORKERS)"},
			&cli.IntFlag{Name: "window", Usage: "lines parsed ahead of admission (default: INGEST_WINDOW_SIZE)"},
			&cli.BoolFlag{Name: "export", Usage: "also export to every configured sink"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyRunFlags(c, cfg)
			logger := logging.Setup(c.String("log-level"), c.String("log-format"))

			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var sinks []export.Sink
			if c.Bool("export") {
				if sinks, err = export.OpenConfigured(ctx, cfg); err != nil {
					return err
				}
				defer export.CloseAll(context.Background(), sinks...)
			}

			session := core.NewSession(core.SessionOptions{
				ParseWorkers:   cfg.Ingest.ParseWorkers,
				WindowSize:     cfg.Ingest.WindowSize,
				LenientErasure: cfg.Ingest.LenientErasure,
				Logger:         logger,
			})
			report, err := run(ctx, session, c.String("input"), cfg.Ingest.OutputDir, c.Bool("replay-erasures"), sinks...)
			if report != nil {
				if werr := printJSON(c.App.Writer, report); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
}

func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("output") {
		cfg.Ingest.OutputDir = c.String("output")
	}
	if c.IsSet("workers") {
		cfg.Ingest.ParseWorkers = c.Int("workers")
	}
	if c.IsSet("window") {
		cfg.Ingest.WindowSize = c.Int("window")
	}
	if c.IsSet("lenient-erasure") {
		cfg.Ingest.LenientErasure = c.Bool("lenient-erasure")
	}
}

// run loads input into session and saves the result. A fatal load error
// stops before anything is written; the partial report is still returned.
func run(ctx context.Context, session *core.Session, input, outDir string, replay bool, sinks ...export.Sink) (*runReport, error) {
	results, err := session.LoadPath(ctx, input)
	report := &runReport{SessionID: session.ID(), Batches: results}
	if err != nil {
		report.Stats = session.Stats()
		return report, err
	}
	if replay {
		report.Replayed = session.ReplayErasures()
	}

	snap := session.Snapshot()
	report.Stats = snap.Stats
	all := append([]export.Sink{export.FileSink{Dir: outDir}}, sinks...)
	report.Exports, err = export.Run(ctx, snap, logging.FromContext(ctx), all...)
	return report, err
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "load --input and print the counts without writing anything",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true},
			&cli.BoolFlag{Name: "lenient-erasure"},
		},
		Action: func(c *cli.Context) error {
			session := core.NewSession(core.SessionOptions{
				LenientErasure: c.Bool("lenient-erasure"),
				Logger:         logging.Setup(c.String("log-level"), c.String("log-format")),
			})
			_, err := session.LoadPath(c.Context, c.String("input"))
			if perr := printJSON(c.App.Writer, session.Stats()); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
}

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:      "files",
		Usage:     "list the batches under a folder in load order",
		ArgsUsage: "DIR",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("files needs exactly one folder", 2)
			}
			files, err := core.DiscoverBatchFiles(c.Args().First())
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(c.App.Writer, "%-16s %s\n", f.Kind, f.Path)
			}
			return nil
		},
	}
}

// inspectReport summarises an output folder.
type inspectReport struct {
	Dir           string `json:"dir"`
	Customers     int    `json:"customers"`
	Products      int    `json:"products"`
	Transactions  int    `json:"transactions"`
	PurchaseLines int    `json:"purchase_lines"`
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "read an output folder back and print its counts",
		ArgsUsage: "DIR",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect needs exactly one folder", 2)
			}
			dir := c.Args().First()
			ds, err := output.ReadDir(dir)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, inspectReport{
				Dir:           dir,
				Customers:     len(ds.Customers),
				Products:      len(ds.Products),
				Transactions:  len(ds.Transactions),
				PurchaseLines: core.PurchaseLineTable(ds.Transactions).Rows,
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
