package export

import (
	"context"

	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/output"
)

// FileSink writes the snapshot to an output folder.
type FileSink struct {
	Dir string
}

func (s FileSink) Name() string { return "files" }

func (s FileSink) Export(_ context.Context, snap *core.Snapshot) (Summary, error) {
	sum := Summary{Rows: map[string]int{}}
	m, err := output.WriteDir(s.Dir, snap)
	if m != nil {
		for _, f := range m.Files {
			sum.Rows[f.Name] = f.Rows
		}
	}
	return sum, err
}

func (s FileSink) Close(context.Context) error { return nil }
