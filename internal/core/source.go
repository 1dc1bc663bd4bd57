package core

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// BatchExt is the extension of batch files discovered in a directory.
const BatchExt = ".json.gz"

// KindForFile maps a batch file name to its entity kind. Only the four
// canonical names are recognised; anything else wraps ErrUnknownBatchFile.
func KindForFile(path string) (EntityKind, error) {
	base := filepath.Base(path)
	for _, k := range EntityKinds {
		if base == k.BatchFileName() {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownBatchFile, path)
}

// BatchFile is one discovered batch with its entity kind.
type BatchFile struct {
	Path string
	Kind EntityKind
}

// OrderBatchFiles sorts paths by parent directory, then by entity priority,
// then by path. Each directory is a time partition whose customers and
// products must be admitted before its transactions.
func OrderBatchFiles(paths []string) ([]BatchFile, error) {
	files := make([]BatchFile, 0, len(paths))
	for _, p := range paths {
		k, err := KindForFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, BatchFile{Path: p, Kind: k})
	}

	sort.SliceStable(files, func(i, j int) bool {
		di, dj := filepath.Dir(files[i].Path), filepath.Dir(files[j].Path)
		if di != dj {
			return di < dj
		}
		if pi, pj := files[i].Kind.Priority(), files[j].Kind.Priority(); pi != pj {
			return pi < pj
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// DiscoverBatchFiles walks root for *.json.gz files and returns them in load
// order.
func DiscoverBatchFiles(root string) ([]BatchFile, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), BatchExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return OrderBatchFiles(paths)
}
