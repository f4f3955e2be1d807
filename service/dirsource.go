package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
)

// DirSource reads reference tables from <dir>/<key>.csv, .xlsx or .xlsm.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

var dirExtensions = []string{".csv", ".xlsx", ".xlsm"}

func (s *DirSource) Fetch(ctx context.Context, key string) (*tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, ext := range dirExtensions {
		name := filepath.Join(s.dir, key+ext)
		data, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return tabular.Read(name, data)
	}
	return nil, fmt.Errorf("no reference file for %q in %s", key, s.dir)
}
