// Package source loads raw table rows from the locations a sheet definition
// names: Google Sheets, CSV files or inline rows.
package source

import (
	"context"

	"github.com/harunnryd/tabula/internal/config"
)

// Loader yields the raw rows of one sheet. Implementations must be safe for
// concurrent use.
type Loader interface {
	Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error)

func (f LoaderFunc) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	return f(ctx, id, def)
}

// FitWidth pads short rows with empty cells and truncates long ones so every
// row has exactly width cells. Spreadsheet APIs omit trailing empty cells.
func FitWidth(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		fitted := make([]string, width)
		copy(fitted, row)
		out = append(out, fitted)
	}
	return out
}

// NewFromConfig assembles the loader stack for cfg: a Router over inline, CSV
// and Google Sheets loaders, wrapped in a CachedLoader when the cache is enabled.
// baseDir anchors relative CSV paths.
func NewFromConfig(cfg *config.Config, baseDir string) (Loader, error) {
	sheetsLoader, err := NewSheetsLoader(cfg.Sources.Google)
	if err != nil {
		return nil, err
	}

	var loader Loader = NewRouter(InlineLoader{}, CSVLoader{BaseDir: baseDir}, sheetsLoader)
	if !cfg.Cache.Enabled {
		return loader, nil
	}
	cached, err := NewCachedLoader(loader, cfg.Cache)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
