package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/tabula/internal/config"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
)

const (
	KindInline = "inline"
	KindCSV    = "csv"
	KindSheets = "sheets"
)

// KindOf classifies a sheet locator.
func KindOf(def config.SheetDefinition) (string, error) {
	locator := strings.TrimSpace(def.URL)
	switch {
	case locator == "":
		return KindInline, nil
	case strings.HasSuffix(strings.ToLower(locator), ".csv"):
		return KindCSV, nil
	case IsSheetsURL(locator):
		return KindSheets, nil
	default:
		return "", tabulaErrors.Validation(fmt.Sprintf("unsupported sheet locator %q", locator))
	}
}

// Router dispatches each sheet to the loader for its locator kind and fits
// the rows to the definition's column count.
type Router struct {
	loaders map[string]Loader
}

func NewRouter(inline, csv, sheets Loader) *Router {
	r := &Router{loaders: make(map[string]Loader, 3)}
	if inline != nil {
		r.loaders[KindInline] = inline
	}
	if csv != nil {
		r.loaders[KindCSV] = csv
	}
	if sheets != nil {
		r.loaders[KindSheets] = sheets
	}
	return r
}

func (r *Router) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	kind, err := KindOf(def)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", id, err)
	}
	loader, ok := r.loaders[kind]
	if !ok {
		return nil, tabulaErrors.Initialization(fmt.Sprintf("sheet %q: no %s loader configured", id, kind))
	}

	rows, err := loader.Load(ctx, id, def)
	if err != nil {
		return nil, err
	}

	slog.Debug("Sheet loaded", "sheet", id, "kind", kind, "rows", len(rows))
	return FitWidth(rows, len(def.Columns)), nil
}
