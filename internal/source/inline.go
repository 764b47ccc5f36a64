package source

import (
	"context"

	"github.com/harunnryd/tabula/internal/config"
)

// InlineLoader serves the mock_rows of a definition.
type InlineLoader struct{}

func (InlineLoader) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(def.MockRows))
	for _, row := range def.MockRows {
		rows = append(rows, append([]string(nil), row...))
	}
	return rows, nil
}
