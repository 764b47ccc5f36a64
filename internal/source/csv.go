package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harunnryd/tabula/internal/config"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/pathutil"
)

// CSVLoader reads a local CSV file. The first record is a header and is
// skipped, like the A2 start of a spreadsheet range.
type CSVLoader struct {
	// BaseDir resolves relative file paths, usually the definition file's directory.
	BaseDir string
}

func (l CSVLoader) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	path, err := pathutil.Resolve(def.URL, l.BaseDir)
	if err != nil {
		return nil, tabulaErrors.Validation(fmt.Sprintf("sheet %q: %v", id, err))
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tabulaErrors.Validation(fmt.Sprintf("sheet %q: csv file %s does not exist", id, path))
		}
		return nil, fmt.Errorf("sheet %q: open %s: %w", id, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	header := true
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tabulaErrors.Validation(fmt.Sprintf("sheet %q: parse %s: %v", id, path, err))
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}
