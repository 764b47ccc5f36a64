// Package catalog builds immutable snapshots of tables and commands from a
// definition and publishes the current one to request handlers.
package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/harunnryd/tabula/internal/command"
	"github.com/harunnryd/tabula/internal/concurrency"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/dispatch"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/format"
	"github.com/harunnryd/tabula/internal/source"
	"github.com/harunnryd/tabula/internal/table"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid/v2"
)

// Snapshot is one consistent, read-only view of the definition and its tables.
type Snapshot struct {
	ID         string
	BuiltAt    time.Time
	Definition *config.Definition
	Tables     map[string]*table.Table
	Dispatcher *dispatch.Dispatcher
	Warnings   []string

	fingerprint uint64
}

// Fingerprint covers the definition and every table's content.
func (s *Snapshot) Fingerprint() uint64 { return s.fingerprint }

// TableIDs returns table ids in sorted order.
func (s *Snapshot) TableIDs() []string {
	ids := make([]string, 0, len(s.Tables))
	for id := range s.Tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type buildOptions struct {
	source      table.Source
	loadTimeout time.Duration
	parallelism int
}

type Option func(*buildOptions)

// WithRandomSource sets the randomness every table uses for random draws.
func WithRandomSource(src table.Source) Option {
	return func(o *buildOptions) { o.source = src }
}

// WithLoadTimeout bounds loading all sheets of one build.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *buildOptions) { o.loadTimeout = d }
}

// WithParallelism caps concurrent sheet loads.
func WithParallelism(n int) Option {
	return func(o *buildOptions) { o.parallelism = n }
}

const defaultParallelism = 4

// Build validates def, loads every sheet through loader and wires commands,
// formatters and a dispatcher over the resulting tables.
func Build(ctx context.Context, def *config.Definition, loader source.Loader, opts ...Option) (*Snapshot, error) {
	o := buildOptions{source: table.DefaultSource(), parallelism: defaultParallelism}
	for _, opt := range opts {
		opt(&o)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, tabulaErrors.Initialization("catalog requires a sheet loader")
	}

	warnings := append(def.Lint(), templateWarnings(def)...)
	for _, w := range warnings {
		slog.Warn("Definition warning", "warning", w)
	}

	loaded, err := loadSheets(ctx, def, loader, o)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]*table.Table, len(def.Sheets))
	for _, id := range def.SheetIDs() {
		tables[id] = table.New(id, def.Sheets[id].Columns, loaded[id], table.WithSource(o.source))
	}

	commands := make([]*command.Command, 0, len(def.Commands))
	formatters := make(map[string]*format.Formatter, len(def.Commands))
	for _, name := range def.CommandNames() {
		cmdDef := def.Commands[name]
		cmd, err := command.New(name, tables[cmdDef.Sheet], command.Binding{
			LookupColumn: cmdDef.LookupColumn,
			Mode:         command.ModeOf(cmdDef.Random, cmdDef.CaseSensitive),
			Token:        cmdDef.SlackToken,
		})
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
		formatters[name] = format.New(name, format.Templates{
			Title:    cmdDef.Format.Title,
			Result:   cmdDef.Format.Result,
			NoResult: cmdDef.Format.NoResult,
		}, sheetLink(def.Sheets[cmdDef.Sheet]))
	}

	registry, err := command.NewRegistry(commands...)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New(registry, formatters)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint(def, tables)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:          ulid.Make().String(),
		BuiltAt:     time.Now(),
		Definition:  def,
		Tables:      tables,
		Dispatcher:  dispatcher,
		Warnings:    warnings,
		fingerprint: fp,
	}, nil
}

func loadSheets(ctx context.Context, def *config.Definition, loader source.Loader, o buildOptions) (map[string][][]string, error) {
	if o.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.loadTimeout)
		defer cancel()
	}

	var (
		ids    = def.SheetIDs()
		loaded = make(map[string][][]string, len(ids))
		mu     sync.Mutex
	)

	errs := concurrency.ForEach(ctx, ids, o.parallelism, func(ctx context.Context, id string) error {
		rows, err := loader.Load(ctx, id, def.Sheets[id])
		if err != nil {
			return err
		}
		mu.Lock()
		loaded[id] = rows
		mu.Unlock()
		return nil
	})
	if len(errs) == 0 {
		return loaded, nil
	}

	failed := make([]error, 0, len(errs))
	for _, id := range ids {
		if err, ok := errs[id]; ok {
			failed = append(failed, fmt.Errorf("load sheet %q: %w", id, err))
		}
	}
	return nil, errors.Join(failed...)
}

// sheetLink is the URL offered when a lookup finds nothing. Only spreadsheet
// URLs are links users can follow.
func sheetLink(def config.SheetDefinition) string {
	if source.IsSheetsURL(def.URL) {
		return def.URL
	}
	return ""
}

// templateWarnings reports result placeholders that name no column of the
// command's sheet; they always render empty.
func templateWarnings(def *config.Definition) []string {
	var warnings []string
	for _, name := range def.CommandNames() {
		cmdDef := def.Commands[name]
		sheet, ok := def.Sheets[cmdDef.Sheet]
		if !ok {
			continue
		}
		for _, key := range format.Placeholders(cmdDef.Format.Result) {
			if key == format.TermKey || slices.Contains(sheet.Columns, key) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf("command %q result template references unknown column %q", name, key))
		}
	}
	return warnings
}

func fingerprint(def *config.Definition, tables map[string]*table.Table) (uint64, error) {
	encoded, err := json.Marshal(def)
	if err != nil {
		return 0, fmt.Errorf("encode definition: %w", err)
	}

	d := xxhash.New()
	d.Write(encoded)

	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var buf [8]byte
	for _, id := range ids {
		d.WriteString(id)
		binary.LittleEndian.PutUint64(buf[:], tables[id].Fingerprint())
		d.Write(buf[:])
	}
	return d.Sum64(), nil
}
