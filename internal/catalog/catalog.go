package catalog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/dispatch"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/source"
)

// DefinitionFunc returns the definition a build should use. It is called on
// every reload so edits to a definition file are picked up.
type DefinitionFunc func() (*config.Definition, error)

// StaticDefinition always returns def.
func StaticDefinition(def *config.Definition) DefinitionFunc {
	return func() (*config.Definition, error) { return def, nil }
}

// Catalog publishes the current snapshot. Readers never block: a reload
// builds a complete new snapshot and swaps it in.
type Catalog struct {
	definition DefinitionFunc
	loader     source.Loader
	opts       []Option

	current atomic.Pointer[Snapshot]
	reload  sync.Mutex
}

func New(definition DefinitionFunc, loader source.Loader, opts ...Option) *Catalog {
	return &Catalog{definition: definition, loader: loader, opts: opts}
}

// Snapshot returns the published snapshot, or nil before the first build.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Reload builds a new snapshot and publishes it unless its content matches
// the current one. On failure the current snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) (bool, error) {
	c.reload.Lock()
	defer c.reload.Unlock()

	def, err := c.definition()
	if err != nil {
		return false, err
	}

	next, err := Build(ctx, def, c.loader, c.opts...)
	if err != nil {
		return false, err
	}

	prev := c.current.Load()
	if prev != nil && prev.Fingerprint() == next.Fingerprint() {
		slog.Debug("Catalog unchanged", "snapshot", prev.ID)
		return false, nil
	}

	c.current.Store(next)
	slog.Info("Catalog published",
		"snapshot", next.ID,
		"tables", len(next.Tables),
		"commands", next.Dispatcher.Commands().Len(),
		"warnings", len(next.Warnings),
	)
	return true, nil
}

// Handle answers a slash command against the current snapshot.
func (c *Catalog) Handle(ctx context.Context, params dispatch.Parameters) (*dispatch.Response, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, tabulaErrors.Internal("catalog is not loaded")
	}
	return snap.Dispatcher.Handle(ctx, params)
}
