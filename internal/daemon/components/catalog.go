package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/daemon"
	"github.com/harunnryd/tabula/internal/source"
)

const CatalogComponentName = "Catalog"

// CatalogComponent owns the live catalog: Init performs the first build so the
// HTTP server never starts without tables, Start arms the reload schedule.
type CatalogComponent struct {
	cfg       *config.Config
	loader    source.Loader
	catalog   *catalog.Catalog
	refresher *catalog.Refresher
	mu        sync.RWMutex
}

func NewCatalogComponent(cfg *config.Config) *CatalogComponent {
	return &CatalogComponent{cfg: cfg}
}

// NewCatalogComponentWithLoader replaces the loader stack built from config.
func NewCatalogComponentWithLoader(cfg *config.Config, loader source.Loader) *CatalogComponent {
	return &CatalogComponent{cfg: cfg, loader: loader}
}

func (c *CatalogComponent) Name() string {
	return CatalogComponentName
}

func (c *CatalogComponent) Dependencies() []string {
	return []string{}
}

func (c *CatalogComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Catalog init cancelled: %w", ctx.Err())
	default:
	}

	if c.cfg == nil {
		return fmt.Errorf("config is nil")
	}

	loadTimeout, err := config.DurationOrDefault(c.cfg.Sources.LoadTimeout, config.DefaultSourcesLoadTimeout)
	if err != nil {
		return fmt.Errorf("parse sources load timeout: %w", err)
	}
	reloadTimeout, err := config.DurationOrDefault(c.cfg.Reload.Timeout, config.DefaultReloadTimeout)
	if err != nil {
		return fmt.Errorf("parse reload timeout: %w", err)
	}

	loader := c.loader
	if loader == nil {
		loader, err = source.NewFromConfig(c.cfg, config.DefinitionBaseDir(c.cfg))
		if err != nil {
			return fmt.Errorf("build source loader: %w", err)
		}
	}

	cat := catalog.New(func() (*config.Definition, error) {
		return config.LoadDefinition(c.cfg)
	}, loader, catalog.WithLoadTimeout(loadTimeout))

	if _, err := cat.Reload(ctx); err != nil {
		return fmt.Errorf("initial catalog build: %w", err)
	}

	var refresher *catalog.Refresher
	if schedule := strings.TrimSpace(c.cfg.Reload.Schedule); schedule != "" {
		refresher, err = catalog.NewRefresher(cat, schedule, reloadTimeout)
		if err != nil {
			return err
		}
	}

	c.catalog = cat
	c.refresher = refresher

	snap := cat.Snapshot()
	slog.Info("Catalog initialized",
		"component", c.Name(),
		"snapshot", snap.ID,
		"tables", len(snap.Tables),
		"commands", snap.Dispatcher.Commands().Len(),
		"warnings", len(snap.Warnings),
	)
	return nil
}

func (c *CatalogComponent) Start(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.catalog == nil {
		return fmt.Errorf("Catalog not initialized")
	}
	if c.refresher == nil {
		slog.Info("Catalog reload schedule disabled", "component", c.Name())
		return nil
	}
	c.refresher.Start()
	return nil
}

func (c *CatalogComponent) Stop(ctx context.Context) error {
	c.mu.RLock()
	refresher := c.refresher
	c.mu.RUnlock()

	if refresher == nil {
		return nil
	}
	return refresher.Stop(ctx)
}

func (c *CatalogComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	health := &daemon.ComponentHealth{Name: c.Name(), Healthy: true}
	switch {
	case c.catalog == nil || c.catalog.Snapshot() == nil:
		health.Healthy = false
		health.Error = fmt.Errorf("not loaded")
	case c.refresher != nil:
		if err := c.refresher.Health(); err != nil {
			health.Healthy = false
			health.Error = err
		}
	}
	return health, nil
}

// Catalog returns nil before Init.
func (c *CatalogComponent) Catalog() *catalog.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}
