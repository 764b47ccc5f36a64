package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/harunnryd/tabula/internal/concurrency"
	"github.com/harunnryd/tabula/internal/config"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"github.com/natefinch/atomic"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

type cacheEntry struct {
	Sheet   string     `json:"sheet"`
	URL     string     `json:"url"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	SavedAt time.Time  `json:"saved_at"`
}

// CachedLoader keeps the last good rows of every remote sheet on disk and
// serves them when the next load fails transiently.
type CachedLoader struct {
	next  Loader
	dir   string
	lock  LockConfig
	sheet *concurrency.KeyedMutex
}

func NewCachedLoader(next Loader, cfg config.CacheConfig) (*CachedLoader, error) {
	if next == nil {
		return nil, tabulaErrors.Initialization("cached loader requires an underlying loader")
	}
	if cfg.Dir == "" {
		return nil, tabulaErrors.Validation("cache.dir is required when the cache is enabled")
	}
	lock, err := LockConfigFrom(cfg)
	if err != nil {
		return nil, tabulaErrors.Validation(err.Error())
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", cfg.Dir, err)
	}
	return &CachedLoader{next: next, dir: cfg.Dir, lock: lock, sheet: concurrency.NewKeyedMutex()}, nil
}

func (c *CachedLoader) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	if kind, _ := KindOf(def); kind == KindInline {
		return c.next.Load(ctx, id, def)
	}

	rows, err := c.next.Load(ctx, id, def)
	if err == nil {
		if werr := c.write(ctx, id, def, rows); werr != nil {
			slog.Warn("Failed to write sheet cache", "sheet", id, "error", werr)
		}
		return rows, nil
	}

	if !tabulaErrors.IsRetryable(err) {
		return nil, err
	}

	entry, cerr := c.read(id, def)
	if cerr != nil {
		slog.Debug("No usable sheet cache", "sheet", id, "error", cerr)
		return nil, err
	}

	slog.Warn("Serving cached rows after load failure",
		"sheet", id,
		"saved_at", entry.SavedAt.Format(time.RFC3339),
		"rows", len(entry.Rows),
		"error", err,
	)
	return entry.Rows, nil
}

func (c *CachedLoader) path(id string) string {
	return filepath.Join(c.dir, unsafeFileChars.ReplaceAllString(id, "_")+".json")
}

func (c *CachedLoader) write(ctx context.Context, id string, def config.SheetDefinition, rows [][]string) error {
	// Writers in this process queue here instead of spinning on the file lock.
	c.sheet.Lock(id)
	defer c.sheet.Unlock(id)

	lock, err := acquireSheetLock(ctx, c.path(id)+".lock", id, c.lock)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(cacheEntry{
		Sheet:   id,
		URL:     def.URL,
		Columns: def.Columns,
		Rows:    rows,
		SavedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(c.path(id), bytes.NewReader(data))
}

// read returns the cached entry when it was saved for the same locator and columns.
func (c *CachedLoader) read(id string, def config.SheetDefinition) (*cacheEntry, error) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	if entry.URL != def.URL || !slices.Equal(entry.Columns, def.Columns) {
		return nil, errors.New("cache was written for a different sheet definition")
	}
	return &entry, nil
}
