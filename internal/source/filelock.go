package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/tabula/internal/config"

	"github.com/gofrs/flock"
)

type LockConfig struct {
	Timeout  time.Duration
	Retry    time.Duration
	MaxRetry int
}

// LockConfigFrom reads lock settings from the cache section.
func LockConfigFrom(cfg config.CacheConfig) (LockConfig, error) {
	timeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultCacheLockTimeout)
	if err != nil {
		return LockConfig{}, fmt.Errorf("cache.lock_timeout: %w", err)
	}
	retry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultCacheLockRetry)
	if err != nil {
		return LockConfig{}, fmt.Errorf("cache.lock_retry: %w", err)
	}
	maxRetry := cfg.LockMaxRetry
	if maxRetry <= 0 {
		maxRetry = config.DefaultCacheLockMaxRetry
	}
	return LockConfig{Timeout: timeout, Retry: retry, MaxRetry: maxRetry}, nil
}

// sheetLock serializes cache writers across processes sharing a cache dir.
type sheetLock struct {
	lock       *flock.Flock
	sheet      string
	acquiredAt time.Time
}

func acquireSheetLock(ctx context.Context, path, sheet string, cfg LockConfig) (*sheetLock, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	l := flock.New(path)
	for i := 0; i < cfg.MaxRetry; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cache lock for sheet %s cancelled: %w", sheet, ctx.Err())
		default:
		}

		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to attempt cache lock: %w", err)
		}
		if locked {
			return &sheetLock{lock: l, sheet: sheet, acquiredAt: time.Now()}, nil
		}

		if i < cfg.MaxRetry-1 {
			time.Sleep(cfg.Retry)
		}
	}

	return nil, fmt.Errorf("cache for sheet %s is locked by another instance (timeout after %v)", sheet, cfg.Timeout)
}

func (sl *sheetLock) Unlock() {
	if err := sl.lock.Unlock(); err != nil {
		slog.Error("Failed to release cache lock", "sheet", sl.sheet, "path", sl.lock.Path(), "error", err)
		return
	}
	slog.Debug("Cache lock released", "sheet", sl.sheet, "held_duration_ms", time.Since(sl.acquiredAt).Milliseconds())
}
