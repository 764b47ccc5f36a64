package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/tabula/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortLockConfig(timeout time.Duration) LockConfig {
	return LockConfig{Timeout: timeout, Retry: 10 * time.Millisecond, MaxRetry: 1000}
}

func TestLockConfigFrom(t *testing.T) {
	cfg, err := LockConfigFrom(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry)
	assert.Equal(t, config.DefaultCacheLockMaxRetry, cfg.MaxRetry)

	cfg, err = LockConfigFrom(config.CacheConfig{LockTimeout: "1s", LockRetry: "5ms", LockMaxRetry: 3})
	require.NoError(t, err)
	assert.Equal(t, LockConfig{Timeout: time.Second, Retry: 5 * time.Millisecond, MaxRetry: 3}, cfg)

	_, err = LockConfigFrom(config.CacheConfig{LockTimeout: "soon"})
	assert.Error(t, err)
}

func TestSheetLock_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.lock")
	cfg := shortLockConfig(200 * time.Millisecond)

	first, err := acquireSheetLock(context.Background(), path, "glossary", cfg)
	require.NoError(t, err)

	_, err = acquireSheetLock(context.Background(), path, "glossary", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glossary")

	first.Unlock()

	second, err := acquireSheetLock(context.Background(), path, "glossary", cfg)
	require.NoError(t, err)
	second.Unlock()
}

func TestSheetLock_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.lock")

	first, err := acquireSheetLock(context.Background(), path, "glossary", shortLockConfig(time.Second))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		first.Unlock()
	}()

	second, err := acquireSheetLock(context.Background(), path, "glossary", shortLockConfig(2*time.Second))
	require.NoError(t, err)
	second.Unlock()
}

func TestSheetLock_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.lock")

	held, err := acquireSheetLock(context.Background(), path, "glossary", shortLockConfig(time.Second))
	require.NoError(t, err)
	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = acquireSheetLock(ctx, path, "glossary", shortLockConfig(time.Second))
	assert.ErrorIs(t, err, context.Canceled)
}
