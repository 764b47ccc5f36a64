package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"github.com/robfig/cron/v3"
)

// Refresher reloads a catalog on a cron schedule.
type Refresher struct {
	catalog  *Catalog
	schedule string
	timeout  time.Duration
	cron     *cron.Cron

	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	lastErr  error
	lastRun  time.Time
	reloads  int
	failures int
}

// NewRefresher validates schedule (standard five-field cron or a descriptor
// such as "@every 5m").
func NewRefresher(c *Catalog, schedule string, timeout time.Duration) (*Refresher, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, tabulaErrors.Validation(fmt.Sprintf("invalid reload schedule %q: %v", schedule, err))
	}

	r := &Refresher{
		catalog:  c,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.Run(r.jobContext()) }); err != nil {
		return nil, tabulaErrors.Validation(fmt.Sprintf("schedule reload: %v", err))
	}
	return r, nil
}

func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.cron.Start()
	slog.Info("Catalog refresher started", "schedule", r.schedule)
}

// Stop halts scheduling, cancels a running reload and waits for it to
// return or for ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
		slog.Info("Catalog refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one reload. Failures, panics included, are logged and kept
// for Health.
func (r *Refresher) Run(ctx context.Context) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	changed, err := r.reload(ctx)

	r.mu.Lock()
	r.lastRun = time.Now()
	r.lastErr = err
	r.reloads++
	if err != nil {
		r.failures++
	}
	r.mu.Unlock()

	if err != nil {
		slog.Error("Catalog reload failed, keeping current snapshot",
			"kind", tabulaErrors.Kind(err),
			"error", err,
		)
		return
	}
	slog.Debug("Catalog reload finished", "changed", changed)
}

func (r *Refresher) reload(ctx context.Context) (changed bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Catalog reload panicked", "panic", p, "stack", string(debug.Stack()))
			err = tabulaErrors.Internal(fmt.Sprintf("reload panicked: %v", p))
		}
	}()
	return r.catalog.Reload(ctx)
}

// jobContext is cancelled by Stop.
func (r *Refresher) jobContext() context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Health reports the error of the last reload, if any.
func (r *Refresher) Health() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastErr != nil {
		return fmt.Errorf("last reload at %s failed: %w", r.lastRun.Format(time.RFC3339), r.lastErr)
	}
	return nil
}

// Stats returns how many reloads ran and how many failed.
func (r *Refresher) Stats() (reloads, failures int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reloads, r.failures
}
