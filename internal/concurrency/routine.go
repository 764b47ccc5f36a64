package concurrency

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// SafeGo runs a function in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(interface{})) {
	go func() {
		defer recoverWith(onPanic)
		fn()
	}()
}

func recoverWith(onPanic func(interface{})) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		slog.Error("Panic recovered", "panic", r, "stack", string(stack))
		if onPanic != nil {
			onPanic(r)
		}
	}
}

// ForEach runs fn for every key with at most limit calls in flight and
// returns the errors by key. A panicking call is reported as an error.
// limit <= 0 runs all keys at once.
func ForEach(ctx context.Context, keys []string, limit int, fn func(ctx context.Context, key string) error) map[string]error {
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	var (
		mu   sync.Mutex
		errs = make(map[string]error)
		wg   sync.WaitGroup
		sem  = make(chan struct{}, max(limit, 1))
	)

	record := func(key string, err error) {
		mu.Lock()
		errs[key] = err
		mu.Unlock()
	}

	for _, key := range keys {
		select {
		case <-ctx.Done():
			record(key, ctx.Err())
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer recoverWith(func(r interface{}) {
				record(key, fmt.Errorf("panic: %v", r))
			})

			if err := fn(ctx, key); err != nil {
				record(key, err)
			}
		}()
	}

	wg.Wait()
	return errs
}
