package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/concurrency"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/daemon"
	"github.com/harunnryd/tabula/internal/server"
)

// CatalogSource hands the HTTP server the catalog once it exists.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

type HTTPServerComponent struct {
	daemon       *daemon.Daemon
	cfg          *config.Config
	catalogs     CatalogSource
	dependencies []string
	server       *http.Server
	listener     net.Listener
	shutdownTTL  time.Duration
	initialized  bool
	started      bool
	mu           sync.RWMutex
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, catalogs CatalogSource) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(d, cfg, catalogs, []string{CatalogComponentName})
}

func NewHTTPServerComponentWithDependencies(d *daemon.Daemon, cfg *config.Config, catalogs CatalogSource, dependencies []string) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:       d,
		cfg:          cfg,
		catalogs:     catalogs,
		dependencies: slices.Clone(dependencies),
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return slices.Clone(h.dependencies)
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if h.catalogs == nil {
		return fmt.Errorf("catalog source is nil")
	}
	cat := h.catalogs.Catalog()
	if cat == nil {
		return fmt.Errorf("catalog is not initialized")
	}

	srv := h.cfg.Server
	readTimeout, err := config.DurationOrDefault(srv.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(srv.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(srv.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(srv.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	handler := server.NewHandler(server.Options{
		Catalog:       cat,
		CommandsPath:  h.cfg.Slack.CommandsPath,
		SigningSecret: h.cfg.Slack.SigningSecret,
		Components:    h.componentStatus,
	})

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	if h.cfg.Slack.SigningSecret == "" {
		slog.Warn("Slack signing secret not set, requests are not verified", "component", h.Name())
	}

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", srv.Port, "commands_path", h.cfg.Slack.CommandsPath)
	return nil
}

// Start binds the port before returning so address conflicts fail startup.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	srv := h.server
	concurrency.SafeGo(func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}, func(r interface{}) {
		slog.Error("HTTP server goroutine panicked", "component", h.Name(), "panic", r)
	})

	h.started = true
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
	}, nil
}

// Addr is the bound listen address, empty until Start.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPServerComponent) componentStatus() map[string]server.ComponentStatus {
	if h.daemon == nil {
		return nil
	}

	healths := h.daemon.ComponentHealth()
	out := make(map[string]server.ComponentStatus, len(healths))
	for name, ch := range healths {
		status := server.ComponentStatus{Healthy: ch.Healthy}
		if ch.Error != nil {
			status.Error = ch.Error.Error()
		}
		out[name] = status
	}
	return out
}
