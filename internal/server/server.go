// Package server exposes the catalog to Slack over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/dispatch"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/logger"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/slack-go/slack"
)

const maxBodyBytes = 1 << 20

// Catalog is the part of *catalog.Catalog the HTTP layer needs.
type Catalog interface {
	Handle(ctx context.Context, params dispatch.Parameters) (*dispatch.Response, error)
	Snapshot() *catalog.Snapshot
}

// ComponentStatus is the health of one daemon component.
type ComponentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type HealthReport struct {
	Status     string                     `json:"status"`
	Snapshot   string                     `json:"snapshot,omitempty"`
	BuiltAt    *time.Time                 `json:"built_at,omitempty"`
	Tables     int                        `json:"tables"`
	Commands   int                        `json:"commands"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type Options struct {
	Catalog       Catalog
	CommandsPath  string
	SigningSecret string
	// Components, when set, adds daemon component health to /health.
	Components func() map[string]ComponentStatus
}

type Server struct {
	opts Options
}

// NewHandler returns the routed HTTP handler.
func NewHandler(opts Options) http.Handler {
	if opts.CommandsPath == "" {
		opts.CommandsPath = config.DefaultSlackCommandsPath
	}
	s := &Server{opts: opts}

	r := mux.NewRouter()
	r.HandleFunc(opts.CommandsPath, s.handleSlashCommand).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Use(requestIDMiddleware)
	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.opts.SigningSecret != "" {
		if err := verify(r.Header, body, s.opts.SigningSecret); err != nil {
			log.Warn("Rejected slash command with invalid signature", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx = logger.WithCommand(ctx, dispatch.NormalizeCommand(cmd.Command))
	log = logger.FromContext(ctx).With("user", cmd.UserID, "channel", cmd.ChannelID)

	resp, err := s.opts.Catalog.Handle(ctx, dispatch.ParametersFromForm(r.PostForm))
	if err != nil {
		if tabulaErrors.IsUserFacing(err) {
			log.Info("Slash command rejected", "kind", tabulaErrors.Kind(err), "error", err)
		} else {
			log.Error("Slash command failed", "kind", tabulaErrors.Kind(err), "error", err)
		}
		writeJSON(w, http.StatusOK, dispatch.NewErrorResponse(tabulaErrors.UserMessage(err)))
		return
	}

	log.Info("Slash command answered", "attachments", len(resp.Attachments))
	writeJSON(w, http.StatusOK, resp)
}

func verify(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{Status: "ok"}

	if snap := s.opts.Catalog.Snapshot(); snap != nil {
		builtAt := snap.BuiltAt
		report.Snapshot = snap.ID
		report.BuiltAt = &builtAt
		report.Tables = len(snap.Tables)
		report.Commands = snap.Dispatcher.Commands().Len()
	} else {
		report.Status = "loading"
	}

	if s.opts.Components != nil {
		report.Components = s.opts.Components()
		for _, c := range report.Components {
			if !c.Healthy {
				report.Status = "degraded"
			}
		}
	}

	status := http.StatusOK
	if report.Status == "loading" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
