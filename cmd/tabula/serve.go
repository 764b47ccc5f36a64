package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/daemon"
	"github.com/harunnryd/tabula/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve slash commands over HTTP",
	Long:  `Builds the catalog, starts the HTTP endpoint Slack posts slash commands to, and reloads sheets on the configured schedule until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		catalogComp := components.NewCatalogComponent(cfg)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, catalogComp)

		daemonMgr.AddComponent(catalogComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Tabula starting up...", "port", cfg.Server.Port, "commands_path", cfg.Slack.CommandsPath)
		err = daemonMgr.Start(commandContext(cmd))
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Tabula stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Tabula stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("server.port", config.DefaultServerPort, "server port")
	serveCmd.Flags().String("reload.schedule", "", "cron schedule for reloading sheets (empty disables)")
}
