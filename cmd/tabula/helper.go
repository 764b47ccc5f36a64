package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/source"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

// buildSnapshot loads every sheet of the configured definition once, the same
// way the server does at startup.
func buildSnapshot(ctx context.Context, loaded *config.Config) (*catalog.Snapshot, error) {
	def, err := config.LoadDefinition(loaded)
	if err != nil {
		return nil, err
	}

	loadTimeout, err := config.DurationOrDefault(loaded.Sources.LoadTimeout, config.DefaultSourcesLoadTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse sources load timeout: %w", err)
	}

	loader, err := source.NewFromConfig(loaded, config.DefinitionBaseDir(loaded))
	if err != nil {
		return nil, fmt.Errorf("build source loader: %w", err)
	}

	return catalog.Build(ctx, def, loader, catalog.WithLoadTimeout(loadTimeout))
}

// splitCommandLine splits `/abbrev "two words"` into the command and its text.
// Quoting follows shell rules; the remaining words are rejoined with one space.
func splitCommandLine(line string) (string, string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return "", "", fmt.Errorf("parse command line: %w", err)
	}
	if len(words) == 0 {
		return "", "", fmt.Errorf("command line is empty")
	}
	return words[0], strings.Join(words[1:], " "), nil
}
