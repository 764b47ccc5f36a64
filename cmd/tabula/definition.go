package main

import (
	"fmt"
	"strings"

	"github.com/harunnryd/tabula/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var definitionCmd = &cobra.Command{
	Use:   "definition",
	Short: "Inspect the command definition",
}

var definitionValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the definition without loading any sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		def, err := config.LoadDefinition(loaded)
		if err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		warnings := def.Lint()
		for _, warning := range warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		fmt.Fprintf(w, "✓ Definition is valid: %d sheets (%s), %d commands (%s)\n",
			len(def.Sheets), strings.Join(def.SheetIDs(), ", "),
			len(def.Commands), strings.Join(def.CommandNames(), ", "),
		)
		return nil
	},
}

var definitionViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the resolved definition as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		def, err := config.LoadDefinition(loaded)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(redactDefinitionTokens(def)); err != nil {
			return fmt.Errorf("failed to encode definition: %w", err)
		}
		return enc.Close()
	},
}

func redactDefinitionTokens(in *config.Definition) *config.Definition {
	if in == nil {
		return nil
	}

	out := *in
	out.Commands = make(map[string]config.CommandDefinition, len(in.Commands))
	for name, cmdDef := range in.Commands {
		cmdDef.SlackToken = maskSecret(cmdDef.SlackToken)
		out.Commands[name] = cmdDef
	}
	return &out
}

func init() {
	definitionCmd.AddCommand(definitionValidateCmd)
	definitionCmd.AddCommand(definitionViewCmd)
	rootCmd.AddCommand(definitionCmd)
}
