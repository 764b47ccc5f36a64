package main

import (
	"fmt"
	"strconv"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/output"

	"github.com/spf13/cobra"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Load and list the configured sheets",
	Long:  `Loads every sheet of the definition through the configured sources and lists columns, row counts and content fingerprints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		outputFlag, _ := cmd.Flags().GetString("output")
		format, err := output.ParseFormat(outputFlag)
		if err != nil {
			return err
		}
		formatter, err := output.NewFactory().Create(format)
		if err != nil {
			return err
		}

		snap, err := buildSnapshot(commandContext(cmd), loaded)
		if err != nil {
			return err
		}

		out, err := formatter.FormatSheets(sheetSummaries(snap))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func sheetSummaries(snap *catalog.Snapshot) []output.SheetSummary {
	ids := snap.TableIDs()
	out := make([]output.SheetSummary, 0, len(ids))
	for _, id := range ids {
		tbl := snap.Tables[id]
		src := snap.Definition.Sheets[id].URL
		if src == "" {
			src = "inline"
		}
		out = append(out, output.SheetSummary{
			ID:          id,
			Source:      src,
			Columns:     tbl.Columns(),
			Rows:        tbl.Len(),
			Fingerprint: strconv.FormatUint(tbl.Fingerprint(), 16),
		})
	}
	return out
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	sheetsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
}
