package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scorecorr-cli/internal/snapshot"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the configured datasets and their offline snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Name", "Dataset", "Limit", "Snapshot"})
		dir := snapshot.Dir{Path: c.DataDir}
		for _, s := range c.Sources().All() {
			snap := "-"
			if c.DataDir != "" {
				if p, err := dir.Locate(s.DatasetID); err == nil {
					snap = p
				}
			}
			tw.AppendRow(table.Row{s.Name, s.DatasetID, s.Limit, snap})
		}
		tw.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "Portal: %s\n", c.BaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
