package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scorecorr-cli/internal/run"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List previous runs in the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		runs, err := run.List(c.OutputDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		if runsLimit > 0 && len(runs) > runsLimit {
			runs = runs[:runsLimit]
		}
		for _, m := range runs {
			mode := "online"
			if m.Offline {
				mode = "offline"
			}
			fmt.Fprintf(out, "- %s %s [%s, %s] %s\n", m.StartedAt.Local().Format(time.DateTime), m.ID, m.Status(), mode, m.Summary())
			if m.Error != "" {
				fmt.Fprintf(out, "    error: %s\n", m.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "show at most n runs")
}
