package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/snapshot"
	"github.com/KaramelBytes/scorecorr-cli/internal/socrata"
)

var fetchOnly []string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the datasets into data_dir for offline runs",
	Example: `  scorecorr fetch --data-dir ./snapshots
  scorecorr fetch --only ELA,Math`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is not set (use --data-dir or 'scorecorr config set data_dir <dir>')")
		}
		sources, err := selectSources(c.Sources(), fetchOnly)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		client := socrata.NewClient(c.ClientOptions())
		dir := snapshot.Dir{Path: c.DataDir}
		for _, src := range sources {
			start := time.Now()
			recs, err := client.Fetch(ctx, src.DatasetID, src.Limit)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", src, err)
			}
			p, err := dir.Save(src.DatasetID, recs)
			if err != nil {
				return err
			}
			slog.Debug("saved snapshot", "dataset", src.DatasetID, "rows", len(recs), "elapsed", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d rows -> %s\n", src.Name, len(recs), p)
		}
		return nil
	},
}

// selectSources filters by source name; no names means all of them.
func selectSources(all dataset.Sources, names []string) ([]dataset.Source, error) {
	if len(names) == 0 {
		return all.All(), nil
	}
	var out []dataset.Source
	for _, n := range names {
		found := false
		for _, s := range all.All() {
			if strings.EqualFold(s.Name, n) {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown dataset %q", n)
		}
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringSliceVar(&fetchOnly, "only", nil, "fetch only these datasets by name (ELA, Math, Demographics, Locations)")
}
