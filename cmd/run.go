package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/scorecorr-cli/internal/config"
	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/logging"
	"github.com/KaramelBytes/scorecorr-cli/internal/pipeline"
	"github.com/KaramelBytes/scorecorr-cli/internal/render"
	"github.com/KaramelBytes/scorecorr-cli/internal/run"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
	"github.com/KaramelBytes/scorecorr-cli/internal/utils"
)

var (
	runOffline bool
	runNoXLSX  bool
	runNoPlots bool
	runNoMap   bool
	runRows    int
	runQuiet   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, aggregate and correlate the datasets and write a report",
	Example: `  scorecorr run
  scorecorr run --offline --data-dir ./snapshots
  scorecorr run --no-plots --no-map --rows 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		fetcher, err := newFetcher(c, runOffline)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		m := run.New(c.OutputDir, time.Now())
		m.Offline = runOffline
		for _, s := range c.Sources().All() {
			m.Sources = append(m.Sources, run.Source{Name: s.Name, DatasetID: s.DatasetID, Limit: s.Limit})
		}
		if err := m.Prepare(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logging.WithRunID(ctx, m.ID)
		err = executeRun(ctx, out, c, fetcher, m)
		m.Finish(time.Now(), err)
		if serr := m.Save(); serr != nil && err == nil {
			err = serr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Run %s written to %s\n", m.ID, m.Dir())
		return nil
	},
}

func pipelineConfig(c *cfgpkg.Global) pipeline.Config {
	return pipeline.Config{
		Sources:            c.Sources(),
		Options:            c.AnalysisOptions(),
		RankGrade:          c.RankGrade,
		RankSize:           c.RankSize,
		CorrelationColumns: c.CorrelationColumns,
		MapValueColumn:     c.MapValueColumn,
		SkipLocations:      runNoMap,
	}
}

func executeRun(ctx context.Context, out io.Writer, c *cfgpkg.Global, fetcher pipeline.Fetcher, m *run.Manifest) error {
	pcfg := pipelineConfig(c)
	res, err := pipeline.New(fetcher, pcfg, slog.Default()).Run(ctx)
	if err != nil {
		return err
	}
	for _, s := range res.Subjects {
		m.Subjects = append(m.Subjects, run.Subject{Name: s.Name, Loaded: s.Loaded, Kept: s.Cleaned.Len(), Groups: s.Averages.Len(), Excluded: s.Excluded})
	}
	m.Notes = res.Notes

	if !runQuiet {
		printResult(out, res, runRows)
	}

	rep := res.Report(m.ID, m.StartedAt, pcfg)
	rep.SampleRows = runRows
	reportPath := m.Path("report.md")
	if err := utils.SafeWriteFile(reportPath, []byte(rep.Markdown())); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	m.Record("report", "report.md")
	fmt.Fprintf(out, "✓ Wrote report to %s\n", reportPath)

	if !runNoXLSX {
		sheets, err := workbookSheets(res, c.MapValueColumn)
		if err != nil {
			return err
		}
		p := m.Path("scorecorr.xlsx")
		if err := render.Workbook(p, sheets); err != nil {
			return err
		}
		m.Record("workbook", "scorecorr.xlsx")
		fmt.Fprintf(out, "✓ Wrote workbook to %s\n", p)
	}
	if !runNoPlots {
		if err := writePlots(out, res, c.ScatterPairs, m); err != nil {
			return err
		}
	}
	if !runNoMap && res.Locations != nil {
		p := m.Path("schools.geojson")
		fc := render.MapLayer(res.Locations, res.MapValues, c.MapValueColumn)
		if err := render.WriteGeoJSON(p, fc); err != nil {
			return err
		}
		m.Record("map", "schools.geojson")
		fmt.Fprintf(out, "✓ Wrote %d school locations to %s\n", len(fc.Features), p)
	}
	return nil
}

func printResult(w io.Writer, res *pipeline.Result, rows int) {
	for _, s := range res.Subjects {
		render.Table(w, s.Name+" averages by district and grade", s.Averages, rows)
		render.Table(w, s.Name+" ranges by grade: "+dataset.ColLevel34Pct, s.Ranges, 0)
		if s.Bottom != nil {
			render.Table(w, s.Name+" bottom districts by "+dataset.ColMeanScaleScore, narrow(s.Bottom), 0)
			render.Table(w, s.Name+" top districts by "+dataset.ColMeanScaleScore, narrow(s.Top), 0)
		}
		render.Matrix(w, s.Name+" correlations", s.Corr)
		if ranked := s.Corr.Ranked(dataset.ColLevel34Pct); len(ranked) > 0 {
			render.Ranked(w, s.Name+" ranked against "+dataset.ColLevel34Pct, ranked)
		}
	}
	render.Table(w, "Demographics by district", res.Demographics, rows)
	for _, n := range res.Notes {
		fmt.Fprintf(w, "⚠ %s\n", n)
	}
}

// narrow keeps the keys, score and ethnic shares of a ranking.
func narrow(t *table.Table) *table.Table {
	want := []string{dataset.ColDistrict, dataset.ColGrade, dataset.ColMeanScaleScore, dataset.ColLevel34Pct,
		dataset.ColAsianPct, dataset.ColBlackPct, dataset.ColHispanicPct, dataset.ColOtherPct, dataset.ColWhitePct}
	var cols []string
	for _, c := range want {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	out, err := t.Select(cols...)
	if err != nil {
		return t
	}
	return out
}

func workbookSheets(res *pipeline.Result, mapCol string) ([]render.Sheet, error) {
	var sheets []render.Sheet
	for _, s := range res.Subjects {
		sheets = append(sheets,
			render.Sheet{Name: s.Name + " averages", Table: s.Averages},
			render.Sheet{Name: s.Name + " joined", Table: s.Joined},
			render.Sheet{Name: s.Name + " ranges", Table: s.Ranges},
			render.Sheet{Name: s.Name + " correlations", Matrix: s.Corr},
		)
		if s.Bottom != nil {
			sheets = append(sheets,
				render.Sheet{Name: s.Name + " bottom", Table: s.Bottom},
				render.Sheet{Name: s.Name + " top", Table: s.Top})
		}
	}
	sheets = append(sheets, render.Sheet{Name: "Demographics", Table: res.Demographics})
	if len(res.MapValues) > 0 {
		mv, err := mapValuesTable(res.MapValues, mapCol)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, render.Sheet{Name: "Map values", Table: mv})
	}
	return sheets, nil
}

func mapValuesTable(values map[int]float64, col string) (*table.Table, error) {
	districts := make([]int, 0, len(values))
	for d := range values {
		districts = append(districts, d)
	}
	sort.Ints(districts)
	t, err := table.New(dataset.ColDistrict, col)
	if err != nil {
		return nil, fmt.Errorf("map values: %w", err)
	}
	for _, d := range districts {
		if err := t.Append(table.Number(float64(d)), table.Number(values[d])); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func writePlots(out io.Writer, res *pipeline.Result, pairs []string, m *run.Manifest) error {
	for _, s := range res.Subjects {
		for _, pair := range pairs {
			x, y, err := cfgpkg.ParsePair(pair)
			if err != nil {
				return err
			}
			xs, ys, err := analysis.Scatter(s.Joined, x, y)
			if err != nil {
				return fmt.Errorf("%s scatter %s: %w", s.Name, pair, err)
			}
			if len(xs) == 0 {
				slog.Warn("no complete rows for scatter plot", "subject", s.Name, "x", x, "y", y)
				continue
			}
			name := slug(s.Name+" "+x+" vs "+y) + ".png"
			p := m.Path(name)
			plot := render.ScatterPlot{Title: fmt.Sprintf("%s: %s vs %s", s.Name, x, y), XLabel: x, YLabel: y, X: xs, Y: ys}
			if err := plot.SavePNG(p); err != nil {
				return err
			}
			m.Record("plot", name)
			fmt.Fprintf(out, "✓ Wrote plot %s\n", p)
		}
	}
	return nil
}

// slug turns a title into a lowercase file name.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '%':
			b.WriteString("pct")
			dash = false
		case r == '+':
			b.WriteString("plus")
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "read datasets from data_dir snapshots instead of the portal")
	runCmd.Flags().BoolVar(&runNoXLSX, "no-xlsx", false, "skip the workbook export")
	runCmd.Flags().BoolVar(&runNoPlots, "no-plots", false, "skip scatter plot images")
	runCmd.Flags().BoolVar(&runNoMap, "no-map", false, "skip the locations dataset and GeoJSON map layer")
	runCmd.Flags().IntVar(&runRows, "rows", 10, "rows of each aggregate table to print")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "do not print tables to the terminal")
}

