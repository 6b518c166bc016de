// Package pipeline runs the fetch, clean, aggregate, join and correlate
// stages for every exam subject.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// Fetcher returns up to limit raw rows of a dataset.
type Fetcher interface {
	Fetch(ctx context.Context, datasetID string, limit int) ([]dataset.Record, error)
}

// Config selects sources and analysis parameters.
type Config struct {
	Sources dataset.Sources
	Options analysis.Options
	// RankGrade and RankSize pick the bottom/top districts listing.
	RankGrade int
	RankSize  int
	// CorrelationColumns overrides the default correlation subset.
	CorrelationColumns []string
	// MapValueColumn is averaged per district for the map layer.
	MapValueColumn string
	// SkipLocations leaves out the locations fetch and map values.
	SkipLocations bool
}

// DefaultConfig mirrors the config package defaults.
func DefaultConfig() Config {
	return Config{
		Sources:        dataset.DefaultSources(),
		Options:        analysis.DefaultOptions(),
		RankGrade:      5,
		RankSize:       5,
		MapValueColumn: dataset.ColMeanScaleScore,
	}
}

// Subject holds every stage output for one exam.
type Subject struct {
	Name     string
	Loaded   int
	Cleaned  *table.Table
	Excluded map[int]int
	Averages *table.Table
	Joined   *table.Table
	Ranges   *table.Table
	Bottom   *table.Table
	Top      *table.Table
	Corr     *analysis.CorrMatrix
}

// Result is the output of a full run.
type Result struct {
	Subjects     []*Subject
	Demographics *table.Table
	Locations    []dataset.Location
	MapValues    map[int]float64
	Notes        []string
}

// Subject returns the named subject or nil.
func (r *Result) Subject(name string) *Subject {
	for _, s := range r.Subjects {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Input is a loaded, uncleaned score table for one subject.
type Input struct {
	Name  string
	Table *table.Table
}

// Pipeline fetches and analyzes the configured datasets.
type Pipeline struct {
	fetcher Fetcher
	cfg     Config
	log     *slog.Logger
}

// New returns a pipeline. A nil logger uses slog.Default.
func New(f Fetcher, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{fetcher: f, cfg: cfg, log: log}
}

// Run fetches every source in order and analyzes them. Any fetch, load or
// cast failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	src := p.cfg.Sources
	ela, err := p.load(ctx, src.ELA)
	if err != nil {
		return nil, err
	}
	mth, err := p.load(ctx, src.Math)
	if err != nil {
		return nil, err
	}
	demo, err := p.load(ctx, src.Demographics)
	if err != nil {
		return nil, err
	}
	res, err := Analyze(ctx, []Input{{Name: "ELA", Table: ela}, {Name: "Math", Table: mth}}, demo, p.cfg, p.log)
	if err != nil {
		return nil, err
	}
	if p.cfg.SkipLocations {
		return res, nil
	}

	start := time.Now()
	recs, err := p.fetcher.Fetch(ctx, src.Locations.DatasetID, src.Locations.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Locations, err)
	}
	locs, err := dataset.LoadLocations(recs)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Locations, err)
	}
	usable := dataset.Usable(locs)
	p.log.InfoContext(ctx, "loaded locations", "dataset", src.Locations.DatasetID, "rows", len(locs), "with_coordinates", len(usable), "elapsed", time.Since(start).Round(time.Millisecond))
	res.Locations = locs
	if missing := len(locs) - len(usable); missing > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d school locations have no usable coordinates and are left off the map", missing))
	}
	if first := res.Subjects[0]; first.Averages != nil {
		res.MapValues, err = analysis.RegionMeans(first.Averages, dataset.ColDistrict, p.cfg.MapValueColumn, p.cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
	}
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, src dataset.Source) (*table.Table, error) {
	start := time.Now()
	recs, err := p.fetcher.Fetch(ctx, src.DatasetID, src.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	t, err := dataset.Load(recs, src.Schema)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	p.log.InfoContext(ctx, "loaded dataset", "name", src.Name, "dataset", src.DatasetID, "rows", t.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return t, nil
}

// Analyze runs every stage after loading: clean, region, aggregate, join,
// range, rank and correlate.
func Analyze(ctx context.Context, subjects []Input, demographics *table.Table, cfg Config, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}
	res := &Result{}

	demo, err := prepare(demographics, analysis.DemographicCleanOptions(), cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("demographics: %w", err)
	}
	res.Notes = append(res.Notes, excludedNotes("Demographics", demo.excluded)...)
	logStage(ctx, log, "Demographics", demographics.Len(), demo)
	res.Demographics, err = analysis.AverageDemographics(demo.table, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("demographics: %w", err)
	}

	for _, in := range subjects {
		s, err := analyzeSubject(ctx, in, res.Demographics, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
		res.Notes = append(res.Notes, excludedNotes(in.Name, s.Excluded)...)
		res.Subjects = append(res.Subjects, s)
	}
	return res, nil
}

func analyzeSubject(ctx context.Context, in Input, demographics *table.Table, cfg Config, log *slog.Logger) (*Subject, error) {
	prep, err := prepare(in.Table, analysis.ScoreCleanOptions(cfg.Options.Grades), cfg.Options)
	if err != nil {
		return nil, err
	}
	logStage(ctx, log, in.Name, in.Table.Len(), prep)
	s := &Subject{Name: in.Name, Loaded: in.Table.Len(), Cleaned: prep.table, Excluded: prep.excluded}

	if s.Averages, err = analysis.AverageByRegionGrade(prep.table, dataset.ScoreAggregateColumns, cfg.Options); err != nil {
		return nil, err
	}
	if s.Joined, err = analysis.LeftJoin(s.Averages, demographics, dataset.ColDistrict); err != nil {
		return nil, err
	}
	if s.Ranges, err = analysis.RangeByGrade(s.Averages, dataset.ColLevel34Pct, cfg.Options); err != nil {
		return nil, err
	}
	if cfg.RankSize > 0 {
		if s.Bottom, err = analysis.RankByGrade(s.Joined, cfg.RankGrade, dataset.ColMeanScaleScore, cfg.RankSize, true); err != nil {
			return nil, err
		}
		if s.Top, err = analysis.RankByGrade(s.Joined, cfg.RankGrade, dataset.ColMeanScaleScore, cfg.RankSize, false); err != nil {
			return nil, err
		}
	}
	if len(cfg.CorrelationColumns) > 0 {
		s.Corr, err = analysis.CorrelateColumns(s.Joined, cfg.CorrelationColumns)
	} else {
		s.Corr, err = analysis.Correlate(s.Joined, dataset.DefaultCorrelationPositions)
	}
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "analyzed subject", "subject", in.Name, "groups", s.Averages.Len(), "correlated_columns", len(s.Corr.Columns))
	return s, nil
}

type prepared struct {
	table    *table.Table
	dropped  int
	excluded map[int]int
}

// prepare cleans t, adds the District column and counts rows outside the
// configured region range.
func prepare(t *table.Table, clean analysis.CleanOptions, opt analysis.Options) (prepared, error) {
	cleaned, err := analysis.Clean(t, clean)
	if err != nil {
		return prepared{}, err
	}
	withRegion, err := analysis.WithRegion(cleaned, dataset.ColDBN)
	if err != nil {
		return prepared{}, err
	}
	return prepared{
		table:    withRegion,
		dropped:  t.Len() - cleaned.Len(),
		excluded: analysis.OutOfRange(withRegion, dataset.ColDistrict, opt.Regions),
	}, nil
}

func logStage(ctx context.Context, log *slog.Logger, name string, loaded int, p prepared) {
	log.InfoContext(ctx, "cleaned dataset", "name", name, "loaded", loaded, "kept", p.table.Len(), "dropped", p.dropped)
	for _, region := range sortedKeys(p.excluded) {
		log.WarnContext(ctx, "rows outside district range excluded", "name", name, "district", region, "rows", p.excluded[region])
	}
}

func excludedNotes(name string, excluded map[int]int) []string {
	var out []string
	for _, region := range sortedKeys(excluded) {
		out = append(out, fmt.Sprintf("%s: %d rows from district %d are outside the analysed range", name, excluded[region], region))
	}
	return out
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
