package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// CleanOptions selects which rows to drop and which columns to cast.
type CleanOptions struct {
	// Rows where SentinelColumn equals Sentinel are dropped ("s" = suppressed).
	SentinelColumn string
	Sentinel       string
	// Rows where MarkerColumn equals Marker are dropped ("All Grades").
	MarkerColumn string
	Marker       string
	// FloatColumns are cast to numbers; nulls stay null.
	FloatColumns []string
	// IntColumns are cast to integral numbers and must lie within IntRange.
	IntColumns []string
	IntRange   Range
}

// ScoreCleanOptions is the cleaning policy for ELA and Math results.
func ScoreCleanOptions(grades Range) CleanOptions {
	return CleanOptions{
		SentinelColumn: dataset.ColMeanScaleScore,
		Sentinel:       "s",
		MarkerColumn:   dataset.ColGrade,
		Marker:         "All Grades",
		FloatColumns:   dataset.ScoreNumericColumns,
		IntColumns:     []string{dataset.ColGrade},
		IntRange:       grades,
	}
}

// DemographicCleanOptions casts every demographic column after Year.
func DemographicCleanOptions() CleanOptions {
	return CleanOptions{FloatColumns: dataset.DemographicNumericColumns}
}

// Clean drops suppressed and aggregate rows, then casts the designated
// columns. Any value that still fails to parse is a fatal *CastError.
func Clean(t *table.Table, opt CleanOptions) (*table.Table, error) {
	for _, c := range append(append([]string{}, opt.FloatColumns...), opt.IntColumns...) {
		if !t.Has(c) {
			return nil, fmt.Errorf("clean: unknown column %q", c)
		}
	}
	kept := t.Filter(func(r table.Row) bool {
		if opt.SentinelColumn != "" && matches(r.Get(opt.SentinelColumn), opt.Sentinel) {
			return false
		}
		if opt.MarkerColumn != "" && matches(r.Get(opt.MarkerColumn), opt.Marker) {
			return false
		}
		return true
	})

	floatPos := positions(kept, opt.FloatColumns)
	intPos := positions(kept, opt.IntColumns)
	return kept.Map(func(r table.Row, vals []table.Value) error {
		for i, p := range floatPos {
			v, err := toFloat(vals[p])
			if err != nil {
				return &CastError{Row: r.Num(), Column: opt.FloatColumns[i], Value: vals[p].Text(), Err: err}
			}
			vals[p] = v
		}
		for i, p := range intPos {
			v, err := toInt(vals[p], opt.IntRange)
			if err != nil {
				return &CastError{Row: r.Num(), Column: opt.IntColumns[i], Value: vals[p].Text(), Err: err}
			}
			vals[p] = v
		}
		return nil
	})
}

func matches(v table.Value, s string) bool {
	return v.Kind() == table.KindString && strings.TrimSpace(v.Text()) == s
}

func positions(t *table.Table, cols []string) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i], _ = t.Index(c)
	}
	return out
}

func toFloat(v table.Value) (table.Value, error) {
	switch v.Kind() {
	case table.KindNull, table.KindNumber:
		return v, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
	if err != nil {
		return table.Null(), ErrNotNumeric
	}
	return table.Number(f), nil
}

func toInt(v table.Value, rng Range) (table.Value, error) {
	if v.IsNull() {
		return table.Null(), ErrNotNumeric
	}
	n, err := toFloat(v)
	if err != nil {
		return table.Null(), err
	}
	f, _ := n.Float()
	if f != math.Trunc(f) {
		return table.Null(), ErrNotNumeric
	}
	if !rng.Contains(int(f)) {
		return table.Null(), fmt.Errorf("%w: %d not in [%d,%d]", ErrOutOfRange, int(f), rng.Min, rng.Max)
	}
	return n, nil
}
