package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a single correlation between two columns.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate computes Pearson correlations between the columns at the given
// positions. Each pair uses only rows where both values are present.
func Correlate(t *table.Table, positions []int) (*CorrMatrix, error) {
	cols := t.Columns()
	names := make([]string, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(cols) {
			return nil, fmt.Errorf("correlate: column position %d out of range (table has %d columns)", p, len(cols))
		}
		names[i] = cols[p]
	}
	return CorrelateColumns(t, names)
}

// CorrelateColumns is Correlate addressed by column name.
func CorrelateColumns(t *table.Table, names []string) (*CorrMatrix, error) {
	series := make([][]table.Value, len(names))
	for i, n := range names {
		vals, err := t.Column(n)
		if err != nil {
			return nil, fmt.Errorf("correlate: %w", err)
		}
		for r, v := range vals {
			if !v.IsNull() && !v.IsNumber() {
				return nil, &CastError{Row: r, Column: n, Value: v.Text(), Err: ErrNotNumeric}
			}
		}
		series[i] = vals
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pearson(series[a], series[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: append([]string{}, names...), Values: mat}, nil
}

// pearson returns r over pairwise-complete observations. Fewer than two
// observations or a constant series yields NaN.
func pearson(xs, ys []table.Value) float64 {
	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range xs {
		a, okA := xs[i].Float()
		b, okB := ys[i].Float()
		if okA && okB {
			x = append(x, a)
			y = append(y, b)
		}
	}
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// At returns the coefficient for two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

func (m *CorrMatrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Ranked lists the correlations of target with every other column, strongest
// |r| first. Undefined coefficients are left out.
func (m *CorrMatrix) Ranked(target string) []PairCorr {
	ti := m.index(target)
	if ti < 0 {
		return nil
	}
	var out []PairCorr
	for j, c := range m.Columns {
		if j == ti || math.IsNaN(m.Values[ti][j]) {
			continue
		}
		out = append(out, PairCorr{A: target, B: c, R: m.Values[ti][j]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].R) > math.Abs(out[j].R)
	})
	return out
}

// Pairs returns every distinct off-diagonal pair, strongest |r| first.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if math.IsNaN(m.Values[i][j]) {
				continue
			}
			out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].R), math.Abs(out[j].R)
		if ai == aj {
			return out[i].A+out[i].B < out[j].A+out[j].B
		}
		return ai > aj
	})
	return out
}

// Scatter returns the pairwise-complete points of two columns.
func Scatter(t *table.Table, xCol, yCol string) (xs, ys []float64, err error) {
	xv, err := t.Column(xCol)
	if err != nil {
		return nil, nil, err
	}
	yv, err := t.Column(yCol)
	if err != nil {
		return nil, nil, err
	}
	for i := range xv {
		a, okA := xv[i].Float()
		b, okB := yv[i].Float()
		if okA && okB {
			xs = append(xs, a)
			ys = append(ys, b)
		}
	}
	return xs, ys, nil
}
