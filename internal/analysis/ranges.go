package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// RangeByGrade reports, for every grade in opt.Grades, the lowest and
// highest value of col across regions and their rounded difference.
// Grades without any value are skipped. A zero opt.Grades spans the
// observed grades.
func RangeByGrade(t *table.Table, col string, opt Options) (*table.Table, error) {
	gp, ok := t.Index(dataset.ColGrade)
	if !ok {
		return nil, fmt.Errorf("ranges: unknown column %q", dataset.ColGrade)
	}
	cp, ok := t.Index(col)
	if !ok {
		return nil, fmt.Errorf("ranges: unknown column %q", col)
	}
	grades := opt.Grades
	if grades.IsZero() {
		grades = observedGrades(t, gp)
	}
	out := table.MustNew(dataset.ColGrade, "Lowest", "Highest", "Range")
	for g := grades.Min; g <= grades.Max; g++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		found := false
		for _, r := range t.Rows() {
			gv, ok := r.At(gp).Float()
			if !ok || int(gv) != g {
				continue
			}
			v, ok := r.At(cp).Float()
			if !ok {
				continue
			}
			found = true
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !found {
			continue
		}
		if err := out.Append(table.Number(float64(g)), table.Number(lo), table.Number(hi), table.Number(opt.round(hi-lo))); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// observedGrades returns the smallest and largest grade in column gp, or an
// empty (Min > Max) range when there is none.
func observedGrades(t *table.Table, gp int) Range {
	r := Range{Min: 1, Max: 0}
	seen := false
	for _, row := range t.Rows() {
		gv, ok := row.At(gp).Float()
		if !ok {
			continue
		}
		g := int(gv)
		if !seen {
			r = Range{Min: g, Max: g}
			seen = true
			continue
		}
		if g < r.Min {
			r.Min = g
		}
		if g > r.Max {
			r.Max = g
		}
	}
	return r
}
