package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// AverageByRegionGrade groups cleaned rows by region and grade. columns[0]
// and columns[1] name the region and grade keys, columns[2] is summed and
// every later column is averaged and rounded. Only grades present in a
// region produce rows.
func AverageByRegionGrade(t *table.Table, columns []string, opt Options) (*table.Table, error) {
	if len(columns) < 3 {
		return nil, fmt.Errorf("aggregate: need region, grade and count columns, got %v", columns)
	}
	return aggregate(t, columns[:2], columns[2], columns[3:], opt)
}

// RegionMeans averages one column over all rows of each region, for example
// to colour a district map. Regions whose values are all null are omitted.
func RegionMeans(t *table.Table, regionCol, col string, opt Options) (map[int]float64, error) {
	groups, err := groupBy(t, []string{regionCol}, opt.Regions)
	if err != nil {
		return nil, err
	}
	pos, ok := t.Index(col)
	if !ok {
		return nil, fmt.Errorf("region means: unknown column %q", col)
	}
	out := make(map[int]float64, len(groups))
	for _, g := range groups {
		if m, ok := mean(t, g.rows, pos); ok {
			out[g.key[0]] = opt.round(m)
		}
	}
	return out, nil
}

type group struct {
	key  []int
	rows []int
}

// aggregate emits one row per distinct key: keys, the rounded-to-integer
// sum of sumCol, then the rounded means of meanCols.
func aggregate(t *table.Table, keys []string, sumCol string, meanCols []string, opt Options) (*table.Table, error) {
	groups, err := groupBy(t, keys, opt.Regions)
	if err != nil {
		return nil, err
	}
	sumPos, ok := t.Index(sumCol)
	if !ok {
		return nil, fmt.Errorf("aggregate: unknown column %q", sumCol)
	}
	meanPos := make([]int, len(meanCols))
	for i, c := range meanCols {
		p, ok := t.Index(c)
		if !ok {
			return nil, fmt.Errorf("aggregate: unknown column %q", c)
		}
		meanPos[i] = p
	}

	cols := append(append(append([]string{}, keys...), sumCol), meanCols...)
	out, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		row := make([]table.Value, 0, len(cols))
		for _, k := range g.key {
			row = append(row, table.Number(float64(k)))
		}
		row = append(row, table.Number(math.Round(sum(t, g.rows, sumPos))))
		for _, p := range meanPos {
			if m, ok := mean(t, g.rows, p); ok {
				row = append(row, table.Number(opt.round(m)))
			} else {
				row = append(row, table.Null())
			}
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// groupBy buckets rows by integer key columns, sorted ascending by key.
// The first key is the region and is bounded by regions.
func groupBy(t *table.Table, keys []string, regions Range) ([]group, error) {
	pos := make([]int, len(keys))
	for i, k := range keys {
		p, ok := t.Index(k)
		if !ok {
			return nil, fmt.Errorf("group: unknown column %q", k)
		}
		pos[i] = p
	}
	index := map[string]int{}
	var groups []group
	for _, r := range t.Rows() {
		key := make([]int, len(pos))
		for i, p := range pos {
			f, ok := r.At(p).Float()
			if !ok || f != math.Trunc(f) {
				return nil, &CastError{Row: r.Num(), Column: keys[i], Value: r.At(p).Text(), Err: ErrNotNumeric}
			}
			key[i] = int(f)
		}
		if !regions.Contains(key[0]) {
			continue
		}
		id := fmt.Sprint(key)
		gi, ok := index[id]
		if !ok {
			gi = len(groups)
			index[id] = gi
			groups = append(groups, group{key: key})
		}
		groups[gi].rows = append(groups[gi].rows, r.Num())
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].key, groups[j].key
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return groups, nil
}

func sum(t *table.Table, rows []int, col int) float64 {
	var s float64
	for _, i := range rows {
		if f, ok := t.Row(i).At(col).Float(); ok {
			s += f
		}
	}
	return s
}

func mean(t *table.Table, rows []int, col int) (float64, bool) {
	var s float64
	var n int
	for _, i := range rows {
		if f, ok := t.Row(i).At(col).Float(); ok {
			s += f
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return s / float64(n), true
}
