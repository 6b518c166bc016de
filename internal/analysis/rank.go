package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// RankByGrade returns up to n rows of one grade ordered by col, lowest first
// when ascending. Rows with a null col are skipped.
func RankByGrade(t *table.Table, grade int, col string, n int, ascending bool) (*table.Table, error) {
	if !t.Has(dataset.ColGrade) {
		return nil, fmt.Errorf("rank: unknown column %q", dataset.ColGrade)
	}
	if !t.Has(col) {
		return nil, fmt.Errorf("rank: unknown column %q", col)
	}
	rows := t.Filter(func(r table.Row) bool {
		g, ok := r.Get(dataset.ColGrade).Float()
		_, has := r.Get(col).Float()
		return ok && int(g) == grade && has
	}).Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Get(col).Float()
		b, _ := rows[j].Get(col).Float()
		if ascending {
			return a < b
		}
		return a > b
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	out := table.MustNew(t.Columns()...)
	for _, r := range rows {
		if err := out.Append(r.Values()...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
