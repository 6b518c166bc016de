package analysis

import (
	"fmt"

	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// LeftJoin keeps every row of left, in order, and appends the matching
// right-side columns. Left rows without a match get nulls. Non-key columns
// present on both sides are suffixed _x (left) and _y (right).
func LeftJoin(left, right *table.Table, key string) (*table.Table, error) {
	lk, ok := left.Index(key)
	if !ok {
		return nil, fmt.Errorf("join: left table has no column %q", key)
	}
	rk, ok := right.Index(key)
	if !ok {
		return nil, fmt.Errorf("join: right table has no column %q", key)
	}

	lookup := make(map[string]int, right.Len())
	for _, r := range right.Rows() {
		k := r.At(rk)
		if k.IsNull() {
			continue
		}
		if _, dup := lookup[k.Text()]; dup {
			return nil, fmt.Errorf("%w: %s=%s", ErrDuplicateKey, key, k.Text())
		}
		lookup[k.Text()] = r.Num()
	}

	var rightCols []int
	for i := range right.Columns() {
		if i != rk {
			rightCols = append(rightCols, i)
		}
	}
	leftNames := left.Columns()
	rightAll := right.Columns()
	shared := map[string]bool{}
	for _, i := range rightCols {
		if left.Has(rightAll[i]) {
			shared[rightAll[i]] = true
		}
	}
	names := make([]string, 0, len(leftNames)+len(rightCols))
	for _, n := range leftNames {
		if shared[n] {
			n += "_x"
		}
		names = append(names, n)
	}
	for _, i := range rightCols {
		n := rightAll[i]
		if shared[n] {
			n += "_y"
		}
		names = append(names, n)
	}

	out, err := table.New(names...)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	for _, r := range left.Rows() {
		row := r.Values()
		ri, matched := -1, false
		if k := r.At(lk); !k.IsNull() {
			ri, matched = lookup[k.Text()]
		}
		for _, i := range rightCols {
			if matched {
				row = append(row, right.Row(ri).At(i))
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
