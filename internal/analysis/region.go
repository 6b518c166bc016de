package analysis

import (
	"fmt"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// WithRegion returns a copy of t with a District column at position 0,
// extracted from the school code in idCol.
func WithRegion(t *table.Table, idCol string) (*table.Table, error) {
	if !t.Has(idCol) {
		return nil, fmt.Errorf("region: unknown column %q", idCol)
	}
	return t.Insert(0, dataset.ColDistrict, func(r table.Row) (table.Value, error) {
		n, err := dataset.ExtractRegion(r.Get(idCol).Text())
		if err != nil {
			return table.Null(), fmt.Errorf("row %d: %w", r.Num(), err)
		}
		return table.Number(float64(n)), nil
	})
}

// OutOfRange counts rows per region that fall outside rng.
func OutOfRange(t *table.Table, regionCol string, rng Range) map[int]int {
	out := map[int]int{}
	for _, r := range t.Rows() {
		f, ok := r.Get(regionCol).Float()
		if !ok {
			continue
		}
		if n := int(f); !rng.Contains(n) {
			out[n]++
		}
	}
	return out
}
