package analysis

import (
	"fmt"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// AverageDemographics collapses demographic snapshots to one row per
// region: summed total enrollment and the rounded mean of every other
// numeric column across schools and years.
func AverageDemographics(t *table.Table, opt Options) (*table.Table, error) {
	var cols []string
	for _, c := range t.Columns() {
		switch c {
		case dataset.ColDBN, dataset.ColSchoolName, dataset.ColYear:
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) < 2 || cols[0] != dataset.ColDistrict || cols[1] != dataset.ColTotalEnrollment {
		return nil, fmt.Errorf("demographics: expected %s, %s leading columns, got %v", dataset.ColDistrict, dataset.ColTotalEnrollment, cols)
	}
	return aggregate(t, cols[:1], cols[1], cols[2:], opt)
}
