package pipeline

import (
	"time"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
)

// Report assembles the markdown report for a result.
func (r *Result) Report(runID string, at time.Time, cfg Config) *analysis.Report {
	rep := &analysis.Report{
		RunID:        runID,
		GeneratedAt:  at,
		Demographics: r.Demographics,
		Notes:        append([]string{}, r.Notes...),
	}
	for _, src := range cfg.Sources.All() {
		rep.Sources = append(rep.Sources, src.String())
	}
	for _, s := range r.Subjects {
		rep.Subjects = append(rep.Subjects, analysis.SubjectReport{
			Name:       s.Name,
			Averages:   s.Averages,
			Ranges:     s.Ranges,
			RangeCol:   dataset.ColLevel34Pct,
			RankGrade:  cfg.RankGrade,
			RankCol:    dataset.ColMeanScaleScore,
			Bottom:     s.Bottom,
			Top:        s.Top,
			Corr:       s.Corr,
			CorrTarget: dataset.ColLevel34Pct,
		})
	}
	return rep
}
