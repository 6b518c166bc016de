package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// SubjectReport collects the results for one exam subject.
type SubjectReport struct {
	Name       string
	Averages   *table.Table
	Ranges     *table.Table
	RangeCol   string
	RankGrade  int
	RankCol    string
	Bottom     *table.Table
	Top        *table.Table
	Corr       *CorrMatrix
	CorrTarget string
}

// Report is a markdown-friendly summary of an analysis run.
type Report struct {
	RunID        string
	GeneratedAt  time.Time
	Sources      []string
	Subjects     []SubjectReport
	Demographics *table.Table
	// SampleRows limits how many aggregate rows are printed per table.
	SampleRows int
	Notes      []string
}

// Markdown renders the report as bracketed sections with Markdown tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	}
	if !r.GeneratedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	for _, s := range r.Sources {
		b.WriteString(fmt.Sprintf("- %s\n", s))
	}
	sample := r.SampleRows
	if sample <= 0 {
		sample = 10
	}

	for _, s := range r.Subjects {
		name := strings.ToUpper(s.Name)
		if s.Averages != nil {
			b.WriteString(fmt.Sprintf("\n[%s AVERAGES BY DISTRICT AND GRADE]\n", name))
			b.WriteString(fmt.Sprintf("Rows: %d\n", s.Averages.Len()))
			writeTable(&b, s.Averages, sample)
		}
		if s.Ranges != nil && s.Ranges.Len() > 0 {
			b.WriteString(fmt.Sprintf("\n[%s RANGES BY GRADE: %s]\n", name, s.RangeCol))
			writeTable(&b, s.Ranges, 0)
		}
		if s.Bottom != nil && s.Bottom.Len() > 0 {
			b.WriteString(fmt.Sprintf("\n[%s BOTTOM %d, GRADE %d BY %s]\n", name, s.Bottom.Len(), s.RankGrade, s.RankCol))
			writeTable(&b, s.Bottom, 0)
		}
		if s.Top != nil && s.Top.Len() > 0 {
			b.WriteString(fmt.Sprintf("\n[%s TOP %d, GRADE %d BY %s]\n", name, s.Top.Len(), s.RankGrade, s.RankCol))
			writeTable(&b, s.Top, 0)
		}
		if s.Corr != nil && len(s.Corr.Columns) >= 2 {
			b.WriteString(fmt.Sprintf("\n[%s CORRELATIONS]\n", name))
			writeMatrix(&b, s.Corr)
			if s.CorrTarget != "" {
				ranked := s.Corr.Ranked(s.CorrTarget)
				if len(ranked) > 0 {
					b.WriteString(fmt.Sprintf("\nRanked against %s:\n", s.CorrTarget))
					for _, p := range ranked {
						b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
					}
				}
			}
		}
	}
	if r.Demographics != nil {
		b.WriteString("\n[DEMOGRAPHICS BY DISTRICT]\n")
		b.WriteString(fmt.Sprintf("Rows: %d\n", r.Demographics.Len()))
		writeTable(&b, r.Demographics, sample)
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, t *table.Table, limit int) {
	cols := t.Columns()
	b.WriteString("| ")
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" |\n|")
	for range cols {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	n := t.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		vals := t.Row(i).Values()
		cells := make([]string, len(vals))
		for j, v := range vals {
			cells[j] = safeVal(v.Text())
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	if n < t.Len() {
		b.WriteString(fmt.Sprintf("(%d more rows)\n", t.Len()-n))
	}
}

func writeMatrix(b *strings.Builder, m *CorrMatrix) {
	b.WriteString("| |")
	for _, c := range m.Columns {
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString(" |")
	}
	b.WriteString("\n| --- |")
	for range m.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for i, c := range m.Columns {
		b.WriteString("| ")
		b.WriteString(c)
		b.WriteString(" |")
		for j := range m.Columns {
			b.WriteString(" ")
			b.WriteString(FormatR(m.Values[i][j]))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
}

// FormatR formats a coefficient with three decimals; NaN renders as "n/a".
func FormatR(r float64) string {
	if math.IsNaN(r) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", r)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
