// Package render writes analysis tables to terminals, workbooks, images and
// GeoJSON map layers.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	tbl "github.com/KaramelBytes/scorecorr-cli/internal/table"
)

var printer = message.NewPrinter(language.English)

// FormatValue renders a cell with thousands separators; integral numbers
// print without decimals and null prints empty.
func FormatValue(v tbl.Value) string {
	f, ok := v.Float()
	if !ok {
		return v.Text()
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return printer.Sprintf("%d", int64(f))
	}
	return printer.Sprintf("%.2f", f)
}

// Table prints up to limit rows of t as a boxed table. limit <= 0 prints all.
func Table(w io.Writer, title string, t *tbl.Table, limit int) {
	if t == nil || t.Len() == 0 {
		_, _ = fmt.Fprintf(w, "%s: (0 rows)\n", title)
		return
	}
	tw := newWriter(w, title)

	header := make(table.Row, t.Width())
	for i, c := range t.Columns() {
		header[i] = c
	}
	tw.AppendHeader(header)

	n := t.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		vals := t.Row(i).Values()
		row := make(table.Row, len(vals))
		for j, v := range vals {
			row[j] = FormatValue(v)
		}
		tw.AppendRow(row)
	}
	if n < t.Len() {
		tw.AppendFooter(table.Row{printer.Sprintf("%d of %d rows", n, t.Len())})
	}
	tw.Render()
}

// newWriter returns a light-style writer that keeps header case.
func newWriter(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	style := tw.Style()
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	style.Title.Format = text.FormatDefault
	tw.SetTitle(title)
	return tw
}

// Matrix prints a correlation matrix.
func Matrix(w io.Writer, title string, m *analysis.CorrMatrix) {
	if m == nil || len(m.Columns) == 0 {
		_, _ = fmt.Fprintf(w, "%s: (empty)\n", title)
		return
	}
	tw := newWriter(w, title)
	header := table.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for i, c := range m.Columns {
		row := table.Row{c}
		for _, r := range m.Values[i] {
			row = append(row, analysis.FormatR(r))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

// Ranked prints correlations against one target column, strongest first.
func Ranked(w io.Writer, title string, pairs []analysis.PairCorr) {
	tw := newWriter(w, title)
	tw.AppendHeader(table.Row{"Column", "r"})
	for _, p := range pairs {
		tw.AppendRow(table.Row{p.B, analysis.FormatR(p.R)})
	}
	tw.Render()
}
