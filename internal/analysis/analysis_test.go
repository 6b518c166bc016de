package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

func scoreRec(dbn, grade, tested, mean, pct34 string) dataset.Record {
	r := dataset.Record{"dbn": dbn, "school_name": "School " + dbn, "grade": grade, "year": "2015", "number_tested": tested, "mean_scale_score": mean}
	if pct34 != "" {
		r["level_3_4_1"] = pct34
	}
	return r
}

func loadScores(t *testing.T, recs ...dataset.Record) *table.Table {
	t.Helper()
	tb, err := dataset.Load(recs, dataset.ScoreSchema)
	require.NoError(t, err)
	return tb
}

func num(t *testing.T, v table.Value) float64 {
	t.Helper()
	f, ok := v.Float()
	require.True(t, ok, "expected number, got %v", v)
	return f
}

func TestCleanDropsSentinelAndAggregateRows(t *testing.T) {
	raw := loadScores(t,
		scoreRec("01M001", "3", "10", "300", "40"),
		scoreRec("01M001", "4", "12", "s", "s"),
		scoreRec("01M001", "All Grades", "22", "301", "41"),
		scoreRec("01M002", "8", "9", "310", ""),
	)
	cleaned, err := Clean(raw, ScoreCleanOptions(DefaultOptions().Grades))
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.Len())
	assert.Equal(t, 4, raw.Len(), "input must be untouched")

	for _, r := range cleaned.Rows() {
		g := num(t, r.Get(dataset.ColGrade))
		assert.Equal(t, math.Trunc(g), g)
		assert.True(t, g >= 3 && g <= 8)
		for _, c := range dataset.ScoreNumericColumns {
			v := r.Get(c)
			assert.True(t, v.IsNull() || v.IsNumber(), "column %s = %v", c, v)
		}
	}
	assert.Equal(t, 300.0, num(t, cleaned.Row(0).Get(dataset.ColMeanScaleScore)))
	assert.True(t, cleaned.Row(1).Get(dataset.ColLevel34Pct).IsNull())
}

func TestCleanCastFailureIsFatal(t *testing.T) {
	raw := loadScores(t,
		scoreRec("01M001", "3", "10", "300", "40"),
		scoreRec("01M001", "4", "n/a", "305", "40"),
	)
	_, err := Clean(raw, ScoreCleanOptions(DefaultOptions().Grades))
	var ce *CastError
	require.True(t, errors.As(err, &ce), "err = %v", err)
	assert.Equal(t, dataset.ColNumberTested, ce.Column)
	assert.Equal(t, "n/a", ce.Value)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestCleanRejectsGradeOutsideRange(t *testing.T) {
	raw := loadScores(t, scoreRec("01M001", "9", "10", "300", "40"))
	_, err := Clean(raw, ScoreCleanOptions(DefaultOptions().Grades))
	assert.ErrorIs(t, err, ErrOutOfRange)

	raw = loadScores(t, scoreRec("01M001", "3.5", "10", "300", "40"))
	_, err = Clean(raw, ScoreCleanOptions(DefaultOptions().Grades))
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestWithRegion(t *testing.T) {
	raw := loadScores(t, scoreRec("05M123", "3", "1", "300", ""), scoreRec("21K456", "3", "1", "300", ""))
	out, err := WithRegion(raw, dataset.ColDBN)
	require.NoError(t, err)
	assert.Equal(t, dataset.ColDistrict, out.Columns()[0])
	assert.Equal(t, 5.0, num(t, out.Row(0).Get(dataset.ColDistrict)))
	assert.Equal(t, 21.0, num(t, out.Row(1).Get(dataset.ColDistrict)))
	assert.False(t, raw.Has(dataset.ColDistrict))

	bad := loadScores(t, scoreRec("X", "3", "1", "300", ""))
	_, err = WithRegion(bad, dataset.ColDBN)
	assert.ErrorIs(t, err, dataset.ErrBadRegion)
}

func prepared(t *testing.T, recs ...dataset.Record) *table.Table {
	t.Helper()
	cleaned, err := Clean(loadScores(t, recs...), ScoreCleanOptions(DefaultOptions().Grades))
	require.NoError(t, err)
	out, err := WithRegion(cleaned, dataset.ColDBN)
	require.NoError(t, err)
	return out
}

func TestAverageByRegionGradeUsesObservedGrades(t *testing.T) {
	tb := prepared(t,
		scoreRec("01M001", "3", "10", "300", "40"),
		scoreRec("01M002", "3", "20", "310", "50.5"),
		scoreRec("01M001", "4", "15", "305", "45"),
		scoreRec("01M001", "6", "5", "290", "30"),
		scoreRec("02M001", "3", "1", "280", ""),
		scoreRec("02M002", "3", "2", "281", ""),
		scoreRec("02M003", "3", "3", "281", ""),
		scoreRec("84X001", "3", "50", "320", "90"),
	)
	assert.Equal(t, map[int]int{84: 1}, OutOfRange(tb, dataset.ColDistrict, DefaultOptions().Regions))

	avg, err := AverageByRegionGrade(tb, dataset.ScoreAggregateColumns, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, dataset.ScoreAggregateColumns, avg.Columns())

	type row struct {
		region, grade, tested, mean float64
		pct                         any
	}
	want := []row{
		{1, 3, 30, 305, 45.25},
		{1, 4, 15, 305, 45.0},
		{1, 6, 5, 290, 30.0},
		{2, 3, 6, 280.67, nil},
	}
	require.Equal(t, len(want), avg.Len())
	for i, w := range want {
		r := avg.Row(i)
		assert.Equal(t, w.region, num(t, r.Get(dataset.ColDistrict)), "row %d", i)
		assert.Equal(t, w.grade, num(t, r.Get(dataset.ColGrade)), "row %d", i)
		assert.Equal(t, w.tested, num(t, r.Get(dataset.ColNumberTested)), "row %d", i)
		assert.Equal(t, w.mean, num(t, r.Get(dataset.ColMeanScaleScore)), "row %d", i)
		if w.pct == nil {
			assert.True(t, r.Get(dataset.ColLevel34Pct).IsNull(), "row %d", i)
		} else {
			assert.Equal(t, w.pct, num(t, r.Get(dataset.ColLevel34Pct)), "row %d", i)
		}
	}
}

func TestAverageRoundsTiesToEven(t *testing.T) {
	tb := prepared(t,
		scoreRec("01M001", "3", "10", "300.25", "0.25"),
		scoreRec("01M002", "3", "10", "300", "0"),
	)
	avg, err := AverageByRegionGrade(tb, dataset.ScoreAggregateColumns, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, avg.Len())
	assert.Equal(t, 300.12, num(t, avg.Row(0).Get(dataset.ColMeanScaleScore)))
	assert.Equal(t, 0.12, num(t, avg.Row(0).Get(dataset.ColLevel34Pct)))
}

func TestRound(t *testing.T) {
	opt := DefaultOptions()
	cases := map[float64]float64{
		0.125:     0.12,
		300.125:   300.12,
		0.375:     0.38,
		280.66667: 280.67,
		-0.125:    -0.12,
		12:        12,
	}
	for in, want := range cases {
		assert.Equal(t, want, opt.round(in), "round(%v)", in)
	}
	assert.True(t, math.IsNaN(opt.round(math.NaN())))
}

func TestAverageByRegionGradeNeedsThreeColumns(t *testing.T) {
	tb := prepared(t, scoreRec("01M001", "3", "10", "300", "40"))
	_, err := AverageByRegionGrade(tb, []string{dataset.ColDistrict, dataset.ColGrade}, DefaultOptions())
	assert.Error(t, err)
}

func TestRegionMeans(t *testing.T) {
	tb := prepared(t,
		scoreRec("01M001", "3", "10", "300", ""),
		scoreRec("01M001", "4", "10", "301", ""),
		scoreRec("03M001", "3", "10", "250", ""),
	)
	m, err := RegionMeans(tb, dataset.ColDistrict, dataset.ColMeanScaleScore, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{1: 300.5, 3: 250}, m)
}

func TestAverageDemographics(t *testing.T) {
	recs := []dataset.Record{
		{"dbn": "01M001", "school_name": "A", "year": "2013-14", "total_enrollment": "100", "asian_2": "10"},
		{"dbn": "01M001", "school_name": "A", "year": "2014-15", "total_enrollment": "200", "asian_2": "20.5"},
		{"dbn": "02M001", "school_name": "B", "year": "2013-14", "total_enrollment": "50", "asian_2": "33.333"},
	}
	raw, err := dataset.Load(recs, dataset.DemographicSchema)
	require.NoError(t, err)
	cleaned, err := Clean(raw, DemographicCleanOptions())
	require.NoError(t, err)
	withRegion, err := WithRegion(cleaned, dataset.ColDBN)
	require.NoError(t, err)

	avg, err := AverageDemographics(withRegion, DefaultOptions())
	require.NoError(t, err)
	cols := avg.Columns()
	assert.Equal(t, []string{dataset.ColDistrict, dataset.ColTotalEnrollment}, cols[:2])
	assert.NotContains(t, cols, dataset.ColYear)
	assert.NotContains(t, cols, dataset.ColDBN)
	require.Equal(t, 2, avg.Len())
	assert.Equal(t, 300.0, num(t, avg.Row(0).Get(dataset.ColTotalEnrollment)))
	assert.Equal(t, 15.25, num(t, avg.Row(0).Get(dataset.ColAsianPct)))
	assert.Equal(t, 33.33, num(t, avg.Row(1).Get(dataset.ColAsianPct)))
	assert.True(t, avg.Row(1).Get(dataset.ColWhitePct).IsNull())
}

func gradeTable(t *testing.T, rows [][3]float64) *table.Table {
	t.Helper()
	tb := table.MustNew(dataset.ColDistrict, dataset.ColGrade, dataset.ColLevel34Pct)
	for _, r := range rows {
		require.NoError(t, tb.Append(table.Number(r[0]), table.Number(r[1]), table.Number(r[2])))
	}
	return tb
}

func TestRangeByGrade(t *testing.T) {
	tb := gradeTable(t, [][3]float64{
		{1, 5, 20.78}, {2, 5, 45.0}, {3, 5, 67.36},
		{1, 3, 50},
	})
	out, err := RangeByGrade(tb, dataset.ColLevel34Pct, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{dataset.ColGrade, "Lowest", "Highest", "Range"}, out.Columns())
	require.Equal(t, 2, out.Len())

	g5 := out.Row(1)
	assert.Equal(t, 5.0, num(t, g5.Get(dataset.ColGrade)))
	assert.Equal(t, 20.78, num(t, g5.Get("Lowest")))
	assert.Equal(t, 67.36, num(t, g5.Get("Highest")))
	assert.Equal(t, 46.58, num(t, g5.Get("Range")))
	assert.Equal(t, 0.0, num(t, out.Row(0).Get("Range")))
}

func TestRangeByGradeZeroGradesUsesObserved(t *testing.T) {
	tb := gradeTable(t, [][3]float64{
		{1, 4, 10}, {2, 4, 30},
		{1, 7, 55.5},
	})
	out, err := RangeByGrade(tb, dataset.ColLevel34Pct, Options{Precision: 2})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 4.0, num(t, out.Row(0).Get(dataset.ColGrade)))
	assert.Equal(t, 20.0, num(t, out.Row(0).Get("Range")))
	assert.Equal(t, 7.0, num(t, out.Row(1).Get(dataset.ColGrade)))

	empty, err := RangeByGrade(table.MustNew(dataset.ColGrade, dataset.ColLevel34Pct), dataset.ColLevel34Pct, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestLeftJoinKeepsEveryLeftRow(t *testing.T) {
	left := gradeTable(t, [][3]float64{{1, 3, 10}, {1, 4, 11}, {2, 3, 12}, {7, 3, 13}})
	right := table.MustNew(dataset.ColDistrict, dataset.ColAsianPct)
	require.NoError(t, right.Append(table.Number(1), table.Number(30)))
	require.NoError(t, right.Append(table.Number(2), table.Number(40)))
	require.NoError(t, right.Append(table.Number(9), table.Number(50)))

	joined, err := LeftJoin(left, right, dataset.ColDistrict)
	require.NoError(t, err)
	assert.Equal(t, []string{dataset.ColDistrict, dataset.ColGrade, dataset.ColLevel34Pct, dataset.ColAsianPct}, joined.Columns())
	require.Equal(t, left.Len(), joined.Len())
	for i := 0; i < left.Len(); i++ {
		assert.Equal(t, left.Row(i).Values(), joined.Row(i).Values()[:3])
	}
	assert.Equal(t, 30.0, num(t, joined.Row(1).Get(dataset.ColAsianPct)))
	assert.Equal(t, 40.0, num(t, joined.Row(2).Get(dataset.ColAsianPct)))
	assert.True(t, joined.Row(3).Get(dataset.ColAsianPct).IsNull())
}

func TestLeftJoinErrors(t *testing.T) {
	left := gradeTable(t, [][3]float64{{1, 3, 10}})
	dup := table.MustNew(dataset.ColDistrict, dataset.ColGrade)
	require.NoError(t, dup.Append(table.Number(1), table.Number(3)))
	require.NoError(t, dup.Append(table.Number(1), table.Number(4)))
	_, err := LeftJoin(left, dup, dataset.ColDistrict)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	single := table.MustNew(dataset.ColDistrict, dataset.ColGrade)
	require.NoError(t, single.Append(table.Number(1), table.Number(5)))
	joined, err := LeftJoin(left, single, dataset.ColDistrict)
	require.NoError(t, err)
	assert.Equal(t, []string{dataset.ColDistrict, "Grade_x", dataset.ColLevel34Pct, "Grade_y"}, joined.Columns())

	_, err = LeftJoin(left, single, "nope")
	assert.Error(t, err)
}

func corrTable(t *testing.T) *table.Table {
	t.Helper()
	tb := table.MustNew("a", "b", "c", "d", "label")
	a := []float64{1, 2, 3, 4, 5}
	c := []table.Value{table.Number(2), table.Null(), table.Number(6), table.Number(8), table.Number(10)}
	for i, x := range a {
		require.NoError(t, tb.Append(table.Number(x), table.Number(100-x), c[i], table.Number(7), table.String("x")))
	}
	return tb
}

func TestCorrelateProperties(t *testing.T) {
	m, err := Correlate(corrTable(t), []int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, m.Columns)
	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			if math.IsNaN(m.Values[i][j]) {
				assert.True(t, math.IsNaN(m.Values[j][i]))
				continue
			}
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.True(t, m.Values[i][j] >= -1 && m.Values[i][j] <= 1)
		}
	}
	ab, _ := m.At("a", "b")
	assert.InDelta(t, -1.0, ab, 1e-9)
	ac, _ := m.At("a", "c")
	assert.InDelta(t, 1.0, ac, 1e-9)
	ad, _ := m.At("a", "d")
	assert.True(t, math.IsNaN(ad), "constant column should give NaN, got %v", ad)

	ranked := m.Ranked("a")
	require.Len(t, ranked, 2)
	assert.ElementsMatch(t, []string{"b", "c"}, []string{ranked[0].B, ranked[1].B})
	assert.Len(t, m.Pairs(), 3)
}

func TestCorrelateRejectsBadInput(t *testing.T) {
	tb := corrTable(t)
	_, err := Correlate(tb, []int{0, 4})
	assert.ErrorIs(t, err, ErrNotNumeric)
	_, err = Correlate(tb, []int{0, 9})
	assert.Error(t, err)
}

func TestRankByGrade(t *testing.T) {
	tb := gradeTable(t, [][3]float64{{1, 5, 30}, {2, 5, 10}, {3, 5, 20}, {4, 4, 1}})
	bottom, err := RankByGrade(tb, 5, dataset.ColLevel34Pct, 2, true)
	require.NoError(t, err)
	require.Equal(t, 2, bottom.Len())
	assert.Equal(t, 2.0, num(t, bottom.Row(0).Get(dataset.ColDistrict)))
	assert.Equal(t, 3.0, num(t, bottom.Row(1).Get(dataset.ColDistrict)))

	top, err := RankByGrade(tb, 5, dataset.ColLevel34Pct, 5, false)
	require.NoError(t, err)
	require.Equal(t, 3, top.Len())
	assert.Equal(t, 1.0, num(t, top.Row(0).Get(dataset.ColDistrict)))
}

func TestReportMarkdown(t *testing.T) {
	tb := gradeTable(t, [][3]float64{{1, 5, 20.78}, {2, 5, 45.0}, {3, 5, 67.36}})
	ranges, err := RangeByGrade(tb, dataset.ColLevel34Pct, DefaultOptions())
	require.NoError(t, err)
	m, err := Correlate(corrTable(t), []int{0, 1, 3})
	require.NoError(t, err)
	rep := &Report{
		RunID:   "run-1",
		Sources: []string{"ela (gu76-8i7h, limit 10)"},
		Subjects: []SubjectReport{{
			Name: "ela", Averages: tb, Ranges: ranges, RangeCol: dataset.ColLevel34Pct,
			Corr: m, CorrTarget: "a",
		}},
		SampleRows: 2,
		Notes:      []string{"excluded 3 rows outside districts 1-32"},
	}
	md := rep.Markdown()
	for _, want := range []string{
		"[RUN]", "Run: run-1",
		"[ELA AVERAGES BY DISTRICT AND GRADE]", "(1 more rows)",
		"[ELA RANGES BY GRADE: % Level 3+4]", "| 5 | 20.78 | 67.36 | 46.58 |",
		"[ELA CORRELATIONS]", "n/a", "- a ~ b: r=-1.000",
		"[NOTES]",
	} {
		assert.True(t, strings.Contains(md, want), "markdown missing %q:\n%s", want, md)
	}
}

func TestScatterSkipsIncompleteRows(t *testing.T) {
	tb := table.MustNew("x", "y")
	require.NoError(t, tb.Append(table.Number(1), table.Number(2)))
	require.NoError(t, tb.Append(table.Null(), table.Number(3)))
	require.NoError(t, tb.Append(table.Number(4), table.Null()))
	require.NoError(t, tb.Append(table.Number(5), table.Number(6)))

	xs, ys, err := Scatter(tb, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5}, xs)
	assert.Equal(t, []float64{2, 6}, ys)

	_, _, err = Scatter(tb, "x", "missing")
	assert.Error(t, err)
}
