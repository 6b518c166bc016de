// Package dataset describes the NYC Open Data sources the pipeline reads and
// turns their raw JSON records into typed tables.
package dataset

// Column names used across the pipeline.
const (
	ColDistrict       = "District"
	ColDBN            = "DBN"
	ColSchoolName     = "School Name"
	ColGrade          = "Grade"
	ColYear           = "Year"
	ColNumberTested   = "Number Tested"
	ColMeanScaleScore = "Mean Scale Score"
	ColLevel1Count    = "# Level 1"
	ColLevel1Pct      = "% Level 1"
	ColLevel2Count    = "# Level 2"
	ColLevel2Pct      = "% Level 2"
	ColLevel3Count    = "# Level 3"
	ColLevel3Pct      = "% Level 3"
	ColLevel4Count    = "# Level 4"
	ColLevel4Pct      = "% Level 4"
	ColLevel34Count   = "# Level 3+4"
	ColLevel34Pct     = "% Level 3+4"

	ColTotalEnrollment = "Total Enrollment"
	ColAsianCount      = "# Asian"
	ColAsianPct        = "% Asian"
	ColBlackCount      = "# Black"
	ColBlackPct        = "% Black"
	ColHispanicCount   = "# Hispanic"
	ColHispanicPct     = "% Hispanic"
	ColOtherCount      = "# Other"
	ColOtherPct        = "% Other"
	ColWhiteCount      = "# White"
	ColWhitePct        = "% White"

	ColLocation = "Location"
)

// Field maps a source field to its column name.
type Field struct {
	Source string
	Name   string
}

// Schema is an ordered rename mapping. Source fields not listed are dropped.
type Schema []Field

// Names returns the output column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// ScoreSchema covers both the ELA and Math test result datasets.
var ScoreSchema = Schema{
	{"dbn", ColDBN},
	{"school_name", ColSchoolName},
	{"grade", ColGrade},
	{"year", ColYear},
	{"number_tested", ColNumberTested},
	{"mean_scale_score", ColMeanScaleScore},
	{"level_1", ColLevel1Count},
	{"level_1_1", ColLevel1Pct},
	{"level_2", ColLevel2Count},
	{"level_2_1", ColLevel2Pct},
	{"level_3", ColLevel3Count},
	{"level_3_1", ColLevel3Pct},
	{"level_4", ColLevel4Count},
	{"level_4_1", ColLevel4Pct},
	{"level_3_4", ColLevel34Count},
	{"level_3_4_1", ColLevel34Pct},
}

// ScoreNumericColumns must parse as floats once suppressed rows are gone.
var ScoreNumericColumns = []string{
	ColNumberTested, ColMeanScaleScore,
	ColLevel1Count, ColLevel1Pct, ColLevel2Count, ColLevel2Pct,
	ColLevel3Count, ColLevel3Pct, ColLevel4Count, ColLevel4Pct,
	ColLevel34Count, ColLevel34Pct,
}

// ScoreAggregateColumns is the output layout of region/grade averages:
// region, grade, the summed count, then averaged columns.
var ScoreAggregateColumns = append([]string{ColDistrict, ColGrade}, ScoreNumericColumns...)

// DemographicSchema covers the demographic snapshot dataset.
var DemographicSchema = Schema{
	{"dbn", ColDBN},
	{"school_name", ColSchoolName},
	{"year", ColYear},
	{"total_enrollment", ColTotalEnrollment},
	{"grade_3", "Grade 3"},
	{"grade_4", "Grade 4"},
	{"grade_5", "Grade 5"},
	{"grade_6", "Grade 6"},
	{"grade_7", "Grade 7"},
	{"grade_8", "Grade 8"},
	{"asian_1", ColAsianCount},
	{"asian_2", ColAsianPct},
	{"black_1", ColBlackCount},
	{"black_2", ColBlackPct},
	{"hispanic_1", ColHispanicCount},
	{"hispanic_2", ColHispanicPct},
	{"multiple_race_categories_not_represented_1", ColOtherCount},
	{"multiple_race_categories_not_represented_2", ColOtherPct},
	{"white_1", ColWhiteCount},
	{"white_2", ColWhitePct},
}

// DemographicNumericColumns is every demographic column after Year.
var DemographicNumericColumns = DemographicSchema.Names()[3:]

// LocationSchema covers the school locations dataset.
var LocationSchema = Schema{
	{"geographical_district_code", ColDistrict},
	{"ats_system_code", ColDBN},
	{"location_name", ColSchoolName},
	{"location_1", ColLocation},
}

// DefaultCorrelationPositions selects, on the joined score+demographic
// table, the tested count, mean score, level percentages and ethnic
// percentages.
var DefaultCorrelationPositions = []int{2, 3, 5, 7, 9, 11, 13, 22, 24, 26, 28, 30}
