// Package analysis implements the cleaning, aggregation, join and
// correlation stages of the score/demographics pipeline.
package analysis

import (
	"math"
	"strconv"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within the range. A zero Range contains everything.
func (r Range) Contains(v int) bool {
	if r.IsZero() {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// IsZero reports whether the range is unset.
func (r Range) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// Options controls grouping and rounding.
type Options struct {
	// Regions bounds the districts kept during aggregation. Rows outside are
	// excluded; the set of regions itself comes from the data.
	Regions Range
	// Grades bounds valid grades.
	Grades Range
	// Precision is the number of decimals averaged values are rounded to.
	Precision int
}

// DefaultOptions returns NYC districts 1-32, grades 3-8 and two decimals.
func DefaultOptions() Options {
	return Options{
		Regions:   Range{Min: 1, Max: 32},
		Grades:    Range{Min: 3, Max: 8},
		Precision: 2,
	}
}

// round formats x to Precision decimals from its exact binary value, so
// ties such as 0.125 go to the even neighbour (0.12).
func (o Options) round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', o.Precision, 64), 64)
	if err != nil {
		return x
	}
	return r
}
