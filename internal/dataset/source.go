package dataset

import "fmt"

// Source is one remote dataset and how many rows to request from it.
type Source struct {
	Name      string
	DatasetID string
	Limit     int
	Schema    Schema
}

func (s Source) String() string { return fmt.Sprintf("%s (%s, limit %d)", s.Name, s.DatasetID, s.Limit) }

// Sources groups the four inputs of an analysis run.
type Sources struct {
	ELA          Source
	Math         Source
	Demographics Source
	Locations    Source
}

// DefaultSources returns the NYC Open Data datasets for 2013-2018.
func DefaultSources() Sources {
	return Sources{
		ELA:          Source{Name: "ela", DatasetID: "gu76-8i7h", Limit: 32826, Schema: ScoreSchema},
		Math:         Source{Name: "math", DatasetID: "74ah-8ukf", Limit: 32826, Schema: ScoreSchema},
		Demographics: Source{Name: "demographics", DatasetID: "s52a-8aq6", Limit: 8972, Schema: DemographicSchema},
		Locations:    Source{Name: "locations", DatasetID: "p6h4-mpyy", Limit: 1823, Schema: LocationSchema},
	}
}

// All returns the sources in fetch order.
func (s Sources) All() []Source {
	return []Source{s.ELA, s.Math, s.Demographics, s.Locations}
}
