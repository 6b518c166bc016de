package dataset

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) []Record {
	t.Helper()
	var out []Record
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return out
}

func TestLoadRenamesAndDropsFields(t *testing.T) {
	recs := decode(t, `[
		{"dbn":"01M015","school_name":"P.S. 015","grade":"3","year":"2013","number_tested":"27","mean_scale_score":"289","category":"All Students"},
		{"dbn":"01M015","grade":"4","mean_scale_score":"s"}
	]`)
	tb, err := Load(recs, ScoreSchema)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tb.Width() != len(ScoreSchema) {
		t.Fatalf("width = %d, want %d", tb.Width(), len(ScoreSchema))
	}
	if tb.Has("category") {
		t.Fatalf("unmapped field kept")
	}
	if got := tb.Row(0).Get(ColSchoolName).Text(); got != "P.S. 015" {
		t.Fatalf("school name = %q", got)
	}
	if !tb.Row(1).Get(ColSchoolName).IsNull() || !tb.Row(1).Get(ColLevel34Pct).IsNull() {
		t.Fatalf("absent fields should be null")
	}
}

func TestLoadRejectsNestedValues(t *testing.T) {
	recs := decode(t, `[{"dbn":{"x":1}}]`)
	if _, err := Load(recs, ScoreSchema); err == nil {
		t.Fatalf("expected error for nested value")
	}
}

func TestExtractRegion(t *testing.T) {
	cases := map[string]int{"05M123": 5, "21K456": 21, "32K999": 32}
	for in, want := range cases {
		got, err := ExtractRegion(in)
		if err != nil {
			t.Fatalf("ExtractRegion(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExtractRegion(%q) = %d, want %d", in, got, want)
		}
	}
	for _, bad := range []string{"", "5", "XXM123"} {
		if _, err := ExtractRegion(bad); !errors.Is(err, ErrBadRegion) {
			t.Fatalf("ExtractRegion(%q) err = %v, want ErrBadRegion", bad, err)
		}
	}
}

func TestLoadLocationsOptionalCoordinates(t *testing.T) {
	recs := decode(t, `[
		{"geographical_district_code":"1","ats_system_code":"01M015      ","location_name":"P.S. 015","location_1":{"latitude":"40.722075","longitude":"-73.978747","human_address":"{}"}},
		{"geographical_district_code":"2","ats_system_code":"02M020","location_name":"No coords"},
		{"ats_system_code":"03M009","location_name":"Zero","location_1":{"latitude":0,"longitude":0}}
	]`)
	locs, err := LoadLocations(recs)
	if err != nil {
		t.Fatalf("LoadLocations: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("len = %d", len(locs))
	}
	if locs[0].DBN != "01M015" || locs[0].Region != 1 {
		t.Fatalf("first location = %+v", locs[0])
	}
	if locs[1].Coordinates != nil {
		t.Fatalf("expected absent coordinates, got %+v", locs[1].Coordinates)
	}
	if locs[2].Region != 3 {
		t.Fatalf("region from DBN = %d, want 3", locs[2].Region)
	}
	usable := Usable(locs)
	if len(usable) != 1 || usable[0].DBN != "01M015" {
		t.Fatalf("usable = %+v", usable)
	}
	p := usable[0].Coordinates.Point()
	if p.X() != -73.978747 || p.Y() != 40.722075 {
		t.Fatalf("point = %v,%v", p.X(), p.Y())
	}
}

func TestDefaultSources(t *testing.T) {
	all := DefaultSources().All()
	if len(all) != 4 {
		t.Fatalf("sources = %d", len(all))
	}
	if !strings.Contains(all[0].String(), "gu76-8i7h") {
		t.Fatalf("ela source = %s", all[0])
	}
	if DemographicNumericColumns[0] != ColTotalEnrollment {
		t.Fatalf("demographic numeric columns start with %q", DemographicNumericColumns[0])
	}
}

func TestLoadLocationsAcceptsJSONNumbers(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`[{"ats_system_code":"02M047","district":2,"location_1":{"latitude":40.74,"longitude":-73.99}}]`))
	dec.UseNumber()
	var recs []Record
	if err := dec.Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	locs, err := LoadLocations(recs)
	if err != nil {
		t.Fatalf("LoadLocations: %v", err)
	}
	if len(locs) != 1 || locs[0].Region != 2 || locs[0].Coordinates == nil || locs[0].Coordinates.Latitude != 40.74 {
		t.Fatalf("unexpected locations: %+v", locs)
	}
}
