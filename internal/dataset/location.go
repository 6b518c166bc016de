package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Point returns the coordinates as a go-geom point (x = longitude).
func (c Coordinates) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude})
}

// Location is one school from the locations dataset. Coordinates is nil when
// the source row carried no position.
type Location struct {
	Region      int
	DBN         string
	Name        string
	Coordinates *Coordinates
}

// LoadLocations decodes location records. The nested location field is read
// as an object with latitude/longitude members; anything else means the
// location has no coordinates.
func LoadLocations(records []Record) ([]Location, error) {
	out := make([]Location, 0, len(records))
	for i, rec := range records {
		loc := Location{
			DBN:  strings.TrimSpace(asString(rec[fieldSource(LocationSchema, ColDBN)])),
			Name: asString(rec[fieldSource(LocationSchema, ColSchoolName)]),
		}
		region, err := locationRegion(rec, loc.DBN)
		if err != nil {
			return nil, fmt.Errorf("location record %d: %w", i, err)
		}
		loc.Region = region
		coords, err := parseCoordinates(rec[fieldSource(LocationSchema, ColLocation)])
		if err != nil {
			return nil, fmt.Errorf("location record %d: %w", i, err)
		}
		loc.Coordinates = coords
		out = append(out, loc)
	}
	return out, nil
}

// Usable keeps locations with coordinates. A (0,0) position is treated as absent.
func Usable(locs []Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if l.Coordinates == nil {
			continue
		}
		if l.Coordinates.Latitude == 0 && l.Coordinates.Longitude == 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}

func locationRegion(rec Record, dbn string) (int, error) {
	if code := strings.TrimSpace(asString(rec[fieldSource(LocationSchema, ColDistrict)])); code != "" {
		n, err := strconv.Atoi(code)
		if err != nil {
			return 0, fmt.Errorf("%w: district code %q", ErrBadRegion, code)
		}
		return n, nil
	}
	return ExtractRegion(dbn)
}

func parseCoordinates(raw any) (*Coordinates, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}
	lat, okLat, err := asFloat(obj["latitude"])
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lon, okLon, err := asFloat(obj["longitude"])
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	if !okLat || !okLon {
		return nil, nil
	}
	return &Coordinates{Latitude: lat, Longitude: lon}, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected type %T", v)
	}
}

func fieldSource(s Schema, name string) string {
	for _, f := range s {
		if f.Name == name {
			return f.Source
		}
	}
	return ""
}
