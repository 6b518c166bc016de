package render

import (
	"fmt"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/utils"
)

// MapLayer builds a point FeatureCollection of usable school locations. Each
// feature carries its district and, when known, the district's value under
// the valueKey property.
func MapLayer(locs []dataset.Location, values map[int]float64, valueKey string) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, l := range dataset.Usable(locs) {
		props := map[string]any{
			"dbn":      l.DBN,
			"name":     l.Name,
			"district": l.Region,
		}
		if v, ok := values[l.Region]; ok {
			props[valueKey] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         l.DBN,
			Geometry:   l.Coordinates.Point(),
			Properties: props,
		})
	}
	return fc
}

// WriteGeoJSON marshals fc to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
