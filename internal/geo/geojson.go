// Package geo renders ranked spots as GeoJSON for the map view.
package geo

import (
	"math"

	"github.com/kadod/mama-odekake-liff/internal/models"
	"github.com/kadod/mama-odekake-liff/internal/proximity"
)

// GeoJSONFeatureCollection represents a collection of geographic features.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// GeoJSONFeature represents a single spot marker with its properties.
type GeoJSONFeature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Geometry   GeoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// GeoJSONGeometry represents a point geometry.
type GeoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [Lng, Lat]
}

// RoundKm rounds a distance to one decimal for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

// FromRanked builds a FeatureCollection in ranking order.
func FromRanked(spots []proximity.RankedSpot) GeoJSONFeatureCollection {
	fc := GeoJSONFeatureCollection{Type: "FeatureCollection", Features: make([]GeoJSONFeature, 0, len(spots))}
	for _, rs := range spots {
		if rs.Location == nil {
			continue
		}
		amenities := make([]string, 0, len(models.Amenities))
		for _, a := range models.Amenities {
			if rs.HasAmenity(a) {
				amenities = append(amenities, string(a))
			}
		}
		fc.Features = append(fc.Features, GeoJSONFeature{
			Type: "Feature",
			ID:   rs.ID.Hex(),
			Geometry: GeoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{rs.Location.Lng, rs.Location.Lat},
			},
			Properties: map[string]interface{}{
				"id":          rs.ID.Hex(),
				"name":        rs.Name,
				"address":     rs.Address,
				"parking":     string(rs.Parking),
				"has_parking": rs.Parking.Available(),
				"amenities":   amenities,
				"distance_km": RoundKm(rs.DistanceKm),
			},
		})
	}
	return fc
}
