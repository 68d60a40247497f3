package models

import "math"

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Valid reports whether the location is finite and inside the WGS84 bounds.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lng, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
