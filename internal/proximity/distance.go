package proximity

import (
	"math"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

func toRad(deg float64) float64 { return deg * (math.Pi / 180) }

// Distance returns the haversine great-circle distance between a and b in kilometers.
func Distance(a, b models.Location) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// rounding can push h a hair outside [0,1] near antipodes
	h = math.Max(0, math.Min(1, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
