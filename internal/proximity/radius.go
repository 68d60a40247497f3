package proximity

import (
	"fmt"
	"math"
	"strconv"
)

// Radius bounds a search. The zero value is unbounded.
type Radius struct {
	km      float64
	bounded bool
}

// Unbounded returns a radius that keeps every spot regardless of distance.
func Unbounded() Radius { return Radius{} }

// WithinKm returns a radius keeping spots at most km kilometers away.
func WithinKm(km float64) (Radius, error) {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return Radius{}, fmt.Errorf("%w: %v", ErrInvalidRadius, km)
	}
	return Radius{km: km, bounded: true}, nil
}

// ParseRadius reads a query value: "", "all" and "unbounded" mean no limit,
// anything else must be a non-negative number of kilometers.
func ParseRadius(s string) (Radius, error) {
	switch s {
	case "", "all", "unbounded":
		return Unbounded(), nil
	}
	km, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Radius{}, fmt.Errorf("%w: %q", ErrInvalidRadius, s)
	}
	return WithinKm(km)
}

// Bounded reports whether the radius limits results.
func (r Radius) Bounded() bool { return r.bounded }

// Km returns the limit and whether one is set.
func (r Radius) Km() (float64, bool) { return r.km, r.bounded }

func (r Radius) contains(d float64) bool {
	return !r.bounded || d <= r.km
}

func (r Radius) String() string {
	if !r.bounded {
		return "unbounded"
	}
	return strconv.FormatFloat(r.km, 'f', -1, 64) + "km"
}
