// Package proximity ranks spots by great-circle distance from an origin.
// It performs no I/O and is safe for concurrent use.
package proximity

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrConflictingFacets = errors.New("conflicting facet predicates")
	ErrUnknownFacet      = errors.New("unknown facet value")
)

// RankedSpot is a spot paired with its distance from the query origin.
type RankedSpot struct {
	models.Spot
	DistanceKm float64 `json:"distance_km"`
}

// Options configures filtering. The zero value applies no filter.
type Options struct {
	Radius Radius
	Facets []FacetPredicate
}

// NewOptions validates a filter configuration. Predicates constraining the
// same facet to different values are rejected; exact duplicates are dropped.
func NewOptions(radius Radius, facets ...FacetPredicate) (Options, error) {
	seen := make(map[string]string, len(facets))
	kept := make([]FacetPredicate, 0, len(facets))
	for _, f := range facets {
		if f == nil {
			continue
		}
		if v, ok := seen[f.Key()]; ok {
			if v != f.Value() {
				return Options{}, fmt.Errorf("%w: %s=%s and %s=%s", ErrConflictingFacets, f.Key(), v, f.Key(), f.Value())
			}
			continue
		}
		seen[f.Key()] = f.Value()
		kept = append(kept, f)
	}
	return Options{Radius: radius, Facets: kept}, nil
}

// Result is the outcome of a ranking along with how many spots had no
// usable coordinate.
type Result struct {
	Spots      []RankedSpot
	Unrankable int
}

// Rank returns the spots matching opts sorted by ascending distance from origin.
// Spots without a valid location are left out.
func Rank(origin models.Location, spots []models.Spot, opts Options) ([]RankedSpot, error) {
	res, err := RankDetailed(origin, spots, opts)
	if err != nil {
		return nil, err
	}
	return res.Spots, nil
}

// RankDetailed is Rank that also reports the number of unrankable spots.
func RankDetailed(origin models.Location, spots []models.Spot, opts Options) (Result, error) {
	if !origin.Valid() {
		return Result{}, fmt.Errorf("rank: origin (%v, %v): %w", origin.Lat, origin.Lng, ErrInvalidCoordinate)
	}

	res := Result{Spots: make([]RankedSpot, 0, len(spots))}
	for i := range spots {
		s := &spots[i]
		if s.Location == nil || !s.Location.Valid() {
			res.Unrankable++
			continue
		}
		if !matchAll(opts.Facets, s) {
			continue
		}
		d := Distance(origin, *s.Location)
		if !opts.Radius.contains(d) {
			continue
		}
		res.Spots = append(res.Spots, RankedSpot{Spot: *s, DistanceKm: d})
	}

	slices.SortStableFunc(res.Spots, func(a, b RankedSpot) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return res, nil
}
