package proximity

import (
	"fmt"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

// FacetPredicate is a single filter condition over one attribute of a spot.
// Two predicates with the same Key constrain the same facet.
type FacetPredicate interface {
	Key() string
	Value() string
	Match(s *models.Spot) bool
}

type amenityFacet struct{ amenity models.Amenity }

func (f amenityFacet) Key() string               { return "amenity:" + string(f.amenity) }
func (f amenityFacet) Value() string             { return "true" }
func (f amenityFacet) Match(s *models.Spot) bool { return s.HasAmenity(f.amenity) }
func (f amenityFacet) String() string            { return string(f.amenity) }

type parkingFacet struct{ parking models.Parking }

func (f parkingFacet) Key() string               { return "parking" }
func (f parkingFacet) Value() string             { return string(f.parking) }
func (f parkingFacet) Match(s *models.Spot) bool { return s.Parking == f.parking }
func (f parkingFacet) String() string            { return "parking=" + string(f.parking) }

type ageFacet struct{ age models.AgeRange }

func (f ageFacet) Key() string               { return "age" }
func (f ageFacet) Value() string             { return string(f.age) }
func (f ageFacet) Match(s *models.Spot) bool { return s.SuitableFor(f.age) }
func (f ageFacet) String() string            { return "age=" + string(f.age) }

// RequireAmenity keeps spots offering the amenity.
func RequireAmenity(a models.Amenity) (FacetPredicate, error) {
	v, err := models.ParseAmenity(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFacet, err)
	}
	return amenityFacet{amenity: v}, nil
}

// ParkingIs keeps spots whose parking equals p.
func ParkingIs(p models.Parking) (FacetPredicate, error) {
	switch p {
	case models.ParkingNone, models.ParkingFree, models.ParkingPaid:
		return parkingFacet{parking: p}, nil
	default:
		return nil, fmt.Errorf("%w: parking %q", ErrUnknownFacet, p)
	}
}

// SuitableForAge keeps spots suited to the age range. Spots listing no
// age range match every age.
func SuitableForAge(r models.AgeRange) (FacetPredicate, error) {
	v, err := models.ParseAgeRange(string(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFacet, err)
	}
	return ageFacet{age: v}, nil
}

func matchAll(facets []FacetPredicate, s *models.Spot) bool {
	for _, f := range facets {
		if f == nil {
			continue
		}
		if !f.Match(s) {
			return false
		}
	}
	return true
}
