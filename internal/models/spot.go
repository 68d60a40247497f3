package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidParking  = errors.New("invalid parking value")
	ErrInvalidAmenity  = errors.New("invalid amenity")
	ErrInvalidAgeRange = errors.New("invalid age range")
)

// Parking describes parking availability at a spot.
type Parking string

const (
	ParkingNone Parking = "none"
	ParkingFree Parking = "free"
	ParkingPaid Parking = "paid"
)

// ParseParking accepts the English values and the labels used by the mini app form.
func ParseParking(s string) (Parking, error) {
	switch strings.TrimSpace(s) {
	case "none", "なし":
		return ParkingNone, nil
	case "free", "無料":
		return ParkingFree, nil
	case "paid", "有料":
		return ParkingPaid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidParking, s)
	}
}

// Available reports whether any parking exists.
func (p Parking) Available() bool {
	return p == ParkingFree || p == ParkingPaid
}

// Amenity is an independent yes/no facility of a spot.
type Amenity string

const (
	AmenityStrollerFriendly Amenity = "stroller_friendly"
	AmenityNursingRoom      Amenity = "nursing_room"
	AmenityDiaperChange     Amenity = "diaper_change"
)

// Amenities lists every known amenity in display order.
var Amenities = []Amenity{AmenityStrollerFriendly, AmenityNursingRoom, AmenityDiaperChange}

// ParseAmenity validates an amenity name.
func ParseAmenity(s string) (Amenity, error) {
	a := Amenity(strings.TrimSpace(s))
	switch a {
	case AmenityStrollerFriendly, AmenityNursingRoom, AmenityDiaperChange:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAmenity, s)
	}
}

// AgeRange is the child age bracket a spot is suited for.
type AgeRange string

const (
	AgeInfant    AgeRange = "0-1"
	AgeToddler   AgeRange = "1-3"
	AgePreschool AgeRange = "3-5"
)

// ParseAgeRange validates an age range.
func ParseAgeRange(s string) (AgeRange, error) {
	r := AgeRange(strings.TrimSpace(s))
	switch r {
	case AgeInfant, AgeToddler, AgePreschool:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAgeRange, s)
	}
}

// Spot represents a child-friendly outing place.
// Location is nil when the stored record carries no usable coordinates.
type Spot struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Address          string             `bson:"address" json:"address"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Location         *Location          `bson:"-" json:"location,omitempty"`
	Parking          Parking            `bson:"parking" json:"parking"`
	StrollerFriendly bool               `bson:"stroller_friendly" json:"stroller_friendly"`
	NursingRoom      bool               `bson:"nursing_room" json:"nursing_room"`
	DiaperChange     bool               `bson:"diaper_change" json:"diaper_change"`
	AgeRanges        []AgeRange         `bson:"age_ranges,omitempty" json:"age_ranges,omitempty"`
	Phone            string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Website          string             `bson:"website,omitempty" json:"website,omitempty"`
	ReviewSummary    string             `bson:"reviews_ai,omitempty" json:"reviews_ai,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// HasAmenity reports whether the spot offers the given amenity.
func (s *Spot) HasAmenity(a Amenity) bool {
	switch a {
	case AmenityStrollerFriendly:
		return s.StrollerFriendly
	case AmenityNursingRoom:
		return s.NursingRoom
	case AmenityDiaperChange:
		return s.DiaperChange
	default:
		return false
	}
}

// SuitableFor reports whether the spot lists the age range.
// Spots without any age range are treated as suitable for all ages.
func (s *Spot) SuitableFor(r AgeRange) bool {
	if len(s.AgeRanges) == 0 {
		return true
	}
	for _, have := range s.AgeRanges {
		if have == r {
			return true
		}
	}
	return false
}

// DirectionsURL returns a Google Maps directions link to the spot, or "" without a location.
func (s *Spot) DirectionsURL() string {
	if s.Location == nil || !s.Location.Valid() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%g,%g", s.Location.Lat, s.Location.Lng)
}
