package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

// spotFile is the root of a seed YAML file.
type spotFile struct {
	Spots []spotEntry `yaml:"spots"`
}

// spotEntry is one spot as written by hand. Parking accepts English or
// Japanese labels.
type spotEntry struct {
	Name             string   `yaml:"name"`
	Address          string   `yaml:"address"`
	Description      string   `yaml:"description,omitempty"`
	Lat              *float64 `yaml:"lat"`
	Lng              *float64 `yaml:"lng"`
	Parking          string   `yaml:"parking,omitempty"`
	StrollerFriendly bool     `yaml:"stroller_friendly,omitempty"`
	NursingRoom      bool     `yaml:"nursing_room,omitempty"`
	DiaperChange     bool     `yaml:"diaper_change,omitempty"`
	AgeRanges        []string `yaml:"age_ranges,omitempty"`
	Phone            string   `yaml:"phone,omitempty"`
	Website          string   `yaml:"website,omitempty"`
}

// loadSpotFile reads and validates every spot in a YAML file.
func loadSpotFile(path string, now time.Time) ([]models.Spot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSpots(data, now)
}

func parseSpots(data []byte, now time.Time) ([]models.Spot, error) {
	var f spotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spots: %w", err)
	}

	spots := make([]models.Spot, 0, len(f.Spots))
	for i, e := range f.Spots {
		s, err := e.toSpot(now)
		if err != nil {
			return nil, fmt.Errorf("spot %d (%s): %w", i+1, e.Name, err)
		}
		spots = append(spots, s)
	}
	return spots, nil
}

func (e spotEntry) toSpot(now time.Time) (models.Spot, error) {
	if e.Name == "" {
		return models.Spot{}, errors.New("name is required")
	}
	s := models.Spot{
		Name:             e.Name,
		Address:          e.Address,
		Description:      e.Description,
		Parking:          models.ParkingNone,
		StrollerFriendly: e.StrollerFriendly,
		NursingRoom:      e.NursingRoom,
		DiaperChange:     e.DiaperChange,
		Phone:            e.Phone,
		Website:          e.Website,
		CreatedAt:        now,
	}

	// A spot without coordinates is still stored; search reports it as unrankable.
	if e.Lat != nil && e.Lng != nil {
		loc := models.Location{Lat: *e.Lat, Lng: *e.Lng}
		if !loc.Valid() {
			return models.Spot{}, fmt.Errorf("coordinates (%v, %v) out of range", *e.Lat, *e.Lng)
		}
		s.Location = &loc
	}

	if e.Parking != "" {
		p, err := models.ParseParking(e.Parking)
		if err != nil {
			return models.Spot{}, err
		}
		s.Parking = p
	}
	for _, a := range e.AgeRanges {
		r, err := models.ParseAgeRange(a)
		if err != nil {
			return models.Spot{}, err
		}
		s.AgeRanges = append(s.AgeRanges, r)
	}
	return s, nil
}

type city struct {
	Name string
	models.Location
}

// Cities for demo spots
var cities = []city{
	{"東京", models.Location{Lat: 35.6762, Lng: 139.6503}},
	{"横浜", models.Location{Lat: 35.4437, Lng: 139.6380}},
	{"大阪", models.Location{Lat: 34.6937, Lng: 135.5023}},
	{"名古屋", models.Location{Lat: 35.1815, Lng: 136.9066}},
	{"札幌", models.Location{Lat: 43.0618, Lng: 141.3545}},
	{"福岡", models.Location{Lat: 33.5904, Lng: 130.4017}},
	{"京都", models.Location{Lat: 35.0116, Lng: 135.7681}},
	{"神戸", models.Location{Lat: 34.6901, Lng: 135.1955}},
	{"仙台", models.Location{Lat: 38.2682, Lng: 140.8694}},
	{"広島", models.Location{Lat: 34.3853, Lng: 132.4553}},
}

var demoKinds = []string{"こども公園", "児童館", "ふれあい動物園", "屋内あそび場", "図書館キッズコーナー", "水族館"}

var parkingChoices = []models.Parking{models.ParkingNone, models.ParkingFree, models.ParkingPaid}

func jitterLocation(rng *rand.Rand, base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rng.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

// demoSpots generates n spots up to 8 km north, south, east or west of the demo cities.
func demoSpots(rng *rand.Rand, n int, now time.Time) []models.Spot {
	spots := make([]models.Spot, 0, n)
	for i := 0; i < n; i++ {
		c := cities[i%len(cities)]
		loc := jitterLocation(rng, c.Location, 8000)

		var ages []models.AgeRange
		for _, a := range []models.AgeRange{models.AgeInfant, models.AgeToddler, models.AgePreschool} {
			if rng.Intn(2) == 0 {
				ages = append(ages, a)
			}
		}

		spots = append(spots, models.Spot{
			Name:             fmt.Sprintf("%s%s %d", c.Name, demoKinds[rng.Intn(len(demoKinds))], i+1),
			Address:          c.Name,
			Location:         &loc,
			Parking:          parkingChoices[rng.Intn(len(parkingChoices))],
			StrollerFriendly: rng.Intn(2) == 0,
			NursingRoom:      rng.Intn(3) == 0,
			DiaperChange:     rng.Intn(2) == 0,
			AgeRanges:        ages,
			CreatedAt:        now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return spots
}
