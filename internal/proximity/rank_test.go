package proximity

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

var (
	tokyo    = models.Location{Lat: 35.6762, Lng: 139.6503}
	shinjuku = models.Location{Lat: 35.6895, Lng: 139.6917}
	osaka    = models.Location{Lat: 34.6937, Lng: 135.5023}
)

func spotAt(name string, loc *models.Location) models.Spot {
	return models.Spot{ID: primitive.NewObjectID(), Name: name, Location: loc}
}

func ptr(l models.Location) *models.Location { return &l }

func names(rs []RankedSpot) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestDistance_SelfIsZero(t *testing.T) {
	for _, l := range []models.Location{tokyo, osaka, {Lat: 90, Lng: 0}, {Lat: -90, Lng: 180}, {}} {
		assert.InDelta(t, 0, Distance(l, l), 1e-9)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]models.Location{
		{tokyo, shinjuku},
		{tokyo, osaka},
		{{Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}},
		{{Lat: 89.9, Lng: 10}, {Lat: -89.9, Lng: -170}},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-9)
	}
}

func TestDistance_Extremes(t *testing.T) {
	antipodal := Distance(models.Location{Lat: 0, Lng: 0}, models.Location{Lat: 0, Lng: 180})
	assert.False(t, math.IsNaN(antipodal))
	assert.InDelta(t, math.Pi*EarthRadiusKm, antipodal, 0.01)

	poles := Distance(models.Location{Lat: 90, Lng: 0}, models.Location{Lat: -90, Lng: 0})
	assert.False(t, math.IsNaN(poles))
	assert.InDelta(t, math.Pi*EarthRadiusKm, poles, 0.01)

	// across the antimeridian the short way round
	d := Distance(models.Location{Lat: 0, Lng: 179.5}, models.Location{Lat: 0, Lng: -179.5})
	assert.InDelta(t, 111.19, d, 0.05)
}

func TestRank_TokyoScenario(t *testing.T) {
	spots := []models.Spot{
		spotAt("a", ptr(tokyo)),
		spotAt("b", ptr(shinjuku)),
		spotAt("c", ptr(osaka)),
	}

	ranked, err := Rank(tokyo, spots, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names(ranked))
	assert.InDelta(t, 0, ranked[0].DistanceKm, 1e-9)
	assert.InDelta(t, 4.02, ranked[1].DistanceKm, 0.05)
	assert.InEpsilon(t, 392.4, ranked[2].DistanceKm, 0.01)

	ten, err := WithinKm(10)
	require.NoError(t, err)
	ranked, err = Rank(tokyo, spots, Options{Radius: ten})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(ranked))
}

func TestRank_OrdersByDistance(t *testing.T) {
	spots := []models.Spot{spotAt("c", ptr(osaka)), spotAt("b", ptr(shinjuku))}

	ranked, err := Rank(tokyo, spots, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names(ranked))
}

func TestRank_EmptyInput(t *testing.T) {
	ranked, err := Rank(tokyo, nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRank_StableUnderTies(t *testing.T) {
	spots := []models.Spot{
		spotAt("far", ptr(osaka)),
		spotAt("first", ptr(shinjuku)),
		spotAt("second", ptr(shinjuku)),
		spotAt("third", ptr(shinjuku)),
	}

	ranked, err := Rank(tokyo, spots, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "far"}, names(ranked))
}

func TestRank_InvalidOrigin(t *testing.T) {
	bad := []models.Location{
		{Lat: 91, Lng: 0},
		{Lat: -90.5, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: math.NaN(), Lng: 0},
	}
	for _, o := range bad {
		_, err := Rank(o, []models.Spot{spotAt("a", ptr(tokyo))}, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCoordinate))
	}
}

func TestRankDetailed_ExcludesUnrankable(t *testing.T) {
	spots := []models.Spot{
		spotAt("nil", nil),
		spotAt("ok", ptr(shinjuku)),
		spotAt("nan", &models.Location{Lat: math.NaN(), Lng: 139}),
		spotAt("range", &models.Location{Lat: 120, Lng: 139}),
	}

	res, err := RankDetailed(tokyo, spots, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(res.Spots))
	assert.Equal(t, 3, res.Unrankable)
}

func TestRank_ZeroRadiusKeepsCoincident(t *testing.T) {
	zero, err := WithinKm(0)
	require.NoError(t, err)

	spots := []models.Spot{spotAt("near", ptr(shinjuku)), spotAt("here", ptr(tokyo))}
	ranked, err := Rank(tokyo, spots, Options{Radius: zero})
	require.NoError(t, err)
	assert.Equal(t, []string{"here"}, names(ranked))
}

func TestRank_RadiusIsMonotonic(t *testing.T) {
	spots := []models.Spot{
		spotAt("a", ptr(tokyo)),
		spotAt("b", ptr(shinjuku)),
		spotAt("c", ptr(osaka)),
		spotAt("d", &models.Location{Lat: 35.4437, Lng: 139.6380}),
		spotAt("e", &models.Location{Lat: 43.0618, Lng: 141.3545}),
	}

	var prev []string
	for _, km := range []float64{0, 1, 5, 30, 400, 1000} {
		r, err := WithinKm(km)
		require.NoError(t, err)
		ranked, err := Rank(tokyo, spots, Options{Radius: r})
		require.NoError(t, err)
		got := names(ranked)
		assert.Subset(t, got, prev, "radius %v", km)
		prev = got
	}

	all, err := Rank(tokyo, spots, Options{Radius: Unbounded()})
	require.NoError(t, err)
	assert.Subset(t, names(all), prev)
	assert.Len(t, all, len(spots))
}

func TestRank_FacetsAreANDed(t *testing.T) {
	free := spotAt("free-stroller", ptr(shinjuku))
	free.Parking = models.ParkingFree
	free.StrollerFriendly = true

	freeOnly := spotAt("free", ptr(tokyo))
	freeOnly.Parking = models.ParkingFree

	paid := spotAt("paid-stroller", ptr(osaka))
	paid.Parking = models.ParkingPaid
	paid.StrollerFriendly = true

	spots := []models.Spot{paid, freeOnly, free}

	parking, err := ParkingIs(models.ParkingFree)
	require.NoError(t, err)
	stroller, err := RequireAmenity(models.AmenityStrollerFriendly)
	require.NoError(t, err)

	opts, err := NewOptions(Unbounded(), parking, stroller)
	require.NoError(t, err)

	ranked, err := Rank(tokyo, spots, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"free-stroller"}, names(ranked))

	// filters gate inclusion but never change distances
	plain, err := Rank(tokyo, spots, Options{})
	require.NoError(t, err)
	for _, p := range plain {
		if p.Name == "free-stroller" {
			assert.Equal(t, p.DistanceKm, ranked[0].DistanceKm)
		}
	}
}

func TestRank_SkipsNilFacets(t *testing.T) {
	free := spotAt("free", ptr(shinjuku))
	free.Parking = models.ParkingFree
	paid := spotAt("paid", ptr(osaka))
	paid.Parking = models.ParkingPaid

	parking, err := ParkingIs(models.ParkingFree)
	require.NoError(t, err)

	ranked, err := Rank(tokyo, []models.Spot{paid, free}, Options{Facets: []FacetPredicate{nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{"free", "paid"}, names(ranked))

	ranked, err = Rank(tokyo, []models.Spot{paid, free}, Options{Facets: []FacetPredicate{nil, parking, nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{"free"}, names(ranked))
}

func TestRank_AgeFacet(t *testing.T) {
	infants := spotAt("infants", ptr(shinjuku))
	infants.AgeRanges = []models.AgeRange{models.AgeInfant}
	anyAge := spotAt("any", ptr(osaka))

	age, err := SuitableForAge(models.AgePreschool)
	require.NoError(t, err)
	opts, err := NewOptions(Unbounded(), age)
	require.NoError(t, err)

	ranked, err := Rank(tokyo, []models.Spot{infants, anyAge}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"any"}, names(ranked))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	spots := []models.Spot{spotAt("c", ptr(osaka)), spotAt("b", ptr(shinjuku))}
	_, err := Rank(tokyo, spots, Options{})
	require.NoError(t, err)
	assert.Equal(t, "c", spots[0].Name)
	assert.Equal(t, osaka, *spots[0].Location)
}

func TestNewOptions(t *testing.T) {
	free, _ := ParkingIs(models.ParkingFree)
	paid, _ := ParkingIs(models.ParkingPaid)
	free2, _ := ParkingIs(models.ParkingFree)
	nursing, _ := RequireAmenity(models.AmenityNursingRoom)

	_, err := NewOptions(Unbounded(), free, paid)
	assert.ErrorIs(t, err, ErrConflictingFacets)

	opts, err := NewOptions(Unbounded(), free, nursing, free2, nursing)
	require.NoError(t, err)
	assert.Len(t, opts.Facets, 2)
}

func TestFacetConstructorsRejectUnknown(t *testing.T) {
	_, err := ParkingIs("valet")
	assert.ErrorIs(t, err, ErrUnknownFacet)
	_, err = RequireAmenity("pool")
	assert.ErrorIs(t, err, ErrUnknownFacet)
	_, err = SuitableForAge("12-18")
	assert.ErrorIs(t, err, ErrUnknownFacet)
}

func TestRadius(t *testing.T) {
	assert.False(t, Radius{}.Bounded())
	assert.Equal(t, "unbounded", Unbounded().String())

	for _, km := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := WithinKm(km)
		assert.ErrorIs(t, err, ErrInvalidRadius)
	}

	tests := []struct {
		in      string
		bounded bool
		km      float64
		wantErr bool
	}{
		{"", false, 0, false},
		{"all", false, 0, false},
		{"3", true, 3, false},
		{"2.5", true, 2.5, false},
		{"-3", false, 0, true},
		{"far", false, 0, true},
	}
	for _, tt := range tests {
		r, err := ParseRadius(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRadius, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		km, ok := r.Km()
		assert.Equal(t, tt.bounded, ok, tt.in)
		assert.Equal(t, tt.km, km, tt.in)
	}
}
