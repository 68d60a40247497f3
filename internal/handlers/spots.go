package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/geo"
	"github.com/kadod/mama-odekake-liff/internal/models"
	"github.com/kadod/mama-odekake-liff/internal/proximity"
	"github.com/kadod/mama-odekake-liff/internal/reviews"
)

const maxSearchLimit = 200

// SpotHandler serves spot search and detail requests.
type SpotHandler struct {
	Spots         db.SpotCollection
	Reviews       db.ReviewCollection
	DefaultRadius proximity.Radius
	TiePolicy     reviews.TiePolicy
}

// searchQuery is a parsed spot search request.
type searchQuery struct {
	Origin models.Location
	Opts   proximity.Options
	Limit  int
}

// parseSearchQuery reads origin, radius, facets and limit from the query string.
// A missing radius falls back to defaultRadius; "all" is always unbounded.
func parseSearchQuery(q url.Values, defaultRadius proximity.Radius) (searchQuery, error) {
	var sq searchQuery

	lat, err := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	if err != nil {
		return sq, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(q.Get("lng")), 64)
	if err != nil {
		return sq, errors.New("lng must be a number")
	}
	sq.Origin = models.Location{Lat: lat, Lng: lng}
	if !sq.Origin.Valid() {
		return sq, fmt.Errorf("origin (%v, %v): %w", lat, lng, proximity.ErrInvalidCoordinate)
	}

	radius := defaultRadius
	if q.Has("radius") {
		if radius, err = proximity.ParseRadius(strings.TrimSpace(q.Get("radius"))); err != nil {
			return sq, err
		}
	}

	var facets []proximity.FacetPredicate
	if v := strings.TrimSpace(q.Get("parking")); v != "" && v != "all" {
		p, err := models.ParseParking(v)
		if err != nil {
			return sq, err
		}
		f, err := proximity.ParkingIs(p)
		if err != nil {
			return sq, err
		}
		facets = append(facets, f)
	}
	for _, a := range models.Amenities {
		v := strings.TrimSpace(q.Get(string(a)))
		if v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return sq, fmt.Errorf("%s must be true or false", a)
		}
		if !on {
			continue
		}
		f, err := proximity.RequireAmenity(a)
		if err != nil {
			return sq, err
		}
		facets = append(facets, f)
	}
	if v := strings.TrimSpace(q.Get("age")); v != "" && v != "all" {
		f, err := proximity.SuitableForAge(models.AgeRange(v))
		if err != nil {
			return sq, err
		}
		facets = append(facets, f)
	}

	if sq.Opts, err = proximity.NewOptions(radius, facets...); err != nil {
		return sq, err
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSearchLimit {
			return sq, fmt.Errorf("limit must be between 1 and %d", maxSearchLimit)
		}
		sq.Limit = n
	}
	return sq, nil
}

// rank fetches every spot and ranks it against the query.
func (h *SpotHandler) rank(w http.ResponseWriter, r *http.Request) (proximity.Result, bool) {
	sq, err := parseSearchQuery(r.URL.Query(), h.DefaultRadius)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return proximity.Result{}, false
	}

	start := time.Now()
	spots, err := h.Spots.FindSpots(r.Context())
	if err != nil {
		internalError(w, r, "find spots", err)
		return proximity.Result{}, false
	}

	res, err := proximity.RankDetailed(sq.Origin, spots, sq.Opts)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return proximity.Result{}, false
	}
	if sq.Limit > 0 && len(res.Spots) > sq.Limit {
		res.Spots = res.Spots[:sq.Limit]
	}

	fields := log.Fields{
		"candidates":  len(spots),
		"matched":     len(res.Spots),
		"radius":      sq.Opts.Radius.String(),
		"facets":      len(sq.Opts.Facets),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if res.Unrankable > 0 {
		fields["unrankable"] = res.Unrankable
		log.WithFields(fields).Warn("spots without usable coordinates skipped")
	} else {
		log.WithFields(fields).Debug("spots ranked")
	}
	return res, true
}

type searchResponse struct {
	Spots      []proximity.RankedSpot `json:"spots"`
	Count      int                    `json:"count"`
	Unrankable int                    `json:"unrankable"`
}

// Search handles GET /api/spots.
func (h *SpotHandler) Search(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rank(w, r)
	if !ok {
		return
	}

	out := make([]proximity.RankedSpot, len(res.Spots))
	for i, rs := range res.Spots {
		rs.DistanceKm = geo.RoundKm(rs.DistanceKm)
		out[i] = rs
	}
	writeJSON(w, r, http.StatusOK, searchResponse{Spots: out, Count: len(out), Unrankable: res.Unrankable})
}

// GeoJSON handles GET /api/spots/geojson.
func (h *SpotHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rank(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, r, http.StatusOK, geo.FromRanked(res.Spots))
}

type spotDetailResponse struct {
	Spot          models.Spot     `json:"spot"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	Summary       reviews.Summary `json:"summary"`
	DirectionsURL string          `json:"directions_url,omitempty"`
}

// Get handles GET /api/spots/{id}. With lat and lng it also reports the distance.
func (h *SpotHandler) Get(w http.ResponseWriter, r *http.Request) {
	spot, err := h.Spots.FindSpotByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "spot not found")
			return
		}
		internalError(w, r, "find spot", err)
		return
	}

	rs, err := h.Reviews.FindReviewsBySpot(r.Context(), spot.ID)
	if err != nil {
		internalError(w, r, "find reviews", err)
		return
	}

	resp := spotDetailResponse{
		Spot:          *spot,
		Summary:       reviews.Summarize(rs, h.TiePolicy),
		DirectionsURL: spot.DirectionsURL(),
	}

	q := r.URL.Query()
	if q.Has("lat") && q.Has("lng") && spot.Location != nil && spot.Location.Valid() {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		origin := models.Location{Lat: lat, Lng: lng}
		if errLat != nil || errLng != nil || !origin.Valid() {
			writeError(w, r, http.StatusBadRequest, "lat and lng must be valid coordinates")
			return
		}
		d := geo.RoundKm(proximity.Distance(origin, *spot.Location))
		resp.DistanceKm = &d
	}

	writeJSON(w, r, http.StatusOK, resp)
}
