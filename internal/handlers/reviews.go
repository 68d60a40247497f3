package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/events"
	"github.com/kadod/mama-odekake-liff/internal/middleware"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

// ReviewHandler handles posting and listing spot reviews.
type ReviewHandler struct {
	Spots   db.SpotCollection
	Reviews db.ReviewCollection
	Events  events.Publisher
}

// validateReview normalises a review request.
func validateReview(req models.ReviewRequest) (models.ReviewRequest, error) {
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return req, fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	if strings.TrimSpace(req.CrowdLevel) != "" {
		c, err := models.ParseCrowdLevel(req.CrowdLevel)
		if err != nil {
			return req, errors.New("crowd_level must be one of low, medium, high")
		}
		req.CrowdLevel = string(c)
	} else {
		req.CrowdLevel = ""
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(req.Comment) > models.MaxCommentLength {
		return req, fmt.Errorf("comment must be at most %d characters", models.MaxCommentLength)
	}
	return req, nil
}

// Create handles POST /api/spots/{id}/reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req models.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := validateReview(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	spot, err := h.Spots.FindSpotByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "spot not found")
			return
		}
		internalError(w, r, "find spot", err)
		return
	}

	review := models.Review{
		SpotID:      spot.ID,
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Rating:      req.Rating,
		CrowdLevel:  models.CrowdLevel(req.CrowdLevel),
		Comment:     req.Comment,
		CreatedAt:   time.Now().UTC(),
	}
	id, err := h.Reviews.InsertReview(r.Context(), review)
	if err != nil {
		internalError(w, r, "insert review", err)
		return
	}
	review.ID = id

	publish(r, h.Events, events.New(events.ReviewPosted, review))
	writeJSON(w, r, http.StatusCreated, review)
}

// List handles GET /api/spots/{id}/reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if rs == nil {
		rs = []models.Review{}
	}
	writeJSON(w, r, http.StatusOK, rs)
}

// publish sends e without failing the request; a lost event only delays notifications.
func publish(r *http.Request, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(r.Context(), e); err != nil {
		log.WithFields(log.Fields{
			"event": e.Type,
			"path":  r.URL.Path,
		}).WithError(err).Warn("publish event failed")
	}
}
