package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/events"
	"github.com/kadod/mama-odekake-liff/internal/middleware"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

// SubmissionHandler handles user spot suggestions and their moderation.
type SubmissionHandler struct {
	Submissions db.SubmissionCollection
	Spots       db.SpotCollection
	Events      events.Publisher
}

// buildSubmission validates a suggestion and converts it to a pending submission.
func buildSubmission(req models.SubmissionRequest) (models.Submission, error) {
	sub := models.Submission{
		Name:             strings.TrimSpace(req.Name),
		Address:          strings.TrimSpace(req.Address),
		Description:      strings.TrimSpace(req.Description),
		StrollerFriendly: req.StrollerFriendly,
		NursingRoom:      req.NursingRoom,
		DiaperChange:     req.DiaperChange,
		Phone:            strings.TrimSpace(req.Phone),
		Website:          strings.TrimSpace(req.Website),
		Status:           models.SubmissionPending,
	}

	switch n := utf8.RuneCountInString(sub.Name); {
	case n == 0:
		return sub, errors.New("name is required")
	case n > models.MaxSpotNameLength:
		return sub, fmt.Errorf("name must be at most %d characters", models.MaxSpotNameLength)
	}
	switch n := utf8.RuneCountInString(sub.Address); {
	case n == 0:
		return sub, errors.New("address is required")
	case n > models.MaxSpotAddressLength:
		return sub, fmt.Errorf("address must be at most %d characters", models.MaxSpotAddressLength)
	}

	if req.Location != nil {
		if !req.Location.Valid() {
			return sub, errors.New("location must be a valid latitude and longitude")
		}
		loc := *req.Location
		sub.Location = &loc
	}

	sub.Parking = models.ParkingNone
	if strings.TrimSpace(req.Parking) != "" {
		p, err := models.ParseParking(req.Parking)
		if err != nil {
			return sub, errors.New("parking must be one of none, free, paid")
		}
		sub.Parking = p
	}

	seen := make(map[models.AgeRange]bool, len(req.AgeRanges))
	for _, s := range req.AgeRanges {
		a, err := models.ParseAgeRange(s)
		if err != nil {
			return sub, fmt.Errorf("unknown age range %q", s)
		}
		if !seen[a] {
			seen[a] = true
			sub.AgeRanges = append(sub.AgeRanges, a)
		}
	}

	if sub.Website != "" {
		u, err := url.Parse(sub.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return sub, errors.New("website must be an http or https URL")
		}
	}
	return sub, nil
}

// Create handles POST /api/submissions.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req models.SubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := buildSubmission(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sub.SubmittedBy = claims.UserID
	sub.CreatedAt = time.Now().UTC()

	id, err := h.Submissions.InsertSubmission(r.Context(), sub)
	if err != nil {
		internalError(w, r, "insert submission", err)
		return
	}
	sub.ID = id

	publish(r, h.Events, events.New(events.SpotSuggested, sub))
	writeJSON(w, r, http.StatusCreated, sub)
}

// List handles GET /api/submissions. Status defaults to pending; "all" lists everything.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.SubmissionPending
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		switch s := models.SubmissionStatus(v); {
		case v == "all":
			status = ""
		case models.IsValidSubmissionStatus(s):
			status = s
		default:
			writeError(w, r, http.StatusBadRequest, "status must be one of pending, approved, rejected, all")
			return
		}
	}

	subs, err := h.Submissions.FindSubmissions(r.Context(), status)
	if err != nil {
		internalError(w, r, "find submissions", err)
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSON(w, r, http.StatusOK, subs)
}

// pendingSubmission loads the submission named in the path and checks it is still pending.
func (h *SubmissionHandler) pendingSubmission(w http.ResponseWriter, r *http.Request) (*models.Submission, bool) {
	sub, err := h.Submissions.FindSubmissionByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "submission not found")
			return nil, false
		}
		internalError(w, r, "find submission", err)
		return nil, false
	}
	if sub.Status != models.SubmissionPending {
		writeError(w, r, http.StatusConflict, "submission already "+string(sub.Status))
		return nil, false
	}
	return sub, true
}

// Approve handles POST /api/submissions/{id}/approve.
// The submission becomes a spot; it must carry a location so the spot is rankable.
func (h *SubmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	sub, ok := h.pendingSubmission(w, r)
	if !ok {
		return
	}
	if sub.Location == nil || !sub.Location.Valid() {
		writeError(w, r, http.StatusUnprocessableEntity, "submission has no location")
		return
	}

	now := time.Now().UTC()
	spot := sub.ToSpot(now)
	spotID, err := h.Spots.InsertSpot(r.Context(), spot)
	if err != nil {
		internalError(w, r, "insert spot", err)
		return
	}
	spot.ID = spotID

	err = h.Submissions.DecideSubmission(r.Context(), sub.ID, db.Decision{
		Status:     models.SubmissionApproved,
		ReviewedBy: claims.UserID,
		SpotID:     &spotID,
	})
	if err != nil {
		// Another moderator got there first; drop the spot we just created.
		if delErr := h.Spots.DeleteSpot(r.Context(), spotID); delErr != nil {
			log.WithFields(log.Fields{
				"submission_id": sub.ID.Hex(),
				"spot_id":       spotID.Hex(),
			}).WithError(delErr).Error("rollback of approved spot failed")
		}
		h.decisionError(w, r, err)
		return
	}

	sub.Status = models.SubmissionApproved
	sub.ReviewedBy = claims.UserID
	sub.ReviewedAt = &now
	sub.SpotID = &spotID

	log.WithFields(log.Fields{
		"submission_id": sub.ID.Hex(),
		"spot_id":       spotID.Hex(),
		"reviewed_by":   claims.UserID,
	}).Info("submission approved")
	publish(r, h.Events, events.New(events.SubmissionApproved, sub))
	writeJSON(w, r, http.StatusOK, map[string]any{"submission": sub, "spot": spot})
}

// Reject handles POST /api/submissions/{id}/reject.
func (h *SubmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	sub, ok := h.pendingSubmission(w, r)
	if !ok {
		return
	}

	err := h.Submissions.DecideSubmission(r.Context(), sub.ID, db.Decision{
		Status:     models.SubmissionRejected,
		ReviewedBy: claims.UserID,
	})
	if err != nil {
		h.decisionError(w, r, err)
		return
	}

	now := time.Now().UTC()
	sub.Status = models.SubmissionRejected
	sub.ReviewedBy = claims.UserID
	sub.ReviewedAt = &now

	publish(r, h.Events, events.New(events.SubmissionRejected, sub))
	writeJSON(w, r, http.StatusOK, sub)
}

func (h *SubmissionHandler) decisionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrAlreadyDecided):
		writeError(w, r, http.StatusConflict, "submission already decided")
	case errors.Is(err, db.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "submission not found")
	default:
		internalError(w, r, "decide submission", err)
	}
}
