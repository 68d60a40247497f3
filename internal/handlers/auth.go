package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/line"
	"github.com/kadod/mama-odekake-liff/internal/middleware"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

// AuthHandler signs parents in through LINE and staff with a password.
// Both end with the same session token.
type AuthHandler struct {
	sessions *auth.Service
	users    db.UserCollection
	verifier line.Verifier
}

// NewAuthHandler returns an AuthHandler issuing tokens from sessions.
func NewAuthHandler(sessions *auth.Service, users db.UserCollection, verifier line.Verifier) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users, verifier: verifier}
}

// LineLogin exchanges a LIFF ID token for a session token. The account is
// created on first login and its LINE profile refreshed on every one.
func (h *AuthHandler) LineLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LineLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		writeError(w, r, http.StatusBadRequest, "id_token is required")
		return
	}

	profile, err := h.verifier.VerifyIDToken(r.Context(), req.IDToken)
	switch {
	case errors.Is(err, line.ErrInvalidIDToken):
		log.WithError(err).Info("LINE ID token rejected")
		writeError(w, r, http.StatusUnauthorized, "invalid LINE ID token")
		return
	case err != nil:
		log.WithError(err).Error("LINE verification unavailable")
		writeError(w, r, http.StatusBadGateway, "LINE verification unavailable")
		return
	}

	// the upsert also stamps last_login
	user, err := h.users.UpsertLineUser(r.Context(), db.LineProfile{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		PictureURL:  profile.PictureURL,
	})
	if err != nil {
		internalError(w, r, "upsert line user", err)
		return
	}
	if !user.IsActive {
		writeError(w, r, http.StatusForbidden, "account is deactivated")
		return
	}
	h.respondWithSession(w, r, user)
}

// Login signs a staff member in with username and password. Unknown users,
// wrong passwords and deactivated accounts all answer 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginRequest
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	staff, err := h.users.FindUserByUsername(r.Context(), creds.Username)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	case err != nil:
		internalError(w, r, "find staff user", err)
		return
	}

	switch err := h.sessions.Authenticate(staff, creds.Password); {
	case errors.Is(err, auth.ErrUserInactive):
		writeError(w, r, http.StatusUnauthorized, "account is deactivated")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		log.WithField("username", creds.Username).Info("Staff login failed")
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), staff.ID.Hex()); err != nil {
		log.WithField("user_id", staff.ID.Hex()).WithError(err).Warn("Failed to update last login")
	}
	h.respondWithSession(w, r, staff)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := h.sessions.GenerateToken(user)
	if err != nil {
		internalError(w, r, "generate session token", err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// GetProfile returns the signed-in account.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case err != nil:
		internalError(w, r, "find user", err)
	default:
		writeJSON(w, r, http.StatusOK, user)
	}
}
