package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

func newTestAuth(t *testing.T) (*auth.Service, *AuthMiddleware) {
	t.Helper()
	svc, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return svc, NewAuthMiddleware(svc)
}

func bearerFor(t *testing.T, svc *auth.Service, role models.Role) (string, primitive.ObjectID) {
	t.Helper()
	id := primitive.NewObjectID()
	tok, err := svc.GenerateToken(&models.User{ID: id, DisplayName: "Hanako", Role: role})
	require.NoError(t, err)
	return "Bearer " + tok, id
}

// spyHandler records whether it ran and what claims it saw.
type spyHandler struct {
	called bool
	claims *models.Claims
}

func (h *spyHandler) ServeHTTP(_ http.ResponseWriter, r *http.Request) {
	h.called = true
	h.claims, _ = GetUserFromContext(r.Context())
}

func TestAuthenticate(t *testing.T) {
	svc, mw := newTestAuth(t)
	userBearer, userID := bearerFor(t, svc, models.RoleUser)

	tests := []struct {
		name       string
		header     string
		wantClaims bool
	}{
		{"valid token", userBearer, true},
		{"no header", "", false},
		{"garbage token", "Bearer invalid-token", false},
		{"basic auth", "Basic dXNlcjpwdw==", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/spots", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h := &spyHandler{}

			mw.Authenticate(h).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, h.called)
			if tt.wantClaims {
				require.NotNil(t, h.claims)
				assert.Equal(t, userID.Hex(), h.claims.UserID)
				assert.Equal(t, models.RoleUser, h.claims.Role)
			} else {
				assert.Nil(t, h.claims)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	svc, mw := newTestAuth(t)
	userBearer, userID := bearerFor(t, svc, models.RoleUser)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"valid token", userBearer, http.StatusOK, ""},
		{"no header", "", http.StatusUnauthorized, "authorization header required"},
		{"garbage token", "Bearer invalid-token", http.StatusUnauthorized, "invalid session token"},
		{"basic auth", "Basic dXNlcjpwdw==", http.StatusUnauthorized, "bearer token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h := &spyHandler{}

			mw.Authenticate(mw.Require(h)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, h.called)
			if tt.wantError != "" {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Body.String(), tt.wantError)
			} else {
				require.NotNil(t, h.claims)
				assert.Equal(t, userID.Hex(), h.claims.UserID)
			}
		})
	}
}

func TestRequire_WithoutAuthenticate(t *testing.T) {
	svc, mw := newTestAuth(t)
	bearer, userID := bearerFor(t, svc, models.RoleUser)

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	h := &spyHandler{}
	mw.Require(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, h.claims)
	assert.Equal(t, userID.Hex(), h.claims.UserID)
}

func TestRequire_ExpiredSession(t *testing.T) {
	_, mw := newTestAuth(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "mama-odekake",
		"sub":  primitive.NewObjectID().Hex(),
		"role": "user",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h := &spyHandler{}
	mw.Authenticate(mw.Require(h)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session expired")
	assert.False(t, h.called)
}

func TestRequireRole(t *testing.T) {
	svc, mw := newTestAuth(t)

	run := func(role, required models.Role) (bool, int) {
		bearer, _ := bearerFor(t, svc, role)
		req := httptest.NewRequest("GET", "/api/submissions", nil)
		req.Header.Set("Authorization", bearer)
		w := httptest.NewRecorder()
		h := &spyHandler{}
		mw.Authenticate(mw.RequireRole(required)(h)).ServeHTTP(w, req)
		return h.called, w.Code
	}

	tests := []struct {
		role, required models.Role
		want           int
	}{
		{models.RoleAdmin, models.RoleModerator, http.StatusOK},
		{models.RoleModerator, models.RoleModerator, http.StatusOK},
		{models.RoleUser, models.RoleModerator, http.StatusForbidden},
		{models.RoleModerator, models.RoleAdmin, http.StatusForbidden},
	}
	for _, tt := range tests {
		called, code := run(tt.role, tt.required)
		assert.Equal(t, tt.want, code, "%s needs %s", tt.role, tt.required)
		assert.Equal(t, tt.want == http.StatusOK, called)
	}
}

func TestRequireRole_NoClaims(t *testing.T) {
	_, mw := newTestAuth(t)
	w := httptest.NewRecorder()
	mw.RequireRole(models.RoleModerator)(&spyHandler{}).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission(t *testing.T) {
	_, mw := newTestAuth(t)

	run := func(role models.Role, action models.Action) int {
		req := httptest.NewRequest("POST", "/api/submissions", nil)
		req = req.WithContext(WithUser(req.Context(), &models.Claims{UserID: "u", Role: role}))
		w := httptest.NewRecorder()
		mw.RequirePermission(action)(&spyHandler{}).ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, run(models.RoleUser, models.ActionSubmitSpot))
	assert.Equal(t, http.StatusOK, run(models.RoleUser, models.ActionPostReview))
	assert.Equal(t, http.StatusForbidden, run(models.RoleUser, models.ActionModerate))
	assert.Equal(t, http.StatusForbidden, run(models.RoleModerator, models.ActionManageUsers))
	assert.Equal(t, http.StatusOK, run(models.RoleAdmin, models.ActionManageUsers))
}

func TestUserContext(t *testing.T) {
	claims := &models.Claims{UserID: "test-id", DisplayName: "Hanako", Role: models.RoleModerator}

	got, ok := GetUserFromContext(WithUser(context.Background(), claims))
	assert.True(t, ok)
	assert.Same(t, claims, got)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserFromContext(WithUser(context.Background(), nil))
	assert.False(t, ok)
}
