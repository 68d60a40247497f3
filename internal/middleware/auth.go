package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

type contextKey string

// UserContextKey holds the *models.Claims of an authenticated request.
const UserContextKey contextKey = "user"

// AuthMiddleware attaches session claims to requests and guards the
// routes that need them.
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware returns middleware validating tokens with authService.
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate attaches the claims of a valid bearer token to every request.
// It never rejects: routing decides 404 and 405 first, and protected routes
// are wrapped in Require, RequireRole or RequirePermission.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := m.session(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// Require admits any signed-in user.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return m.guard(func(*models.Claims) bool { return true })(next)
}

var (
	errNoAuthHeader  = errors.New("authorization header required")
	errNotBearer     = errors.New("authorization header must be a bearer token")
	errSessionExpiry = errors.New("session expired")
	errBadSession    = errors.New("invalid session token")
)

func (m *AuthMiddleware) session(r *http.Request) (*models.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoAuthHeader
	}
	token, ok := auth.BearerToken(header)
	if !ok {
		return nil, errNotBearer
	}
	claims, err := m.authService.ValidateToken(token)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, errSessionExpiry
	case err != nil:
		return nil, errBadSession
	}
	return claims, nil
}

// RequireRole admits the given role and admins.
func (m *AuthMiddleware) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return m.guard(func(c *models.Claims) bool {
		return c.Role == role || c.Role == models.RoleAdmin
	})
}

// RequirePermission admits users whose role grants action.
func (m *AuthMiddleware) RequirePermission(action models.Action) func(http.Handler) http.Handler {
	return m.guard(func(c *models.Claims) bool {
		return c.Role.Can(action)
	})
}

func (m *AuthMiddleware) guard(allowed func(*models.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				// re-read the header so the 401 says what was wrong with it
				c, err := m.session(r)
				if err != nil {
					deny(w, http.StatusUnauthorized, err.Error())
					return
				}
				claims = c
				r = r.WithContext(WithUser(r.Context(), claims))
			}
			if !allowed(claims) {
				deny(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext returns the claims Authenticate stored, if any.
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok && claims != nil
}

// WithUser returns a copy of ctx carrying claims.
func WithUser(ctx context.Context, claims *models.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// deny writes the same {"error": ...} body the handlers use.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
