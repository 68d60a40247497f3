package handlers

import (
	"net/http"
	"time"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/events"
	"github.com/kadod/mama-odekake-liff/internal/line"
	"github.com/kadod/mama-odekake-liff/internal/middleware"
	"github.com/kadod/mama-odekake-liff/internal/models"
	"github.com/kadod/mama-odekake-liff/internal/proximity"
	"github.com/kadod/mama-odekake-liff/internal/reviews"
)

// RouterConfig carries everything the HTTP API needs.
type RouterConfig struct {
	Spots       db.SpotCollection
	Reviews     db.ReviewCollection
	Submissions db.SubmissionCollection
	Users       db.UserCollection
	DB          Pinger
	Auth        *auth.Service
	Verifier    line.Verifier
	Events      events.Publisher
	RateLimit   *middleware.RateLimitMiddleware

	DefaultRadius   proximity.Radius
	TiePolicy       reviews.TiePolicy
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
func NewRouter(cfg RouterConfig) http.Handler {
	pub := cfg.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	limiter := cfg.RateLimit
	if limiter == nil {
		limiter = middleware.NewRateLimitMiddleware()
	}
	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	limited := limiter.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow)
	moderator := authMW.RequireRole(models.RoleModerator)

	health := &HealthHandler{DB: cfg.DB}
	authH := NewAuthHandler(cfg.Auth, cfg.Users, cfg.Verifier)
	spots := &SpotHandler{
		Spots:         cfg.Spots,
		Reviews:       cfg.Reviews,
		DefaultRadius: cfg.DefaultRadius,
		TiePolicy:     cfg.TiePolicy,
	}
	revs := &ReviewHandler{Spots: cfg.Spots, Reviews: cfg.Reviews, Events: pub}
	subs := &SubmissionHandler{Submissions: cfg.Submissions, Spots: cfg.Spots, Events: pub}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Health)

	mux.Handle("POST /api/auth/line", limited(http.HandlerFunc(authH.LineLogin)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(authH.Login)))
	mux.Handle("GET /api/auth/profile", authMW.Require(http.HandlerFunc(authH.GetProfile)))

	mux.HandleFunc("GET /api/spots", spots.Search)
	mux.HandleFunc("GET /api/spots/geojson", spots.GeoJSON)
	mux.HandleFunc("GET /api/spots/{id}", spots.Get)
	mux.HandleFunc("GET /api/spots/{id}/reviews", revs.List)
	mux.Handle("POST /api/spots/{id}/reviews", limited(authMW.RequirePermission(models.ActionPostReview)(http.HandlerFunc(revs.Create))))

	mux.Handle("POST /api/submissions", limited(authMW.RequirePermission(models.ActionSubmitSpot)(http.HandlerFunc(subs.Create))))
	mux.Handle("GET /api/submissions", moderator(http.HandlerFunc(subs.List)))
	mux.Handle("POST /api/submissions/{id}/approve", moderator(http.HandlerFunc(subs.Approve)))
	mux.Handle("POST /api/submissions/{id}/reject", moderator(http.HandlerFunc(subs.Reject)))

	// Authenticate only attaches claims, so the mux answers 404 and 405 before any guard runs.
	return middleware.RequestLogger(middleware.Recover(authMW.Authenticate(mux)))
}
