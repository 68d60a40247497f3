package handlers

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// HealthHandler reports liveness and, when a database is wired, its reachability.
type HealthHandler struct {
	DB Pinger
}

// Health provides a minimal liveness check endpoint.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{"status": "ok"}
	if h.DB == nil {
		writeJSON(w, r, http.StatusOK, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		res["status"] = "degraded"
		res["database"] = "unreachable"
		writeJSON(w, r, http.StatusServiceUnavailable, res)
		return
	}
	res["database"] = "ok"
	writeJSON(w, r, http.StatusOK, res)
}
