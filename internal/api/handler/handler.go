// Package handler provides HTTP handlers for all API endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/siouxland-alerts/internal/api/respond"
	"github.com/albapepper/siouxland-alerts/internal/cache"
	"github.com/albapepper/siouxland-alerts/internal/config"
	"github.com/albapepper/siouxland-alerts/internal/domain"
	"github.com/albapepper/siouxland-alerts/internal/pipeline"
)

// Runner executes one full alert pipeline pass.
type Runner interface {
	Run(ctx context.Context) pipeline.RunResult
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool      *pgxpool.Pool
	snapshots *cache.Snapshots
	orch      Runner
	cfg       *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, snapshots *cache.Snapshots, orch Runner, cfg *config.Config) *Handler {
	return &Handler{
		pool:      pool,
		snapshots: snapshots,
		orch:      orch,
		cfg:       cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Siouxland Civic Alerts API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"domains": domain.AlertTypes,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache verifies the snapshot cache backend.
// @Summary Cache health check
// @Description Verifies Redis connectivity for the status snapshot cache.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	if err := h.snapshots.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"cache":     "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     map[string]bool{"enabled": h.snapshots.Enabled()},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the latest cached status per domain.
// @Summary Current status per domain
// @Description Returns the latest classified status snapshot for each of the four domains. Domains without a recent snapshot are reported as unknown.
// @Tags status
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.snapshots.All(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE", "Status cache is unreachable")
		return
	}

	out := make(map[string]interface{}, len(domain.AlertTypes))
	for _, t := range domain.AlertTypes {
		if snap, ok := snaps[t]; ok {
			out[string(t)] = snap
		} else {
			out[string(t)] = map[string]string{"status": "unknown"}
		}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"domains":   out,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// VAPIDKey exposes the public VAPID key for browser push subscription.
// @Summary Web push public key
// @Description Returns the VAPID public key clients need to subscribe for web push.
// @Tags push
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/push/vapid [get]
func (h *Handler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.cfg.VAPIDPublicKey == "" {
		respond.WriteError(w, http.StatusNotFound, "WEB_PUSH_DISABLED", "Web push is not configured")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]string{
		"publicKey": h.cfg.VAPIDPublicKey,
	})
}
