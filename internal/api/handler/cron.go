package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/api/respond"
	"github.com/albapepper/siouxland-alerts/internal/pipeline"
)

// cronResponse is the scheduler-facing run summary.
type cronResponse struct {
	Success   bool                             `json:"success"`
	Results   map[string]pipeline.DomainResult `json:"results"`
	CleanedUp int64                            `json:"cleanedUp"`
	Error     string                           `json:"error,omitempty"`
	Timestamp string                           `json:"timestamp"`
}

// CronAlerts runs one full alert pipeline pass. Invoked by the hosted cron
// scheduler; not a public endpoint.
// @Summary Trigger an alert pipeline run
// @Description Runs the four domain pipelines once and reports per-domain counts. Requires scheduler authorization.
// @Tags cron
// @Produce json
// @Param Authorization header string false "Bearer CRON_SECRET"
// @Success 200 {object} handler.cronResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /internal/cron/alerts [post]
func (h *Handler) CronAlerts(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedScheduler(r) {
		respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Scheduler authorization required")
		return
	}

	result, err := h.runPipeline(r.Context())
	if err != nil {
		respond.WriteJSONObject(w, http.StatusInternalServerError, cronResponse{
			Success:   false,
			Results:   map[string]pipeline.DomainResult{},
			Error:     err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	resp := cronResponse{
		Success:   true,
		Results:   make(map[string]pipeline.DomainResult, len(result.Results)),
		CleanedUp: result.CleanedUp,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for alertType, dr := range result.Results {
		resp.Results[string(alertType)] = dr
	}
	// Cleanup failure is reported, not fatal: notifications already went out.
	if result.CleanupErr != nil {
		resp.Error = "ledger cleanup failed: " + result.CleanupErr.Error()
	}

	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// runPipeline converts a pipeline panic into a reportable run failure so the
// scheduler sees a 500 instead of a dropped connection.
func (h *Handler) runPipeline(ctx context.Context) (result pipeline.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline run failed: %v", r)
		}
	}()
	return h.orch.Run(ctx), nil
}

// authorizedScheduler accepts the hosted scheduler's marker header, a bearer
// secret, or any caller in local development.
func (h *Handler) authorizedScheduler(r *http.Request) bool {
	if r.Header.Get("X-Cron-Scheduler") != "" {
		return true
	}
	if h.cfg.CronSecret != "" {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.CronSecret)) == 1 {
				return true
			}
		}
	}
	return h.cfg.IsDevelopment()
}
