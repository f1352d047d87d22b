package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/siouxland-alerts/internal/config"
	"github.com/albapepper/siouxland-alerts/internal/domain"
	"github.com/albapepper/siouxland-alerts/internal/pipeline"
)

type fakeRunner struct {
	result   pipeline.RunResult
	runs     int
	panicMsg string
}

func (f *fakeRunner) Run(context.Context) pipeline.RunResult {
	f.runs++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result
}

func cronHarness(env, secret string) (*Handler, *fakeRunner) {
	runner := &fakeRunner{
		result: pipeline.RunResult{
			Results: map[domain.AlertType]pipeline.DomainResult{
				domain.AlertTypeWeather:    {},
				domain.AlertTypeRiver:      {},
				domain.AlertTypeAirQuality: {Checked: 2, Matched: 1, Notified: 1},
				domain.AlertTypeTraffic:    {},
			},
			CleanedUp: 3,
		},
	}
	cfg := &config.Config{Environment: env, CronSecret: secret}
	return New(nil, nil, runner, cfg), runner
}

func TestCronAlerts_Authorization(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		secret     string
		header     http.Header
		wantStatus int
	}{
		{
			name:       "no credentials in production",
			env:        "production",
			secret:     "s3cret",
			header:     http.Header{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "scheduler marker header",
			env:        "production",
			secret:     "s3cret",
			header:     http.Header{"X-Cron-Scheduler": []string{"render"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "correct bearer secret",
			env:        "production",
			secret:     "s3cret",
			header:     http.Header{"Authorization": []string{"Bearer s3cret"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong bearer secret",
			env:        "production",
			secret:     "s3cret",
			header:     http.Header{"Authorization": []string{"Bearer nope"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "development bypass",
			env:        "development",
			secret:     "",
			header:     http.Header{},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, runner := cronHarness(tt.env, tt.secret)

			req := httptest.NewRequest(http.MethodPost, "/internal/cron/alerts", nil)
			req.Header = tt.header
			rec := httptest.NewRecorder()

			h.CronAlerts(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 1, runner.runs)
			} else {
				assert.Zero(t, runner.runs, "unauthorized request must not run the pipeline")
			}
		})
	}
}

func TestCronAlerts_ResponseShape(t *testing.T) {
	h, _ := cronHarness("development", "")

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/alerts", nil)
	rec := httptest.NewRecorder()
	h.CronAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp cronResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.EqualValues(t, 3, resp.CleanedUp)
	require.Contains(t, resp.Results, "air_quality")
	assert.Equal(t, pipeline.DomainResult{Checked: 2, Matched: 1, Notified: 1}, resp.Results["air_quality"])
	assert.Len(t, resp.Results, 4)
}

func TestCronAlerts_RunPanicBecomes500(t *testing.T) {
	h, runner := cronHarness("development", "")
	runner.panicMsg = "redis client not initialized"

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/alerts", nil)
	rec := httptest.NewRecorder()
	h.CronAlerts(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp cronResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "pipeline run failed")
}

func TestCronAlerts_CleanupFailureReportedNotFatal(t *testing.T) {
	h, runner := cronHarness("development", "")
	runner.result.CleanedUp = 0
	runner.result.CleanupErr = errors.New("cleanup timeout")

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/alerts", nil)
	rec := httptest.NewRecorder()
	h.CronAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp cronResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Error, "cleanup")
}
