package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/siouxland-alerts/internal/config"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "SUXI4", cfg.RiverGaugeID)
	assert.Equal(t, 30*24*time.Hour, cfg.LedgerRetention)
	assert.Equal(t, 30*time.Minute, cfg.StatusTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("LEDGER_RETENTION_DAYS", "45")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://alerts.siouxland.example, https://siouxland.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.CronSecret)
	assert.Equal(t, 45*24*time.Hour, cfg.LedgerRetention)
	assert.Equal(t, []string{"https://alerts.siouxland.example", "https://siouxland.example"}, cfg.CORSAllowOrigins)
}
