// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema migration, and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/siouxland-alerts/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// RunMigrations applies the embedded schema. All statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so this is safe to run on every startup.
func (p *Pool) RunMigrations(ctx context.Context) error {
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the ledger and
// subscription layers use. Prepared statements eliminate parse overhead on
// every cron run.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Dedup ledger
		"ledger_has_triggered": "SELECT 1 FROM triggered_alerts WHERE identity = $1 AND alert_type = $2 AND source_id = $3",
		"ledger_record":        "INSERT INTO triggered_alerts (identity, alert_type, source_id, payload, triggered_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (identity, alert_type, source_id) DO NOTHING",
		"ledger_cleanup":       "DELETE FROM triggered_alerts WHERE triggered_at < $1",

		// Subscriptions
		"enabled_subscriptions": "SELECT subscriber_id, config FROM alert_subscriptions WHERE alert_type = $1 AND enabled = true ORDER BY subscriber_id",
		"device_subscriptions":  "SELECT device_id, push_token FROM device_subscriptions WHERE alert_type = $1 ORDER BY device_id",

		// Delivery endpoints
		"webpush_endpoints": "SELECT endpoint, p256dh, auth FROM webpush_endpoints WHERE subscriber_id = $1",
		"subscriber_tokens": "SELECT token FROM subscriber_tokens WHERE subscriber_id = $1 AND is_active = true",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
