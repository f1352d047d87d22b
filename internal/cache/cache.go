// Package cache stores the latest per-domain snapshot (overall status plus a
// short summary) in Redis so the status endpoint can answer without touching
// the upstream feeds. Nil-safe: when Redis is not configured, all methods are
// no-ops and reads report unknown.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// Snapshot is the cached state for one domain.
type Snapshot struct {
	Status    domain.Status `json:"status"`
	Summary   string        `json:"summary,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshots is the Redis-backed snapshot store.
type Snapshots struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a snapshot store. Returns nil when addr is empty (cache
// disabled).
func New(addr, password string, db int, ttl time.Duration) *Snapshots {
	if addr == "" {
		return nil
	}
	return &Snapshots{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:    ttl,
	}
}

func statusKey(alertType domain.AlertType) string {
	return fmt.Sprintf("status:%s", alertType)
}

// Store writes the latest snapshot for one domain with the configured TTL.
func (s *Snapshots) Store(ctx context.Context, alertType domain.AlertType, snap Snapshot) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, statusKey(alertType), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// All returns the cached snapshot per domain. Domains with no cached value
// (expired, never written, or cache disabled) are absent from the map.
func (s *Snapshots) All(ctx context.Context) (map[domain.AlertType]Snapshot, error) {
	result := make(map[domain.AlertType]Snapshot, len(domain.AlertTypes))
	if s == nil {
		return result, nil
	}

	keys := make([]string, len(domain.AlertTypes))
	for i, t := range domain.AlertTypes {
		keys[i] = statusKey(t)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			continue
		}
		result[domain.AlertTypes[i]] = snap
	}
	return result, nil
}

// HealthCheck verifies Redis is reachable. Reports healthy when the cache is
// disabled.
func (s *Snapshots) HealthCheck(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Enabled reports whether a Redis backend is configured.
func (s *Snapshots) Enabled() bool { return s != nil }
