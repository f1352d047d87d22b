// Package subs reads subscriber and device registrations. Subscription CRUD
// lives in the settings service; this service only consumes enabled rows.
package subs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// Store reads subscription and delivery-endpoint rows from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a subscription store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnabledSubscriptions returns enabled subscriptions for one alert type with
// their config decoded into the matching typed shape. Rows whose config fails
// to decode are skipped rather than failing the whole run.
func (s *Store) EnabledSubscriptions(ctx context.Context, alertType domain.AlertType) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, "enabled_subscriptions", string(alertType))
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []domain.Subscription
	for rows.Next() {
		var subscriberID string
		var raw []byte
		if err := rows.Scan(&subscriberID, &raw); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}

		sub, err := decodeSubscription(subscriberID, alertType, raw)
		if err != nil {
			continue
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, rows.Err()
}

// DeviceSubscriptions returns anonymous device registrations for one alert type.
func (s *Store) DeviceSubscriptions(ctx context.Context, alertType domain.AlertType) ([]domain.DeviceSubscription, error) {
	rows, err := s.pool.Query(ctx, "device_subscriptions", string(alertType))
	if err != nil {
		return nil, fmt.Errorf("query device subscriptions: %w", err)
	}
	defer rows.Close()

	var devices []domain.DeviceSubscription
	for rows.Next() {
		d := domain.DeviceSubscription{Type: alertType}
		if err := rows.Scan(&d.DeviceID, &d.PushToken); err != nil {
			return nil, fmt.Errorf("scan device subscription: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// WebPushEndpoints returns the web push endpoints registered by a subscriber.
func (s *Store) WebPushEndpoints(ctx context.Context, subscriberID string) ([]domain.WebPushEndpoint, error) {
	rows, err := s.pool.Query(ctx, "webpush_endpoints", subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query webpush endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.WebPushEndpoint
	for rows.Next() {
		var ep domain.WebPushEndpoint
		if err := rows.Scan(&ep.Endpoint, &ep.P256dh, &ep.Auth); err != nil {
			return nil, fmt.Errorf("scan webpush endpoint: %w", err)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

// MobileTokens returns the active mobile push tokens for a subscriber.
func (s *Store) MobileTokens(ctx context.Context, subscriberID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "subscriber_tokens", subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscriber tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// decodeSubscription unmarshals the JSONB config into the typed field that
// matches the alert type.
func decodeSubscription(subscriberID string, alertType domain.AlertType, raw []byte) (domain.Subscription, error) {
	sub := domain.Subscription{SubscriberID: subscriberID, Type: alertType, Enabled: true}

	switch alertType {
	case domain.AlertTypeWeather:
		cfg := &domain.WeatherConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return sub, fmt.Errorf("decode weather config: %w", err)
		}
		sub.Weather = cfg
	case domain.AlertTypeRiver:
		cfg := &domain.RiverConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return sub, fmt.Errorf("decode river config: %w", err)
		}
		sub.River = cfg
	case domain.AlertTypeAirQuality:
		cfg := &domain.AirQualityConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return sub, fmt.Errorf("decode air quality config: %w", err)
		}
		sub.AirQuality = cfg
	case domain.AlertTypeTraffic:
		cfg := &domain.TrafficConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return sub, fmt.Errorf("decode traffic config: %w", err)
		}
		sub.Traffic = cfg
	default:
		return sub, fmt.Errorf("unknown alert type %q", alertType)
	}

	return sub, nil
}
