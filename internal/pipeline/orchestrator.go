// Package pipeline implements the scheduled detection→match→dedup→dispatch
// run over the four civic data domains.
//
// The four domain pipelines are mutually independent and run concurrently,
// each behind its own failure boundary: a panic or error inside one domain
// costs that domain its counts for the run, never its siblings. Within one
// domain the per-identity loop is strictly sequential so ledger reads and
// writes never race without a distributed lock.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/cache"
	"github.com/albapepper/siouxland-alerts/internal/dispatch"
	"github.com/albapepper/siouxland-alerts/internal/domain"
	"github.com/albapepper/siouxland-alerts/internal/observability"
)

// --------------------------------------------------------------------------
// Collaborator interfaces — every external dependency is injected so the
// pipeline runs against fixtures in tests.
// --------------------------------------------------------------------------

// WeatherFetcher reads the current weather snapshot.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (*domain.WeatherReading, error)
}

// RiverFetcher reads the current gauge observation.
type RiverFetcher interface {
	Fetch(ctx context.Context) (*domain.RiverReading, error)
}

// AirQualityFetcher reads the current AQI observation.
type AirQualityFetcher interface {
	Fetch(ctx context.Context) (*domain.AirQualityReading, error)
}

// TrafficFetcher reads the active incident list.
type TrafficFetcher interface {
	Fetch(ctx context.Context) ([]domain.TrafficIncident, error)
}

// SubscriptionSource exposes enabled subscriptions and device registrations.
type SubscriptionSource interface {
	EnabledSubscriptions(ctx context.Context, alertType domain.AlertType) ([]domain.Subscription, error)
	DeviceSubscriptions(ctx context.Context, alertType domain.AlertType) ([]domain.DeviceSubscription, error)
}

// Ledger is the at-most-once delivery guard.
type Ledger interface {
	HasBeenTriggered(ctx context.Context, identity string, alertType domain.AlertType, sourceID string) (bool, error)
	RecordTriggered(ctx context.Context, identity string, alertType domain.AlertType, sourceID string, snapshot []byte) error
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sender fans payloads out across delivery channels.
type Sender interface {
	SendToUser(ctx context.Context, subscriberID string, p domain.Payload) dispatch.Result
	SendToTokens(ctx context.Context, tokens []string, p domain.Payload) dispatch.Result
}

// SnapshotStore receives the latest per-domain status after classification.
type SnapshotStore interface {
	Store(ctx context.Context, alertType domain.AlertType, snap cache.Snapshot) error
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// DomainResult aggregates one domain's pass.
type DomainResult struct {
	Checked  int `json:"checked"`
	Matched  int `json:"matched"`
	Notified int `json:"notified"`
}

// RunResult is the outcome of one orchestrator invocation. CleanupErr is the
// only error a completed run can carry; domain failures are absorbed as
// all-zero counts.
type RunResult struct {
	Results    map[domain.AlertType]DomainResult
	CleanedUp  int64
	CleanupErr error
}

// --------------------------------------------------------------------------
// Orchestrator
// --------------------------------------------------------------------------

// Orchestrator wires the fetchers, stores, ledger, and dispatcher into the
// four domain pipelines.
type Orchestrator struct {
	weather WeatherFetcher
	river   RiverFetcher
	air     AirQualityFetcher
	traffic TrafficFetcher

	subs      SubscriptionSource
	ledger    Ledger
	sender    Sender
	snapshots SnapshotStore

	retention time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Weather WeatherFetcher
	River   RiverFetcher
	Air     AirQualityFetcher
	Traffic TrafficFetcher

	Subs      SubscriptionSource
	Ledger    Ledger
	Sender    Sender
	Snapshots SnapshotStore
}

// New creates an orchestrator. retention bounds the ledger cleanup.
func New(deps Deps, retention time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		weather:   deps.Weather,
		river:     deps.River,
		air:       deps.Air,
		traffic:   deps.Traffic,
		subs:      deps.Subs,
		ledger:    deps.Ledger,
		sender:    deps.Sender,
		snapshots: deps.Snapshots,
		retention: retention,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes one full pass: the four domain pipelines concurrently, then a
// single ledger cleanup. It always returns a complete result; the only error
// it surfaces is a cleanup failure.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	start := time.Now()
	o.metrics.RunsTotal.Inc()

	result := RunResult{Results: make(map[domain.AlertType]DomainResult, len(domain.AlertTypes))}

	domains := map[domain.AlertType]func(context.Context) DomainResult{
		domain.AlertTypeWeather:    o.runWeather,
		domain.AlertTypeRiver:      o.runRiver,
		domain.AlertTypeAirQuality: o.runAirQuality,
		domain.AlertTypeTraffic:    o.runTraffic,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for alertType, run := range domains {
		wg.Add(1)
		go func(alertType domain.AlertType, run func(context.Context) DomainResult) {
			defer wg.Done()
			dr := o.runIsolated(ctx, alertType, run)

			mu.Lock()
			result.Results[alertType] = dr
			mu.Unlock()

			o.metrics.CandidatesChecked.WithLabelValues(string(alertType)).Add(float64(dr.Checked))
			o.metrics.CandidatesMatched.WithLabelValues(string(alertType)).Add(float64(dr.Matched))
			o.metrics.IdentitiesNotified.WithLabelValues(string(alertType)).Add(float64(dr.Notified))
		}(alertType, run)
	}
	wg.Wait()

	// Cleanup runs once per invocation regardless of domain outcomes. Its
	// failure is surfaced to the caller but never aborts the run.
	deleted, err := o.ledger.Cleanup(ctx, o.retention)
	if err != nil {
		o.logger.Warn("ledger cleanup failed", "error", err)
		o.metrics.CleanupFailures.Inc()
		result.CleanupErr = err
	} else {
		result.CleanedUp = deleted
		o.metrics.LedgerCleanupDeleted.Add(float64(deleted))
	}

	o.metrics.RunDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("pipeline run complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"cleaned_up", result.CleanedUp)
	return result
}

// runIsolated is the per-domain failure boundary: a panic inside one domain
// pipeline is logged and becomes an all-zero result.
func (o *Orchestrator) runIsolated(ctx context.Context, alertType domain.AlertType, run func(context.Context) DomainResult) (dr DomainResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("domain pipeline panicked", "domain", alertType, "panic", r)
			dr = DomainResult{}
		}
	}()
	return run(ctx)
}

// --------------------------------------------------------------------------
// Shared delivery steps
// --------------------------------------------------------------------------

// deliverToSubscriber runs the authenticated path for one candidate:
// ledger check → send → record after a successful send, so a transient send
// failure is retried on the next run. Returns 1 when the identity was
// notified.
func (o *Orchestrator) deliverToSubscriber(ctx context.Context, alertType domain.AlertType, subscriberID, sourceID string, p domain.Payload) int {
	triggered, err := o.ledger.HasBeenTriggered(ctx, subscriberID, alertType, sourceID)
	if err != nil {
		// Conservative: a failed check reads as "possibly already notified".
		o.logger.Warn("ledger check failed, suppressing candidate",
			"domain", alertType, "subscriber", subscriberID, "source_id", sourceID, "error", err)
		return 0
	}
	if triggered {
		o.metrics.LedgerSkips.WithLabelValues(string(alertType)).Inc()
		return 0
	}

	result := o.sender.SendToUser(ctx, subscriberID, p)
	if result.Sent == 0 {
		return 0
	}

	if err := o.ledger.RecordTriggered(ctx, subscriberID, alertType, sourceID, p.Snapshot()); err != nil {
		o.logger.Warn("ledger record failed after send",
			"domain", alertType, "subscriber", subscriberID, "source_id", sourceID, "error", err)
	}
	return 1
}

// deliverToDevices runs the anonymous path for one occurrence: every
// eligible device is recorded in the ledger *before* dispatch, closing the
// race where an overlapping run would double-send across many tokens. A
// device whose pre-record fails is dropped from the batch (suppress, never
// duplicate). Returns candidates checked, matched, and tokens accepted.
func (o *Orchestrator) deliverToDevices(ctx context.Context, alertType domain.AlertType, devices []domain.DeviceSubscription, sourceID string, p domain.Payload, eligible func(domain.DeviceSubscription) bool) (checked, matched, notified int) {
	var tokens []string
	for _, d := range devices {
		checked++
		if !eligible(d) {
			continue
		}
		matched++

		triggered, err := o.ledger.HasBeenTriggered(ctx, d.DeviceID, alertType, sourceID)
		if err != nil {
			o.logger.Warn("ledger check failed, suppressing device",
				"domain", alertType, "device", d.DeviceID, "source_id", sourceID, "error", err)
			continue
		}
		if triggered {
			o.metrics.LedgerSkips.WithLabelValues(string(alertType)).Inc()
			continue
		}

		if err := o.ledger.RecordTriggered(ctx, d.DeviceID, alertType, sourceID, p.Snapshot()); err != nil {
			o.logger.Warn("ledger pre-record failed, suppressing device",
				"domain", alertType, "device", d.DeviceID, "source_id", sourceID, "error", err)
			continue
		}
		tokens = append(tokens, d.PushToken)
	}

	if len(tokens) > 0 {
		notified = o.sender.SendToTokens(ctx, tokens, p).Sent
	}
	return checked, matched, notified
}

// storeSnapshot caches the domain's overall status for the status endpoint.
// Cache failures are cosmetic and only logged.
func (o *Orchestrator) storeSnapshot(ctx context.Context, alertType domain.AlertType, anomalies []domain.Anomaly) {
	snap := cache.Snapshot{
		Status:    domain.OverallStatus(anomalies),
		UpdatedAt: time.Now().UTC(),
	}
	if len(anomalies) > 0 {
		snap.Summary = anomalies[0].Message
	}
	if err := o.snapshots.Store(ctx, alertType, snap); err != nil {
		o.logger.Warn("snapshot store failed", "domain", alertType, "error", err)
	}
}

// loadAudience fetches the subscriptions and device registrations for a
// domain. Lookup failures log and read as empty: the run proceeds without
// that audience rather than failing the domain.
func (o *Orchestrator) loadAudience(ctx context.Context, alertType domain.AlertType) ([]domain.Subscription, []domain.DeviceSubscription) {
	subscriptions, err := o.subs.EnabledSubscriptions(ctx, alertType)
	if err != nil {
		o.logger.Warn("subscription lookup failed", "domain", alertType, "error", err)
	}
	devices, err := o.subs.DeviceSubscriptions(ctx, alertType)
	if err != nil {
		o.logger.Warn("device lookup failed", "domain", alertType, "error", err)
	}
	return subscriptions, devices
}
