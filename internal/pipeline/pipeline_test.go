package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/siouxland-alerts/internal/cache"
	"github.com/albapepper/siouxland-alerts/internal/dispatch"
	"github.com/albapepper/siouxland-alerts/internal/domain"
	"github.com/albapepper/siouxland-alerts/internal/observability"
)

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

type fakeWeather struct {
	reading *domain.WeatherReading
	err     error
}

func (f *fakeWeather) Fetch(context.Context) (*domain.WeatherReading, error) {
	return f.reading, f.err
}

type fakeRiver struct {
	reading *domain.RiverReading
	err     error
}

func (f *fakeRiver) Fetch(context.Context) (*domain.RiverReading, error) {
	return f.reading, f.err
}

type fakeAir struct {
	reading *domain.AirQualityReading
	err     error
}

func (f *fakeAir) Fetch(context.Context) (*domain.AirQualityReading, error) {
	return f.reading, f.err
}

type fakeTraffic struct {
	incidents []domain.TrafficIncident
	err       error
}

func (f *fakeTraffic) Fetch(context.Context) ([]domain.TrafficIncident, error) {
	return f.incidents, f.err
}

type fakeSubs struct {
	subscriptions []domain.Subscription
	devices       []domain.DeviceSubscription
}

func (f *fakeSubs) EnabledSubscriptions(_ context.Context, t domain.AlertType) ([]domain.Subscription, error) {
	var out []domain.Subscription
	for _, s := range f.subscriptions {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeviceSubscriptions(_ context.Context, t domain.AlertType) ([]domain.DeviceSubscription, error) {
	var out []domain.DeviceSubscription
	for _, d := range f.devices {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out, nil
}

type ledgerKey struct {
	identity  string
	alertType domain.AlertType
	sourceID  string
}

// fakeLedger is an in-memory ledger with switchable failure modes.
type fakeLedger struct {
	mu         sync.Mutex
	rows       map[ledgerKey]bool
	checkErr   error
	recordErr  error
	cleanupErr error
	cleaned    int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[ledgerKey]bool)}
}

func (f *fakeLedger) HasBeenTriggered(_ context.Context, identity string, t domain.AlertType, sourceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.rows[ledgerKey{identity, t, sourceID}], nil
}

func (f *fakeLedger) RecordTriggered(_ context.Context, identity string, t domain.AlertType, sourceID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.rows[ledgerKey{identity, t, sourceID}] = true
	return nil
}

func (f *fakeLedger) Cleanup(context.Context, time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleaned, f.cleanupErr
}

func (f *fakeLedger) has(identity string, t domain.AlertType, sourceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[ledgerKey{identity, t, sourceID}]
}

// fakeSender accepts everything for subscribers and a configurable count of
// device tokens.
type fakeSender struct {
	mu          sync.Mutex
	userSends   []string
	tokenSends  [][]string
	acceptCount int // -1 means accept all tokens
}

func (f *fakeSender) SendToUser(_ context.Context, subscriberID string, _ domain.Payload) dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userSends = append(f.userSends, subscriberID)
	return dispatch.Result{Sent: 1}
}

func (f *fakeSender) SendToTokens(_ context.Context, tokens []string, _ domain.Payload) dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenSends = append(f.tokenSends, tokens)
	if f.acceptCount >= 0 && f.acceptCount < len(tokens) {
		return dispatch.Result{Sent: f.acceptCount}
	}
	return dispatch.Result{Sent: len(tokens)}
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps map[domain.AlertType]cache.Snapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snaps: make(map[domain.AlertType]cache.Snapshot)}
}

func (f *fakeSnapshots) Store(_ context.Context, t domain.AlertType, s cache.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[t] = s
	return nil
}

func (f *fakeSnapshots) get(t domain.AlertType) (cache.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[t]
	return s, ok
}

// --------------------------------------------------------------------------
// Harness
// --------------------------------------------------------------------------

type harness struct {
	weather   *fakeWeather
	river     *fakeRiver
	air       *fakeAir
	traffic   *fakeTraffic
	subs      *fakeSubs
	ledger    *fakeLedger
	sender    *fakeSender
	snapshots *fakeSnapshots
	orch      *Orchestrator
}

func quietReadings() (*domain.WeatherReading, *domain.RiverReading, *domain.AirQualityReading) {
	temp := 75.0
	return &domain.WeatherReading{ObservedAt: time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC), TemperatureF: &temp},
		&domain.RiverReading{SiteID: "SUXI4", SiteName: "Big Sioux River", StageFt: 8.0, FloodStage: domain.FloodStageNormal, ObservedAt: time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)},
		&domain.AirQualityReading{AQI: 42, Category: "Good", Pollutant: "O3", ReportedAt: time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)}
}

func newHarness() *harness {
	w, r, a := quietReadings()
	h := &harness{
		weather:   &fakeWeather{reading: w},
		river:     &fakeRiver{reading: r},
		air:       &fakeAir{reading: a},
		traffic:   &fakeTraffic{},
		subs:      &fakeSubs{},
		ledger:    newFakeLedger(),
		sender:    &fakeSender{acceptCount: -1},
		snapshots: newFakeSnapshots(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.orch = New(Deps{
		Weather:   h.weather,
		River:     h.river,
		Air:       h.air,
		Traffic:   h.traffic,
		Subs:      h.subs,
		Ledger:    h.ledger,
		Sender:    h.sender,
		Snapshots: h.snapshots,
	}, 30*24*time.Hour, logger, observability.NewMetricsForTesting())
	return h
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRun_QuietDay(t *testing.T) {
	h := newHarness()
	result := h.orch.Run(context.Background())

	require.Len(t, result.Results, 4)
	for alertType, dr := range result.Results {
		assert.Zero(t, dr.Checked, "domain %s", alertType)
		assert.Zero(t, dr.Notified, "domain %s", alertType)
	}

	snap, ok := h.snapshots.get(domain.AlertTypeWeather)
	require.True(t, ok)
	assert.Equal(t, domain.StatusNormal, snap.Status)
}

func TestRun_AirQuality_SubscriberNotifiedOnceAcrossRuns(t *testing.T) {
	h := newHarness()
	h.air.reading = &domain.AirQualityReading{AQI: 160, Category: "Unhealthy", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.subs.subscriptions = []domain.Subscription{{
		SubscriberID: "user-1",
		Type:         domain.AlertTypeAirQuality,
		Enabled:      true,
		AirQuality:   &domain.AirQualityConfig{MinAQI: 101},
	}}

	first := h.orch.Run(context.Background())
	dr := first.Results[domain.AlertTypeAirQuality]
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 1}, dr)
	assert.True(t, h.ledger.has("user-1", domain.AlertTypeAirQuality, "aqi:2026-08-29"))

	// Same reading on the next run: matched again, ledger suppresses.
	second := h.orch.Run(context.Background())
	dr = second.Results[domain.AlertTypeAirQuality]
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 0}, dr)
	assert.Len(t, h.sender.userSends, 1)
}

func TestRun_AirQuality_SubscriberFloorRespected(t *testing.T) {
	h := newHarness()
	h.air.reading = &domain.AirQualityReading{AQI: 120, Category: "Unhealthy for Sensitive Groups", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.subs.subscriptions = []domain.Subscription{{
		SubscriberID: "picky",
		Type:         domain.AlertTypeAirQuality,
		Enabled:      true,
		AirQuality:   &domain.AirQualityConfig{MinAQI: 150},
	}}

	result := h.orch.Run(context.Background())
	dr := result.Results[domain.AlertTypeAirQuality]
	assert.Equal(t, DomainResult{Checked: 1, Matched: 0, Notified: 0}, dr)
	assert.Empty(t, h.sender.userSends)
}

func TestRun_AirQuality_DevicesRecordedBeforePartialAcceptance(t *testing.T) {
	h := newHarness()
	h.air.reading = &domain.AirQualityReading{AQI: 160, Category: "Unhealthy", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.subs.devices = []domain.DeviceSubscription{
		{DeviceID: "dev-1", Type: domain.AlertTypeAirQuality, PushToken: "tok-1"},
		{DeviceID: "dev-2", Type: domain.AlertTypeAirQuality, PushToken: "tok-2"},
		{DeviceID: "dev-3", Type: domain.AlertTypeAirQuality, PushToken: "tok-3"},
	}
	h.sender.acceptCount = 2

	result := h.orch.Run(context.Background())
	dr := result.Results[domain.AlertTypeAirQuality]
	assert.Equal(t, DomainResult{Checked: 3, Matched: 3, Notified: 2}, dr)

	// All three devices are in the ledger even though only two tickets were
	// accepted: the anonymous path records before dispatch.
	for _, id := range []string{"dev-1", "dev-2", "dev-3"} {
		assert.True(t, h.ledger.has(id, domain.AlertTypeAirQuality, "aqi:2026-08-29"), id)
	}

	// Nobody gets a second push for the same day.
	second := h.orch.Run(context.Background())
	assert.Equal(t, 0, second.Results[domain.AlertTypeAirQuality].Notified)
	require.Len(t, h.sender.tokenSends, 1)
}

func TestRun_AirQuality_DeviceFloorBelowThresholdStillDelivers(t *testing.T) {
	// AQI 120 is past the device floor (101) even though no anomaly-free
	// subscriber would necessarily want it.
	h := newHarness()
	h.air.reading = &domain.AirQualityReading{AQI: 120, Category: "Unhealthy for Sensitive Groups", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.subs.devices = []domain.DeviceSubscription{
		{DeviceID: "dev-1", Type: domain.AlertTypeAirQuality, PushToken: "tok-1"},
	}

	result := h.orch.Run(context.Background())
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 1}, result.Results[domain.AlertTypeAirQuality])
}

func TestRun_Weather_AlertsMatchBySeverityAndEvent(t *testing.T) {
	h := newHarness()
	temp := 80.0
	h.weather.reading = &domain.WeatherReading{
		ObservedAt:   time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC),
		TemperatureF: &temp,
		Alerts: []domain.WeatherAlert{
			{ID: "urn:nws:1", Event: "Severe Thunderstorm Warning", Severity: "Severe", Headline: "Storm inbound"},
		},
	}
	h.subs.subscriptions = []domain.Subscription{
		{
			SubscriberID: "storm-watcher",
			Type:         domain.AlertTypeWeather,
			Enabled:      true,
			Weather:      &domain.WeatherConfig{Severities: []string{"Severe", "Extreme"}},
		},
		{
			SubscriberID: "tornado-only",
			Type:         domain.AlertTypeWeather,
			Enabled:      true,
			Weather:      &domain.WeatherConfig{Severities: []string{"Severe", "Extreme"}, Events: []string{"Tornado Warning"}},
		},
	}

	result := h.orch.Run(context.Background())
	dr := result.Results[domain.AlertTypeWeather]
	assert.Equal(t, DomainResult{Checked: 2, Matched: 1, Notified: 1}, dr)
	assert.Equal(t, []string{"storm-watcher"}, h.sender.userSends)
}

func TestRun_River_ModerateStageNotifiesDevices(t *testing.T) {
	h := newHarness()
	h.river.reading = &domain.RiverReading{
		SiteID:     "SUXI4",
		SiteName:   "Big Sioux River",
		StageFt:    24.3,
		FloodStage: domain.FloodStageModerate,
		ObservedAt: time.Date(2026, time.June, 1, 12, 30, 0, 0, time.UTC),
	}
	h.subs.devices = []domain.DeviceSubscription{
		{DeviceID: "dev-1", Type: domain.AlertTypeRiver, PushToken: "tok-1"},
	}

	result := h.orch.Run(context.Background())
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 1}, result.Results[domain.AlertTypeRiver])

	snap, ok := h.snapshots.get(domain.AlertTypeRiver)
	require.True(t, ok)
	assert.Equal(t, domain.StatusAlert, snap.Status)
}

func TestRun_Traffic_DevicesBypassMatcher(t *testing.T) {
	h := newHarness()
	h.traffic.incidents = []domain.TrafficIncident{
		{ID: "IA-1", Severity: domain.IncidentMajor, Roadway: "I-29 NB", Description: "Crash"},
		{ID: "IA-2", Severity: domain.IncidentModerate, Roadway: "I-29 SB", Description: "Stall"},
	}
	h.subs.devices = []domain.DeviceSubscription{
		{DeviceID: "dev-1", Type: domain.AlertTypeTraffic, PushToken: "tok-1"},
	}

	result := h.orch.Run(context.Background())
	// Only IA-1 survives the notifiable filter; the moderate incident never
	// becomes a candidate.
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 1}, result.Results[domain.AlertTypeTraffic])
}

func TestRun_PartialFailure_OtherDomainsUnaffected(t *testing.T) {
	h := newHarness()
	h.weather.err = errors.New("nws timeout")
	h.air.reading = &domain.AirQualityReading{AQI: 160, Category: "Unhealthy", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.subs.subscriptions = []domain.Subscription{{
		SubscriberID: "user-1",
		Type:         domain.AlertTypeAirQuality,
		Enabled:      true,
		AirQuality:   &domain.AirQualityConfig{MinAQI: 101},
	}}

	result := h.orch.Run(context.Background())
	assert.Equal(t, DomainResult{}, result.Results[domain.AlertTypeWeather])
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 1}, result.Results[domain.AlertTypeAirQuality])
	assert.NoError(t, result.CleanupErr)
}

func TestRun_LedgerCheckFailureSuppresses(t *testing.T) {
	h := newHarness()
	h.air.reading = &domain.AirQualityReading{AQI: 160, Category: "Unhealthy", Pollutant: "PM2.5", ReportedAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC)}
	h.ledger.checkErr = errors.New("db down")
	h.subs.subscriptions = []domain.Subscription{{
		SubscriberID: "user-1",
		Type:         domain.AlertTypeAirQuality,
		Enabled:      true,
		AirQuality:   &domain.AirQualityConfig{MinAQI: 101},
	}}

	result := h.orch.Run(context.Background())
	dr := result.Results[domain.AlertTypeAirQuality]
	assert.Equal(t, DomainResult{Checked: 1, Matched: 1, Notified: 0}, dr)
	assert.Empty(t, h.sender.userSends)
}

func TestRun_CleanupFailureSurfacedNotFatal(t *testing.T) {
	h := newHarness()
	h.ledger.cleanupErr = errors.New("cleanup timeout")

	result := h.orch.Run(context.Background())
	require.Error(t, result.CleanupErr)
	assert.Len(t, result.Results, 4)
	assert.Zero(t, result.CleanedUp)
}

func TestRun_CleanupCountReported(t *testing.T) {
	h := newHarness()
	h.ledger.cleaned = 7

	result := h.orch.Run(context.Background())
	assert.NoError(t, result.CleanupErr)
	assert.EqualValues(t, 7, result.CleanedUp)
}
