package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// WeatherClient reads current conditions and active alerts from the NWS API.
// The NWS requires an identifying User-Agent on every request.
type WeatherClient struct {
	baseURL    string
	zone       string // forecast zone for alerts, e.g. IAZ031
	station    string // observation station, e.g. KSUX
	userAgent  string
	httpClient *http.Client
}

// NewWeatherClient creates an NWS reader.
func NewWeatherClient(baseURL, zone, station, userAgent string) *WeatherClient {
	return &WeatherClient{
		baseURL:    baseURL,
		zone:       zone,
		station:    station,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// NWS API response shapes (only the fields we read).

type nwsObservation struct {
	Properties struct {
		Timestamp   time.Time `json:"timestamp"`
		Temperature struct {
			Value *float64 `json:"value"` // °C
		} `json:"temperature"`
		WindSpeed struct {
			Value *float64 `json:"value"` // km/h
		} `json:"windSpeed"`
		WindGust struct {
			Value *float64 `json:"value"` // km/h
		} `json:"windGust"`
	} `json:"properties"`
}

type nwsAlerts struct {
	Features []struct {
		Properties struct {
			ID       string    `json:"id"`
			Event    string    `json:"event"`
			Severity string    `json:"severity"`
			Headline string    `json:"headline"`
			Expires  time.Time `json:"expires"`
		} `json:"properties"`
	} `json:"features"`
}

// Fetch returns the current weather reading: latest station observation plus
// all active alerts for the forecast zone.
func (c *WeatherClient) Fetch(ctx context.Context) (*domain.WeatherReading, error) {
	headers := map[string]string{"User-Agent": c.userAgent}

	var obs nwsObservation
	obsURL := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, c.station)
	if err := getJSON(ctx, c.httpClient, obsURL, headers, &obs); err != nil {
		return nil, fmt.Errorf("nws observation: %w", err)
	}

	var alerts nwsAlerts
	alertsURL := fmt.Sprintf("%s/alerts/active/zone/%s", c.baseURL, c.zone)
	if err := getJSON(ctx, c.httpClient, alertsURL, headers, &alerts); err != nil {
		return nil, fmt.Errorf("nws alerts: %w", err)
	}

	reading := &domain.WeatherReading{
		ObservedAt:   obs.Properties.Timestamp,
		TemperatureF: celsiusToF(obs.Properties.Temperature.Value),
		WindSpeedMPH: kmhToMPH(obs.Properties.WindSpeed.Value),
		WindGustMPH:  kmhToMPH(obs.Properties.WindGust.Value),
	}
	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = time.Now().UTC()
	}

	for _, f := range alerts.Features {
		reading.Alerts = append(reading.Alerts, domain.WeatherAlert{
			ID:       f.Properties.ID,
			Event:    f.Properties.Event,
			Severity: f.Properties.Severity,
			Headline: f.Properties.Headline,
			Expires:  f.Properties.Expires,
		})
	}
	return reading, nil
}

func celsiusToF(c *float64) *float64 {
	if c == nil {
		return nil
	}
	f := *c*9/5 + 32
	return &f
}

func kmhToMPH(kmh *float64) float64 {
	if kmh == nil {
		return 0
	}
	return *kmh * 0.621371
}
