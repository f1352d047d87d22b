package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// AirQualityClient reads current AQI observations from the AirNow API.
type AirQualityClient struct {
	baseURL    string
	apiKey     string
	zipCode    string
	httpClient *http.Client
}

// NewAirQualityClient creates an AirNow reader.
func NewAirQualityClient(baseURL, apiKey, zipCode string) *AirQualityClient {
	return &AirQualityClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		zipCode:    zipCode,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

type airNowObservation struct {
	DateObserved  string `json:"DateObserved"` // "2026-08-29 " (trailing space in the wild)
	ParameterName string `json:"ParameterName"`
	AQI           int    `json:"AQI"`
	Category      struct {
		Name string `json:"Name"`
	} `json:"Category"`
}

// Fetch returns the worst (highest AQI) current observation across the
// reported pollutants, or an error when AirNow reports nothing.
func (c *AirQualityClient) Fetch(ctx context.Context) (*domain.AirQualityReading, error) {
	q := url.Values{}
	q.Set("format", "application/json")
	q.Set("zipCode", c.zipCode)
	q.Set("API_KEY", c.apiKey)
	fetchURL := fmt.Sprintf("%s/aq/observation/zipCode/current/?%s", c.baseURL, q.Encode())

	var observations []airNowObservation
	if err := getJSON(ctx, c.httpClient, fetchURL, nil, &observations); err != nil {
		return nil, fmt.Errorf("airnow: %w", err)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("airnow: no observations for zip %s", c.zipCode)
	}

	worst := observations[0]
	for _, obs := range observations[1:] {
		if obs.AQI > worst.AQI {
			worst = obs
		}
	}

	reportedAt, err := time.Parse("2006-01-02", strings.TrimSpace(worst.DateObserved))
	if err != nil {
		reportedAt = time.Now().UTC()
	}

	return &domain.AirQualityReading{
		ReportedAt: reportedAt,
		AQI:        worst.AQI,
		Pollutant:  worst.ParameterName,
		Category:   worst.Category.Name,
	}, nil
}
