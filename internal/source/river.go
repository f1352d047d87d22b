package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// RiverClient reads a single gauge from the NOAA National Water Prediction
// Service API.
type RiverClient struct {
	baseURL    string
	gaugeID    string // NWS location id, e.g. SUXI4
	httpClient *http.Client
}

// NewRiverClient creates an NWPS gauge reader.
func NewRiverClient(baseURL, gaugeID string) *RiverClient {
	return &RiverClient{
		baseURL:    baseURL,
		gaugeID:    gaugeID,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

type nwpsGauge struct {
	Name   string `json:"name"`
	Status struct {
		Observed struct {
			Primary       float64   `json:"primary"` // stage, ft
			ValidTime     time.Time `json:"validTime"`
			FloodCategory string    `json:"floodCategory"`
		} `json:"observed"`
	} `json:"status"`
}

// Fetch returns the latest observation for the gauge.
func (c *RiverClient) Fetch(ctx context.Context) (*domain.RiverReading, error) {
	var gauge nwpsGauge
	url := fmt.Sprintf("%s/gauges/%s", c.baseURL, c.gaugeID)
	if err := getJSON(ctx, c.httpClient, url, nil, &gauge); err != nil {
		return nil, fmt.Errorf("nwps gauge: %w", err)
	}

	observed := gauge.Status.Observed
	reading := &domain.RiverReading{
		SiteID:     c.gaugeID,
		SiteName:   gauge.Name,
		ObservedAt: observed.ValidTime,
		StageFt:    observed.Primary,
		FloodStage: floodStageFromCategory(observed.FloodCategory),
	}
	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = time.Now().UTC()
	}
	return reading, nil
}

// floodStageFromCategory maps NWPS flood categories onto the domain scale.
// Unknown categories read as normal: a gauge without defined flood thresholds
// should stay silent rather than guess.
func floodStageFromCategory(category string) domain.FloodStage {
	switch category {
	case "action":
		return domain.FloodStageAction
	case "minor":
		return domain.FloodStageMinor
	case "moderate":
		return domain.FloodStageModerate
	case "major":
		return domain.FloodStageMajor
	default: // "no_flooding", "not_defined", ""
		return domain.FloodStageNormal
	}
}
