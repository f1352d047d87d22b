package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// TrafficClient reads active incidents from the Iowa 511 event feed.
type TrafficClient struct {
	feedURL    string
	httpClient *http.Client
}

// NewTrafficClient creates a 511 feed reader.
func NewTrafficClient(feedURL string) *TrafficClient {
	return &TrafficClient{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

type trafficEvent struct {
	ID          string    `json:"id"`
	Severity    string    `json:"severity"` // "Minor" | "Moderate" | "Major" | "Critical"
	RoadwayName string    `json:"roadwayName"`
	Headline    string    `json:"headline"`
	Updated     time.Time `json:"updated"`
}

// Fetch returns all active incidents, normalized. Severity values the feed
// invents beyond the known four are kept lowercase so the classifier's
// allow-list logic treats them as below threshold.
func (c *TrafficClient) Fetch(ctx context.Context) ([]domain.TrafficIncident, error) {
	var events []trafficEvent
	if err := getJSON(ctx, c.httpClient, c.feedURL, nil, &events); err != nil {
		return nil, fmt.Errorf("511 feed: %w", err)
	}

	incidents := make([]domain.TrafficIncident, 0, len(events))
	for _, e := range events {
		incidents = append(incidents, domain.TrafficIncident{
			ID:          e.ID,
			Severity:    domain.IncidentSeverity(strings.ToLower(e.Severity)),
			Roadway:     e.RoadwayName,
			Description: e.Headline,
			UpdatedAt:   e.Updated,
		})
	}
	return incidents, nil
}
