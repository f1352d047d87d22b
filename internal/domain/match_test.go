package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

func TestMatchWeather(t *testing.T) {
	alert := domain.WeatherAlert{ID: "a1", Event: "Tornado Warning", Severity: "Severe"}

	tests := []struct {
		name string
		cfg  *domain.WeatherConfig
		want bool
	}{
		{"nil config", nil, false},
		{"severity selected, no event filter", &domain.WeatherConfig{Severities: []string{"Extreme", "Severe"}}, true},
		{"severity not selected", &domain.WeatherConfig{Severities: []string{"Extreme"}}, false},
		{"event on list", &domain.WeatherConfig{Severities: []string{"Severe"}, Events: []string{"Tornado Warning"}}, true},
		{"event off list", &domain.WeatherConfig{Severities: []string{"Severe"}, Events: []string{"Flood Warning"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.MatchWeather(tt.cfg, alert))
		})
	}
}

func TestMatchRiver(t *testing.T) {
	moderate := domain.RiverReading{SiteID: "SUXI4", FloodStage: domain.FloodStageModerate}

	all := &domain.RiverConfig{Stages: []domain.FloodStage{
		domain.FloodStageMinor, domain.FloodStageModerate, domain.FloodStageMajor,
	}}
	majorOnly := &domain.RiverConfig{Stages: []domain.FloodStage{domain.FloodStageMajor}}

	assert.True(t, domain.MatchRiver(all, moderate))
	assert.False(t, domain.MatchRiver(majorOnly, moderate))
	assert.False(t, domain.MatchRiver(nil, moderate))
}

func TestMatchAirQuality(t *testing.T) {
	r := domain.AirQualityReading{AQI: 120}

	assert.True(t, domain.MatchAirQuality(&domain.AirQualityConfig{MinAQI: 101}, r))
	assert.True(t, domain.MatchAirQuality(&domain.AirQualityConfig{MinAQI: 120}, r))
	assert.False(t, domain.MatchAirQuality(&domain.AirQualityConfig{MinAQI: 121}, r))
	assert.False(t, domain.MatchAirQuality(nil, r))
}

func TestMatchTraffic(t *testing.T) {
	inc := domain.TrafficIncident{ID: "i1", Severity: domain.IncidentMajor, Roadway: "I-29"}

	assert.True(t, domain.MatchTraffic(&domain.TrafficConfig{
		Severities: []domain.IncidentSeverity{domain.IncidentMajor, domain.IncidentCritical},
	}, inc))
	assert.False(t, domain.MatchTraffic(&domain.TrafficConfig{
		Severities: []domain.IncidentSeverity{domain.IncidentCritical},
	}, inc))
	assert.False(t, domain.MatchTraffic(nil, inc))
}
