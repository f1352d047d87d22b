// Package domain holds the reading, anomaly, and subscription types shared by
// the fetch, classification, matching, and dispatch layers, plus the pure
// classification and matching rules themselves. Nothing in this package does
// I/O.
package domain

import (
	"fmt"
	"time"
)

// AlertType identifies one of the four monitored domains.
type AlertType string

const (
	AlertTypeWeather    AlertType = "weather"
	AlertTypeRiver      AlertType = "river"
	AlertTypeAirQuality AlertType = "air_quality"
	AlertTypeTraffic    AlertType = "traffic"
)

// AlertTypes lists every domain in a stable order.
var AlertTypes = []AlertType{
	AlertTypeWeather,
	AlertTypeRiver,
	AlertTypeAirQuality,
	AlertTypeTraffic,
}

// --------------------------------------------------------------------------
// Weather
// --------------------------------------------------------------------------

// WeatherAlert is one active NWS alert for the forecast zone.
type WeatherAlert struct {
	ID       string    // NWS alert identifier
	Event    string    // "Tornado Warning", "Winter Storm Watch", …
	Severity string    // NWS severity: Extreme, Severe, Moderate, Minor, Unknown
	Headline string
	Expires  time.Time
}

// SourceID returns the dedup discriminator for this alert.
func (a WeatherAlert) SourceID() string { return a.ID }

// WeatherReading is a snapshot of current conditions plus active alerts.
// TemperatureF is nil when the station reported no temperature; a missing
// observation must never classify as an anomaly.
type WeatherReading struct {
	ObservedAt   time.Time
	TemperatureF *float64
	WindSpeedMPH float64
	WindGustMPH  float64 // 0 when no gust was reported
	Alerts       []WeatherAlert
}

// --------------------------------------------------------------------------
// River
// --------------------------------------------------------------------------

// FloodStage is the NWPS flood categorization for a gauge observation.
type FloodStage string

const (
	FloodStageNormal   FloodStage = "normal"
	FloodStageAction   FloodStage = "action"
	FloodStageMinor    FloodStage = "minor"
	FloodStageModerate FloodStage = "moderate"
	FloodStageMajor    FloodStage = "major"
)

// RiverReading is one gauge observation.
type RiverReading struct {
	SiteID     string // NWPS gauge identifier, e.g. "SUXI4"
	SiteName   string
	ObservedAt time.Time
	StageFt    float64
	FloodStage FloodStage
}

// SourceID keys dedup by gauge and calendar day, so a stage that persists
// across many runs in one day announces once, and a multi-day event
// re-announces daily.
func (r RiverReading) SourceID() string {
	return fmt.Sprintf("%s:%s", r.SiteID, r.ObservedAt.UTC().Format("2006-01-02"))
}

// --------------------------------------------------------------------------
// Air quality
// --------------------------------------------------------------------------

// AirQualityReading is the worst current AQI observation for the area.
type AirQualityReading struct {
	ReportedAt time.Time
	AQI        int
	Pollutant  string // "PM2.5", "O3", …
	Category   string // AirNow category name
}

// SourceID keys dedup by observation date.
func (r AirQualityReading) SourceID() string {
	return fmt.Sprintf("aqi:%s", r.ReportedAt.UTC().Format("2006-01-02"))
}

// --------------------------------------------------------------------------
// Traffic
// --------------------------------------------------------------------------

// IncidentSeverity is the 511 incident severity scale.
type IncidentSeverity string

const (
	IncidentMinor    IncidentSeverity = "minor"
	IncidentModerate IncidentSeverity = "moderate"
	IncidentMajor    IncidentSeverity = "major"
	IncidentCritical IncidentSeverity = "critical"
)

// TrafficIncident is one active incident from the 511 feed.
type TrafficIncident struct {
	ID          string
	Severity    IncidentSeverity
	Roadway     string // "I-29 NB", "US-20 near Moville", …
	Description string
	UpdatedAt   time.Time
}

// SourceID returns the dedup discriminator for this incident.
func (i TrafficIncident) SourceID() string { return i.ID }
