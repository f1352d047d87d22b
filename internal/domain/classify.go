package domain

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Classification thresholds
// --------------------------------------------------------------------------

const (
	// Degrees outside the seasonal band before temperature is anomalous.
	tempBandMarginF = 10.0

	windAttentionMPH = 25.0
	windAlertMPH     = 40.0

	aqiAttentionThreshold = 100
	aqiAlertThreshold     = 150
)

// seasonalBand is the typical high/low range for the Siouxland area by
// calendar month, °F. Source: NWS Sioux City climate normals, rounded.
type seasonalBand struct {
	LowF  float64
	HighF float64
}

var seasonalBands = map[time.Month]seasonalBand{
	time.January:   {11, 31},
	time.February:  {16, 36},
	time.March:     {27, 49},
	time.April:     {39, 63},
	time.May:       {51, 74},
	time.June:      {61, 84},
	time.July:      {66, 88},
	time.August:    {63, 86},
	time.September: {53, 79},
	time.October:   {40, 65},
	time.November:  {27, 48},
	time.December:  {15, 33},
}

// arterialRoadways is the fixed allow-list of corridors that traffic
// incidents must touch before they are worth announcing.
var arterialRoadways = []string{"I-29", "I-129", "US-20"}

// --------------------------------------------------------------------------
// Per-domain classifiers — pure, total, never panic. A nil reading yields an
// empty anomaly list.
// --------------------------------------------------------------------------

// ClassifyWeather maps a weather reading to anomalies: temperature far
// outside the month's seasonal band, sustained wind, and each active alert.
func ClassifyWeather(r *WeatherReading) []Anomaly {
	if r == nil {
		return nil
	}

	var anomalies []Anomaly

	if band, ok := seasonalBands[r.ObservedAt.Month()]; ok && r.TemperatureF != nil {
		temp := *r.TemperatureF
		if temp > band.HighF+tempBandMarginF {
			anomalies = append(anomalies, Anomaly{
				Domain:   AlertTypeWeather,
				Severity: SeverityAttention,
				Message:  fmt.Sprintf("Temperature %.0f°F is well above the seasonal range (%.0f–%.0f°F)", temp, band.LowF, band.HighF),
			})
		} else if temp < band.LowF-tempBandMarginF {
			anomalies = append(anomalies, Anomaly{
				Domain:   AlertTypeWeather,
				Severity: SeverityAttention,
				Message:  fmt.Sprintf("Temperature %.0f°F is well below the seasonal range (%.0f–%.0f°F)", temp, band.LowF, band.HighF),
			})
		}
	}

	if r.WindSpeedMPH > windAttentionMPH {
		severity := SeverityAttention
		if r.WindSpeedMPH > windAlertMPH {
			severity = SeverityAlert
		}
		msg := fmt.Sprintf("Sustained wind %.0f mph", r.WindSpeedMPH)
		if r.WindGustMPH > 0 {
			msg += fmt.Sprintf(", gusting to %.0f mph", r.WindGustMPH)
		}
		anomalies = append(anomalies, Anomaly{Domain: AlertTypeWeather, Severity: severity, Message: msg})
	}

	for _, alert := range r.Alerts {
		anomalies = append(anomalies, Anomaly{
			Domain:   AlertTypeWeather,
			Severity: weatherAlertSeverity(alert),
			Message:  alert.Event,
		})
	}

	return anomalies
}

// weatherAlertSeverity maps NWS alert severity onto the anomaly scale.
func weatherAlertSeverity(a WeatherAlert) Severity {
	switch a.Severity {
	case "Extreme", "Severe":
		return SeverityAlert
	default:
		return SeverityAttention
	}
}

// ClassifyRiver maps a gauge reading to at most one anomaly based on its
// flood stage. Normal stage produces none.
func ClassifyRiver(r *RiverReading) []Anomaly {
	if r == nil {
		return nil
	}

	var severity Severity
	switch r.FloodStage {
	case FloodStageMajor, FloodStageModerate:
		severity = SeverityAlert
	case FloodStageMinor, FloodStageAction:
		severity = SeverityAttention
	default:
		return nil
	}

	return []Anomaly{{
		Domain:   AlertTypeRiver,
		Severity: severity,
		Message:  fmt.Sprintf("%s at %.1f ft (%s stage)", r.SiteName, r.StageFt, r.FloodStage),
	}}
}

// ClassifyAirQuality maps an AQI reading to at most one anomaly.
func ClassifyAirQuality(r *AirQualityReading) []Anomaly {
	if r == nil {
		return nil
	}

	var severity Severity
	switch {
	case r.AQI > aqiAlertThreshold:
		severity = SeverityAlert
	case r.AQI > aqiAttentionThreshold:
		severity = SeverityAttention
	default:
		return nil
	}

	return []Anomaly{{
		Domain:   AlertTypeAirQuality,
		Severity: severity,
		Message:  fmt.Sprintf("AQI %d (%s, %s)", r.AQI, r.Category, r.Pollutant),
	}}
}

// ClassifyTraffic maps incidents to anomalies. Only major/critical incidents
// touching an arterial corridor qualify; everything else is noise.
func ClassifyTraffic(incidents []TrafficIncident) []Anomaly {
	var anomalies []Anomaly
	for _, inc := range incidents {
		if !IsNotifiableIncident(inc) {
			continue
		}
		severity := SeverityAttention
		if inc.Severity == IncidentCritical {
			severity = SeverityAlert
		}
		anomalies = append(anomalies, Anomaly{
			Domain:   AlertTypeTraffic,
			Severity: severity,
			Message:  fmt.Sprintf("%s: %s", inc.Roadway, inc.Description),
		})
	}
	return anomalies
}

// IsNotifiableIncident reports whether an incident clears both the severity
// floor (major/critical) and the arterial allow-list.
func IsNotifiableIncident(inc TrafficIncident) bool {
	if inc.Severity != IncidentMajor && inc.Severity != IncidentCritical {
		return false
	}
	return onArterial(inc.Roadway)
}

func onArterial(roadway string) bool {
	for _, name := range arterialRoadways {
		if strings.Contains(roadway, name) {
			return true
		}
	}
	return false
}
