package domain

// --------------------------------------------------------------------------
// Subscription configuration — one concrete config type per alert type so
// the matcher can be exhaustive without runtime shape checks.
// --------------------------------------------------------------------------

// WeatherConfig selects NWS alerts by severity, optionally narrowed to
// specific event names.
type WeatherConfig struct {
	Severities []string `json:"severities"`
	Events     []string `json:"events,omitempty"`
}

// RiverConfig selects flood stages the subscriber cares about.
type RiverConfig struct {
	Stages []FloodStage `json:"stages"`
}

// AirQualityConfig sets the AQI floor for notification.
type AirQualityConfig struct {
	MinAQI int `json:"min_aqi"`
}

// TrafficConfig selects incident severities.
type TrafficConfig struct {
	Severities []IncidentSeverity `json:"severities"`
}

// DeviceMinAQI is the fixed AQI floor for anonymous devices. Devices carry no
// per-device configuration, so they get the conservative default: anything
// past the "unhealthy for sensitive groups" boundary.
const DeviceMinAQI = 101

// Subscription is one subscriber's interest in one alert type. Exactly one
// of the config fields is non-nil, matching Type.
type Subscription struct {
	SubscriberID string
	Type         AlertType
	Enabled      bool

	Weather    *WeatherConfig
	River      *RiverConfig
	AirQuality *AirQualityConfig
	Traffic    *TrafficConfig
}

// DeviceSubscription is an anonymous device registration for one alert type.
type DeviceSubscription struct {
	DeviceID  string
	Type      AlertType
	PushToken string
}

// --------------------------------------------------------------------------
// Matchers — pure predicates, no I/O. Callers pre-filter to anomalous
// readings before asking whether a subscriber wants them.
// --------------------------------------------------------------------------

// MatchWeather reports whether a weather alert satisfies the subscriber's
// config: severity must be selected, and when an event list is configured
// the event must be on it.
func MatchWeather(cfg *WeatherConfig, alert WeatherAlert) bool {
	if cfg == nil {
		return false
	}
	if !containsString(cfg.Severities, alert.Severity) {
		return false
	}
	return len(cfg.Events) == 0 || containsString(cfg.Events, alert.Event)
}

// MatchRiver reports whether the reading's flood stage is one the subscriber
// selected. Callers never pass normal-stage readings here.
func MatchRiver(cfg *RiverConfig, r RiverReading) bool {
	if cfg == nil {
		return false
	}
	for _, s := range cfg.Stages {
		if s == r.FloodStage {
			return true
		}
	}
	return false
}

// MatchAirQuality reports whether the AQI meets the subscriber's floor.
func MatchAirQuality(cfg *AirQualityConfig, r AirQualityReading) bool {
	return cfg != nil && r.AQI >= cfg.MinAQI
}

// MatchTraffic reports whether the incident severity is one the subscriber
// selected.
func MatchTraffic(cfg *TrafficConfig, inc TrafficIncident) bool {
	if cfg == nil {
		return false
	}
	for _, s := range cfg.Severities {
		if s == inc.Severity {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
