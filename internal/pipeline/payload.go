package pipeline

import (
	"fmt"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// Canonical notification content per domain. The tag doubles as the client's
// notification-collapse key, so it must be stable for one occurrence.

// WeatherPayload builds the notification for one active weather alert.
func WeatherPayload(a domain.WeatherAlert) domain.Payload {
	body := a.Headline
	if body == "" {
		body = a.Event + " in effect for the Siouxland area"
	}
	return domain.Payload{
		Title: "Weather Alert: " + a.Event,
		Body:  body,
		URL:   "/weather",
		Tag:   "weather-" + a.SourceID(),
	}
}

// RiverPayload builds the notification for a gauge in a flood stage.
func RiverPayload(r domain.RiverReading) domain.Payload {
	return domain.Payload{
		Title: "River Level Alert",
		Body:  fmt.Sprintf("%s is at %.1f ft (%s flood stage)", r.SiteName, r.StageFt, r.FloodStage),
		URL:   "/river",
		Tag:   "river-" + r.SourceID(),
	}
}

// AirQualityPayload builds the notification for an unhealthy AQI reading.
func AirQualityPayload(r domain.AirQualityReading) domain.Payload {
	return domain.Payload{
		Title: "Air Quality Alert",
		Body:  fmt.Sprintf("AQI is %d (%s) — primary pollutant %s", r.AQI, r.Category, r.Pollutant),
		URL:   "/air-quality",
		Tag:   "air-" + r.SourceID(),
	}
}

// TrafficPayload builds the notification for one arterial incident.
func TrafficPayload(inc domain.TrafficIncident) domain.Payload {
	return domain.Payload{
		Title: "Traffic: " + inc.Roadway,
		Body:  inc.Description,
		URL:   "/traffic",
		Tag:   "traffic-" + inc.SourceID(),
	}
}
