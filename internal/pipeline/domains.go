package pipeline

import (
	"context"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// Each domain run follows the same shape: fetch, classify, cache the status
// snapshot, then walk the notifiable occurrences against subscribers and
// devices. Fetch failures end the domain's run with zero counts and leave the
// previous snapshot in place.

func (o *Orchestrator) runWeather(ctx context.Context) DomainResult {
	reading, err := o.weather.Fetch(ctx)
	if err != nil {
		o.logger.Warn("weather fetch failed", "error", err)
		o.metrics.FetchFailures.WithLabelValues(string(domain.AlertTypeWeather)).Inc()
		return DomainResult{}
	}

	anomalies := domain.ClassifyWeather(reading)
	o.storeSnapshot(ctx, domain.AlertTypeWeather, anomalies)

	if len(reading.Alerts) == 0 {
		return DomainResult{}
	}

	subscriptions, devices := o.loadAudience(ctx, domain.AlertTypeWeather)

	var dr DomainResult
	for _, alert := range reading.Alerts {
		payload := WeatherPayload(alert)

		for _, sub := range subscriptions {
			dr.Checked++
			if !domain.MatchWeather(sub.Weather, alert) {
				continue
			}
			dr.Matched++
			dr.Notified += o.deliverToSubscriber(ctx, domain.AlertTypeWeather, sub.SubscriberID, alert.SourceID(), payload)
		}

		// Devices carry no config: every active alert goes out.
		checked, matched, notified := o.deliverToDevices(ctx, domain.AlertTypeWeather, devices, alert.SourceID(), payload,
			func(domain.DeviceSubscription) bool { return true })
		dr.Checked += checked
		dr.Matched += matched
		dr.Notified += notified
	}
	return dr
}

func (o *Orchestrator) runRiver(ctx context.Context) DomainResult {
	reading, err := o.river.Fetch(ctx)
	if err != nil {
		o.logger.Warn("river fetch failed", "error", err)
		o.metrics.FetchFailures.WithLabelValues(string(domain.AlertTypeRiver)).Inc()
		return DomainResult{}
	}

	anomalies := domain.ClassifyRiver(reading)
	o.storeSnapshot(ctx, domain.AlertTypeRiver, anomalies)

	if reading.FloodStage == domain.FloodStageNormal {
		return DomainResult{}
	}

	subscriptions, devices := o.loadAudience(ctx, domain.AlertTypeRiver)
	payload := RiverPayload(*reading)

	var dr DomainResult
	for _, sub := range subscriptions {
		dr.Checked++
		if !domain.MatchRiver(sub.River, *reading) {
			continue
		}
		dr.Matched++
		dr.Notified += o.deliverToSubscriber(ctx, domain.AlertTypeRiver, sub.SubscriberID, reading.SourceID(), payload)
	}

	checked, matched, notified := o.deliverToDevices(ctx, domain.AlertTypeRiver, devices, reading.SourceID(), payload,
		func(domain.DeviceSubscription) bool { return true })
	dr.Checked += checked
	dr.Matched += matched
	dr.Notified += notified
	return dr
}

func (o *Orchestrator) runAirQuality(ctx context.Context) DomainResult {
	reading, err := o.air.Fetch(ctx)
	if err != nil {
		o.logger.Warn("air quality fetch failed", "error", err)
		o.metrics.FetchFailures.WithLabelValues(string(domain.AlertTypeAirQuality)).Inc()
		return DomainResult{}
	}

	anomalies := domain.ClassifyAirQuality(reading)
	o.storeSnapshot(ctx, domain.AlertTypeAirQuality, anomalies)

	if len(anomalies) == 0 {
		return DomainResult{}
	}

	subscriptions, devices := o.loadAudience(ctx, domain.AlertTypeAirQuality)
	payload := AirQualityPayload(*reading)

	var dr DomainResult
	for _, sub := range subscriptions {
		dr.Checked++
		if !domain.MatchAirQuality(sub.AirQuality, *reading) {
			continue
		}
		dr.Matched++
		dr.Notified += o.deliverToSubscriber(ctx, domain.AlertTypeAirQuality, sub.SubscriberID, reading.SourceID(), payload)
	}

	checked, matched, notified := o.deliverToDevices(ctx, domain.AlertTypeAirQuality, devices, reading.SourceID(), payload,
		func(domain.DeviceSubscription) bool { return reading.AQI >= domain.DeviceMinAQI })
	dr.Checked += checked
	dr.Matched += matched
	dr.Notified += notified
	return dr
}

func (o *Orchestrator) runTraffic(ctx context.Context) DomainResult {
	incidents, err := o.traffic.Fetch(ctx)
	if err != nil {
		o.logger.Warn("traffic fetch failed", "error", err)
		o.metrics.FetchFailures.WithLabelValues(string(domain.AlertTypeTraffic)).Inc()
		return DomainResult{}
	}

	anomalies := domain.ClassifyTraffic(incidents)
	o.storeSnapshot(ctx, domain.AlertTypeTraffic, anomalies)

	notifiable := incidents[:0:0]
	for _, inc := range incidents {
		if domain.IsNotifiableIncident(inc) {
			notifiable = append(notifiable, inc)
		}
	}
	if len(notifiable) == 0 {
		return DomainResult{}
	}

	subscriptions, devices := o.loadAudience(ctx, domain.AlertTypeTraffic)

	var dr DomainResult
	for _, inc := range notifiable {
		payload := TrafficPayload(inc)

		for _, sub := range subscriptions {
			dr.Checked++
			if !domain.MatchTraffic(sub.Traffic, inc) {
				continue
			}
			dr.Matched++
			dr.Notified += o.deliverToSubscriber(ctx, domain.AlertTypeTraffic, sub.SubscriberID, inc.SourceID(), payload)
		}

		// Traffic devices skip the matcher entirely: any arterial
		// major/critical incident is worth the push.
		checked, matched, notified := o.deliverToDevices(ctx, domain.AlertTypeTraffic, devices, inc.SourceID(), payload,
			func(domain.DeviceSubscription) bool { return true })
		dr.Checked += checked
		dr.Matched += matched
		dr.Notified += notified
	}
	return dr
}
