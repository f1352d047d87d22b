// Package dispatch fans one notification payload out across every delivery
// channel registered for an identity. Channel and endpoint failures are
// counted, never propagated: one bad endpoint must not cost a sibling its
// delivery, and the dispatcher itself never returns an error.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// EndpointSource looks up the delivery endpoints registered for a subscriber.
type EndpointSource interface {
	WebPushEndpoints(ctx context.Context, subscriberID string) ([]domain.WebPushEndpoint, error)
	MobileTokens(ctx context.Context, subscriberID string) ([]string, error)
}

// WebPusher sends a payload to one browser push endpoint.
type WebPusher interface {
	Send(ctx context.Context, ep domain.WebPushEndpoint, p domain.Payload) error
}

// MobilePusher sends a payload to a batch of mobile tokens and reports how
// many were accepted.
type MobilePusher interface {
	Send(ctx context.Context, tokens []string, p domain.Payload) (int, error)
}

// Result summarizes one fan-out: Sent is the number of endpoints/tokens that
// accepted delivery, not the number of identities.
type Result struct {
	Sent int
}

// Dispatcher delivers payloads across web push and mobile push.
type Dispatcher struct {
	endpoints EndpointSource
	webPush   WebPusher // may be nil when web push is not configured
	mobile    MobilePusher
	logger    *slog.Logger
}

// New creates a dispatcher. webPush may be nil.
func New(endpoints EndpointSource, webPush WebPusher, mobile MobilePusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{endpoints: endpoints, webPush: webPush, mobile: mobile, logger: logger}
}

// SendToUser fans the payload out to every web push endpoint and mobile
// token registered for the subscriber. The identity counts as notified when
// Sent > 0 on any channel.
func (d *Dispatcher) SendToUser(ctx context.Context, subscriberID string, p domain.Payload) Result {
	var result Result

	endpoints, err := d.endpoints.WebPushEndpoints(ctx, subscriberID)
	if err != nil {
		d.logger.Warn("webpush endpoint lookup failed", "subscriber", subscriberID, "error", err)
	}
	for _, ep := range endpoints {
		if d.webPush == nil {
			break
		}
		if err := d.webPush.Send(ctx, ep, p); err != nil {
			d.logger.Warn("web push failed", "subscriber", subscriberID, "endpoint", ep.Endpoint, "error", err)
			continue
		}
		result.Sent++
	}

	tokens, err := d.endpoints.MobileTokens(ctx, subscriberID)
	if err != nil {
		d.logger.Warn("mobile token lookup failed", "subscriber", subscriberID, "error", err)
	}
	if len(tokens) > 0 {
		accepted, err := d.mobile.Send(ctx, tokens, p)
		if err != nil {
			d.logger.Warn("mobile push failed", "subscriber", subscriberID, "tokens", len(tokens), "error", err)
		}
		result.Sent += accepted
	}

	return result
}

// SendToTokens is the batch variant for anonymous device fan-out.
func (d *Dispatcher) SendToTokens(ctx context.Context, tokens []string, p domain.Payload) Result {
	if len(tokens) == 0 {
		return Result{}
	}

	accepted, err := d.mobile.Send(ctx, tokens, p)
	if err != nil {
		d.logger.Warn("device push failed", "tokens", len(tokens), "error", err)
	}
	return Result{Sent: accepted}
}
