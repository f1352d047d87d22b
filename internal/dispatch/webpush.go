package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

const webPushTTLSeconds = 1800

// WebPushSender delivers payloads to browser push endpoints using VAPID.
// Nil-safe: when VAPID keys are not configured, Send reports failure without
// touching the network.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subject    string // mailto: contact required by push services
}

// NewWebPushSender creates a web push sender. Returns nil when either VAPID
// key is empty (web push disabled).
func NewWebPushSender(publicKey, privateKey, subject string) *WebPushSender {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &WebPushSender{publicKey: publicKey, privateKey: privateKey, subject: subject}
}

// Send pushes the payload to one endpoint. A non-2xx from the push service is
// an error for that endpoint only.
func (s *WebPushSender) Send(ctx context.Context, ep domain.WebPushEndpoint, p domain.Payload) error {
	if s == nil {
		return fmt.Errorf("web push not configured")
	}

	sub := &webpush.Subscription{
		Endpoint: ep.Endpoint,
		Keys: webpush.Keys{
			P256dh: ep.P256dh,
			Auth:   ep.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, p.Snapshot(), sub, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             webPushTTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
