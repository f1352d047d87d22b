package domain

import "encoding/json"

// Payload is the canonical notification content for every delivery channel.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Snapshot returns the payload as JSON for the ledger's payload column.
// Marshalling a flat string struct cannot fail.
func (p Payload) Snapshot() []byte {
	b, _ := json.Marshal(p)
	return b
}

// WebPushEndpoint is one browser push registration for a subscriber.
type WebPushEndpoint struct {
	Endpoint string
	P256dh   string
	Auth     string
}
