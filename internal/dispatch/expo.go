package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

const expoTimeout = 15 * time.Second

// ExpoSender delivers payloads to mobile devices through the Expo push API.
type ExpoSender struct {
	url        string
	httpClient *http.Client
}

// NewExpoSender creates a mobile push sender targeting the given Expo push
// endpoint.
func NewExpoSender(url string) *ExpoSender {
	return &ExpoSender{
		url:        url,
		httpClient: &http.Client{Timeout: expoTimeout},
	}
}

type expoMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	Sound    string            `json:"sound"`
	Priority string            `json:"priority"`
}

type expoResponse struct {
	Data []struct {
		Status  string `json:"status"` // "ok" | "error"
		Message string `json:"message"`
	} `json:"data"`
}

// Send pushes one payload to a batch of tokens and returns how many tickets
// the push service accepted. A rejected ticket counts as zero for that token
// without failing the batch.
func (s *ExpoSender) Send(ctx context.Context, tokens []string, p domain.Payload) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	msg := expoMessage{
		To:    tokens,
		Title: p.Title,
		Body:  p.Body,
		Data: map[string]string{
			"url": p.URL,
			"tag": p.Tag,
		},
		Sound:    "default",
		Priority: "high",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshal expo message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build expo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("expo push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("expo push returned %d", resp.StatusCode)
	}

	var parsed expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode expo response: %w", err)
	}

	accepted := 0
	for _, ticket := range parsed.Data {
		if ticket.Status == "ok" {
			accepted++
		}
	}
	return accepted, nil
}
