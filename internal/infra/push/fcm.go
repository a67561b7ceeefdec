// Package push sends device notifications through the FCM legacy HTTP API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is a single-device push.
type Message struct {
	Token string
	Title string
	Body  string
	Icon  *string
	Badge int64
	Data  map[string]string
}

// Client represents an FCM sender authenticated by a server key.
type Client struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewClient(endpoint string, serverKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type fcmNotification struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Icon  *string `json:"icon,omitempty"`
	Sound string  `json:"sound"`
	Badge int64   `json:"badge"`
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send reports whether FCM accepted the message for the device.
// A rejected token is (false, nil); transport and non-200 responses are errors.
func (c *Client) Send(ctx context.Context, msg Message) (bool, error) {
	body, err := json.Marshal(fcmRequest{
		To: msg.Token,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Icon:  msg.Icon,
			Sound: "default",
			Badge: msg.Badge,
		},
		Data: msg.Data,
	})
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fcm API error: %s", resp.Status)
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return out.Success > 0, nil
}
