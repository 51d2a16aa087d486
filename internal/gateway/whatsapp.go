// internal/gateway/whatsapp.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SendResult is the gateway's acknowledgment for one outbound message.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Messenger is the outbound WhatsApp gateway collaborator.
type Messenger interface {
	SendText(ctx context.Context, clientID, toPhone, text string) (*SendResult, error)
	SendImage(ctx context.Context, clientID, toPhone, url, caption string) (*SendResult, error)
}

// HTTPGateway talks JSON to the WhatsApp gateway service.
type HTTPGateway struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (g *HTTPGateway) SendText(ctx context.Context, clientID, toPhone, text string) (*SendResult, error) {
	payload := map[string]string{
		"clientId": clientID,
		"to":       toPhone,
		"text":     text,
	}
	return g.post(ctx, "/send/text", payload)
}

func (g *HTTPGateway) SendImage(ctx context.Context, clientID, toPhone, url, caption string) (*SendResult, error) {
	payload := map[string]string{
		"clientId": clientID,
		"to":       toPhone,
		"url":      url,
		"caption":  caption,
	}
	return g.post(ctx, "/send/image", payload)
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any) (*SendResult, error) {
	b, _ := json.Marshal(payload)
	url := strings.TrimRight(g.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var res SendResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("gateway response decode failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if res.Error == "" {
			res.Error = resp.Status
		}
		res.Success = false
	}
	return &res, nil
}
