package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/avelazquez/remate/internal/notifications"
)

// WhatsAppSender delivers notifications through a WhatsApp Business
// API gateway (POST /messages with a bearer token).
type WhatsAppSender struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewWhatsAppSender creates a new WhatsApp sender
func NewWhatsAppSender(baseURL, token string, client *http.Client) *WhatsAppSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WhatsAppSender{
		baseURL: baseURL,
		token:   token,
		client:  client,
	}
}

type whatsAppMessage struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send implements notifications.Sender.
func (s *WhatsAppSender) Send(ctx context.Context, to *notifications.Recipient, msg notifications.Message) error {
	if to.Phone == "" {
		return fmt.Errorf("recipient %s has no phone number", to.ID)
	}

	payload := whatsAppMessage{To: to.Phone, Type: "text"}
	payload.Text.Body = fmt.Sprintf("%s\n%s", msg.Subject, msg.Body)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
