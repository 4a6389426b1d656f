package notify

import (
	"context"
	"time"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// WhatsAppSender posts text messages to a WhatsApp Business style API.
type WhatsAppSender struct {
	url     string
	token   string
	timeout time.Duration
}

// NewWhatsAppSender constructs the sender.
func NewWhatsAppSender(url, token string, timeout time.Duration) *WhatsAppSender {
	return &WhatsAppSender{url: url, token: token, timeout: timeout}
}

type whatsAppPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppText     `json:"text"`
	Context          *whatsAppContext `json:"context,omitempty"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppContext struct {
	Reference string `json:"reference"`
}

// Send implements Sender.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	body := msg.Body
	if msg.Subject != "" {
		body = "*" + msg.Subject + "*\n" + body
	}
	payload := whatsAppPayload{
		MessagingProduct: string(domain.ChannelWhatsApp),
		To:               msg.To,
		Type:             "text",
		Text:             whatsAppText{Body: body},
	}
	if msg.Reference != "" {
		payload.Context = &whatsAppContext{Reference: msg.Reference}
	}
	headers := map[string]string{}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}
	return postJSON(ctx, s.url, headers, payload, s.timeout)
}
