package notify

import (
	"context"
	"time"
)

// EmailSender posts messages to a transactional email HTTP API.
type EmailSender struct {
	url     string
	apiKey  string
	from    string
	timeout time.Duration
}

// NewEmailSender constructs the sender.
func NewEmailSender(url, apiKey, from string, timeout time.Duration) *EmailSender {
	return &EmailSender{url: url, apiKey: apiKey, from: from, timeout: timeout}
}

type emailPayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
}

// Send implements Sender.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["X-Api-Key"] = s.apiKey
	}
	return postJSON(ctx, s.url, headers, emailPayload{
		From:      s.from,
		To:        msg.To,
		Subject:   msg.Subject,
		Text:      msg.Body,
		Reference: msg.Reference,
	}, s.timeout)
}
