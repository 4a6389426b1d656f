// Package notify delivers rendered messages over WhatsApp and email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/config"
	"github.com/jb-platform/maintenance-service/internal/domain"
)

// Message is one rendered notification bound for a single address.
type Message struct {
	Channel   domain.Channel
	To        string
	Subject   string
	Body      string
	Reference string
}

// Sender delivers a message on one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoSender is returned when no sender is registered for a channel.
var ErrNoSender = errors.New("notify: no sender for channel")

// Router picks the sender registered for the message channel.
type Router struct {
	senders map[domain.Channel]Sender
}

// NewRouter builds a router over the given senders.
func NewRouter(senders map[domain.Channel]Sender) *Router {
	return &Router{senders: senders}
}

// NewRouterFromConfig wires the HTTP senders described by cfg. A channel with
// no API URL gets a sender that only logs.
func NewRouterFromConfig(cfg config.NotificationConfig, logger *zap.Logger) *Router {
	senders := map[domain.Channel]Sender{}
	if cfg.WhatsAppAPIURL != "" {
		senders[domain.ChannelWhatsApp] = NewWhatsAppSender(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.Timeout())
	} else {
		senders[domain.ChannelWhatsApp] = NewLogSender(domain.ChannelWhatsApp, logger)
	}
	if cfg.EmailAPIURL != "" {
		senders[domain.ChannelEmail] = NewEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.Timeout())
	} else {
		senders[domain.ChannelEmail] = NewLogSender(domain.ChannelEmail, logger)
	}
	return NewRouter(senders)
}

// Send implements Sender.
func (r *Router) Send(ctx context.Context, msg Message) error {
	sender, ok := r.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("%w %q", ErrNoSender, msg.Channel)
	}
	return sender.Send(ctx, msg)
}

// postJSON sends payload with the fiber client agent and checks the status.
func postJSON(ctx context.Context, url string, headers map[string]string, payload any, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(url)
	for k, v := range headers {
		agent.Set(k, v)
	}
	agent.JSON(payload)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("provider responded %d: %s", code, truncate(string(body), 200))
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
