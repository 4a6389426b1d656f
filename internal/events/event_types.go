package events

import (
	"time"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventNotificationRequested fires after a workflow step and its audit
	// event have been committed.
	EventNotificationRequested EventType = "notification_requested"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Party domain.Party `json:"party"`
	ID    *string      `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// OutboundMessage is a notification with its channel already resolved.
type OutboundMessage struct {
	Audience    domain.Party   `json:"audience"`
	RecipientID string         `json:"recipient_id,omitempty"`
	QuoteID     *string        `json:"quote_id,omitempty"`
	Channel     domain.Channel `json:"channel"`
	Address     string         `json:"address"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
}

// NotificationRequestedPayload carries what the notification dispatcher needs.
type NotificationRequestedPayload struct {
	WorkflowEventID string                   `json:"workflow_event_id"`
	EventType       domain.WorkflowEventType `json:"event_type"`
	TicketNumber    string                   `json:"ticket_number"`
	QuoteID         *string                  `json:"quote_id,omitempty"`
	Messages        []OutboundMessage        `json:"messages"`
}
