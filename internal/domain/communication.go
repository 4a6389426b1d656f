package domain

import "time"

// Channel is an outbound delivery medium.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelWhatsApp || c == ChannelEmail
}

// DeliveryStatus tracks an outbound message.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Communication is one message sent to a single party about a ticket.
type Communication struct {
	ID          string
	TicketID    string
	QuoteID     *string
	Audience    Party
	RecipientID string
	Channel     Channel
	Address     string
	Subject     string
	Body        string
	Status      DeliveryStatus
	LastError   string
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SentAt      *time.Time
}

// Clone returns a deep copy.
func (c *Communication) Clone() *Communication {
	if c == nil {
		return nil
	}
	cp := *c
	cp.QuoteID = cloneString(c.QuoteID)
	cp.SentAt = cloneTime(c.SentAt)
	return &cp
}
