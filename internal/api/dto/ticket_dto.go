package dto

import (
	"time"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// CreateTicketRequest payload. TenantID is only read for PM callers.
type CreateTicketRequest struct {
	TenantID    string                `json:"tenant_id"`
	PropertyID  string                `json:"property_id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponse describes a ticket.
type TicketResponse struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	TenantID       string                `json:"tenant_id,omitempty"`
	PropertyID     string                `json:"property_id"`
	Subject        string                `json:"subject"`
	Description    string                `json:"description"`
	Category       domain.TicketCategory `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	WorkflowStatus domain.WorkflowStatus `json:"workflow_status"`
	Version        int                   `json:"version"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides the ticket with the collections the caller
// may see.
type TicketDetailResponse struct {
	TicketResponse
	Quotes         []QuoteResponse         `json:"quotes"`
	Events         []WorkflowEventResponse `json:"events"`
	Communications []CommunicationResponse `json:"communications"`
}

// QuoteResponse describes a quote. Amounts are in pence.
type QuoteResponse struct {
	ID                 string             `json:"id"`
	TicketID           string             `json:"ticket_id"`
	ContractorID       string             `json:"contractor_id"`
	Status             domain.QuoteStatus `json:"status"`
	QuoteAmount        *int64             `json:"quote_amount,omitempty"`
	AvailableDate      *string            `json:"available_date,omitempty"`
	ScheduledDate      *string            `json:"scheduled_date,omitempty"`
	ScheduledTimeSlot  domain.TimeSlot    `json:"scheduled_time_slot,omitempty"`
	ContractorResponse string             `json:"contractor_response,omitempty"`
	ApprovalNotes      string             `json:"approval_notes,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	CompletionNotes    string             `json:"completion_notes,omitempty"`
	FinalAmount        *int64             `json:"final_amount,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	QuotedAt           *time.Time         `json:"quoted_at,omitempty"`
	ApprovedAt         *time.Time         `json:"approved_at,omitempty"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
}

// WorkflowEventResponse is one audit trail entry.
type WorkflowEventResponse struct {
	ID                   string                   `json:"id"`
	QuoteID              *string                  `json:"quote_id,omitempty"`
	EventType            domain.WorkflowEventType `json:"event_type"`
	Title                string                   `json:"title"`
	Description          string                   `json:"description"`
	Recipients           []domain.Party           `json:"recipients"`
	NotificationChannels []domain.Channel         `json:"notification_channels"`
	ActorType            domain.Party             `json:"actor_type,omitempty"`
	ActorID              *string                  `json:"actor_id,omitempty"`
	Metadata             map[string]any           `json:"metadata,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
}

// CommunicationResponse is one outbound message and its delivery state.
type CommunicationResponse struct {
	ID          string                `json:"id"`
	TicketID    string                `json:"ticket_id"`
	QuoteID     *string               `json:"quote_id,omitempty"`
	Audience    domain.Party          `json:"audience"`
	RecipientID string                `json:"recipient_id,omitempty"`
	Channel     domain.Channel        `json:"channel,omitempty"`
	Subject     string                `json:"subject"`
	Body        string                `json:"body"`
	Status      domain.DeliveryStatus `json:"status"`
	LastError   string                `json:"last_error,omitempty"`
	Attempts    int                   `json:"attempts"`
	CreatedAt   time.Time             `json:"created_at"`
	SentAt      *time.Time            `json:"sent_at,omitempty"`
}

// DeliveryError reports a message that did not go out.
type DeliveryError struct {
	CommunicationID string         `json:"communication_id,omitempty"`
	Audience        domain.Party   `json:"audience"`
	Channel         domain.Channel `json:"channel,omitempty"`
	Error           string         `json:"error"`
}

// TransitionResponse is returned by every workflow command.
type TransitionResponse struct {
	Ticket         TicketResponse          `json:"ticket"`
	Quote          *QuoteResponse          `json:"quote,omitempty"`
	Quotes         []QuoteResponse         `json:"quotes"`
	Events         []WorkflowEventResponse `json:"events"`
	DeliveryErrors []DeliveryError         `json:"delivery_errors"`
}

// ManualMessageRequest payload for a PM-authored message.
type ManualMessageRequest struct {
	Audience domain.Party `json:"audience"`
	QuoteID  *string      `json:"quote_id"`
	Subject  string       `json:"subject"`
	Body     string       `json:"body"`
}
