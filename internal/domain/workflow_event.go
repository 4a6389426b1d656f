package domain

import "time"

// WorkflowEventType captures which step produced an audit entry.
type WorkflowEventType string

const (
	EventTicketReceived     WorkflowEventType = "ticket_received"
	EventContractorAssigned WorkflowEventType = "contractor_assigned"
	EventQuoteSubmitted     WorkflowEventType = "quote_submitted"
	EventQuoteDeclined      WorkflowEventType = "quote_declined"
	EventQuoteApproved      WorkflowEventType = "quote_approved"
	EventQuoteRejected      WorkflowEventType = "quote_rejected"
	EventWorkStarted        WorkflowEventType = "work_started"
	EventWorkCompleted      WorkflowEventType = "work_completed"
	EventStatusChanged      WorkflowEventType = "status_changed"
	EventPriorityChanged    WorkflowEventType = "priority_changed"
)

// Party identifies one side of the tenant/PM/contractor triangle.
type Party string

const (
	PartyTenant          Party = "tenant"
	PartyContractor      Party = "contractor"
	PartyPropertyManager Party = "property_manager"
)

func (p Party) Valid() bool {
	return p == PartyTenant || p == PartyContractor || p == PartyPropertyManager
}

// WorkflowEvent is an immutable audit trail entry.
type WorkflowEvent struct {
	ID                   string
	TicketID             string
	QuoteID              *string
	EventType            WorkflowEventType
	Title                string
	Description          string
	Recipients           []Party
	NotificationChannels []Channel
	ActorType            Party
	ActorID              *string
	Metadata             map[string]any
	CreatedAt            time.Time
}

// TenantFacing reports whether the tenant was a recipient of this step.
func (e *WorkflowEvent) TenantFacing() bool {
	for _, p := range e.Recipients {
		if p == PartyTenant {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with e.
func (e *WorkflowEvent) Clone() *WorkflowEvent {
	if e == nil {
		return nil
	}
	cp := *e
	cp.QuoteID = cloneString(e.QuoteID)
	cp.ActorID = cloneString(e.ActorID)
	cp.Recipients = append([]Party(nil), e.Recipients...)
	cp.NotificationChannels = append([]Channel(nil), e.NotificationChannels...)
	if e.Metadata != nil {
		cp.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
