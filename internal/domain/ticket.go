package domain

import (
	"strconv"
	"strings"
	"time"
)

// TicketNumberPrefix starts every ticket number.
const TicketNumberPrefix = "JB-"

// TicketSequence extracts n from a sequential number such as JB-00042.
func TicketSequence(number string) (int64, bool) {
	digits, ok := strings.CutPrefix(number, TicketNumberPrefix)
	if !ok || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// TicketStatus enumerates the customer-service lifecycle of a ticket.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "open"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusWaitingTenant TicketStatus = "waiting_tenant"
	TicketStatusResolved      TicketStatus = "resolved"
	TicketStatusClosed        TicketStatus = "closed"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingTenant, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory classifies the reported issue.
type TicketCategory string

const (
	CategoryPlumbing   TicketCategory = "plumbing"
	CategoryElectrical TicketCategory = "electrical"
	CategoryHeating    TicketCategory = "heating"
	CategoryAppliances TicketCategory = "appliances"
	CategoryStructural TicketCategory = "structural"
	CategoryPest       TicketCategory = "pest"
	CategoryExterior   TicketCategory = "exterior"
	CategoryBilling    TicketCategory = "billing"
	CategoryGeneral    TicketCategory = "general"
)

func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryPlumbing, CategoryElectrical, CategoryHeating, CategoryAppliances, CategoryStructural,
		CategoryPest, CategoryExterior, CategoryBilling, CategoryGeneral:
		return true
	}
	return false
}

// WorkflowStatus tracks maintenance progress. Values are ordered; see Rank.
type WorkflowStatus string

const (
	WorkflowNew                WorkflowStatus = "new"
	WorkflowContractorNotified WorkflowStatus = "contractor_notified"
	WorkflowQuoteReceived      WorkflowStatus = "quote_received"
	WorkflowScheduled          WorkflowStatus = "scheduled"
	WorkflowInWork             WorkflowStatus = "in_work"
	WorkflowCompleted          WorkflowStatus = "completed"
)

// WorkflowSequence is the fixed forward order of workflow states.
var WorkflowSequence = []WorkflowStatus{
	WorkflowNew,
	WorkflowContractorNotified,
	WorkflowQuoteReceived,
	WorkflowScheduled,
	WorkflowInWork,
	WorkflowCompleted,
}

// Rank returns the position of the status in WorkflowSequence, or -1.
func (w WorkflowStatus) Rank() int {
	for i, s := range WorkflowSequence {
		if s == w {
			return i
		}
	}
	return -1
}

func (w WorkflowStatus) Valid() bool {
	return w.Rank() >= 0
}

// Ticket is the aggregate for a reported maintenance issue.
type Ticket struct {
	ID             string
	Number         string
	TenantID       string
	PropertyID     string
	Subject        string
	Description    string
	Category       TicketCategory
	Priority       TicketPriority
	Status         TicketStatus
	WorkflowStatus WorkflowStatus
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
}

// Clone returns a deep copy of the ticket.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	cp.ClosedAt = cloneTime(t.ClosedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
