package workflow

import (
	"strings"

	"github.com/jb-platform/maintenance-service/internal/domain"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

var allowedStatusTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:          {domain.TicketStatusInProgress, domain.TicketStatusWaitingTenant, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:    {domain.TicketStatusWaitingTenant, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusWaitingTenant: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:      {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:        {},
}

// IsValidStatusTransition reports whether a PM may move a ticket between
// customer-service statuses.
func IsValidStatusTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedStatusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ChangeStatus moves the ticket's customer-service status. It never touches
// workflowStatus and notifies nobody.
func (e *Engine) ChangeStatus(ticket *domain.Ticket, quotes []*domain.Quote, next domain.TicketStatus, comment string, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": next})
	}
	if !IsValidStatusTransition(ticket.Status, next) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}
	if next == domain.TicketStatusResolved || next == domain.TicketStatusClosed {
		if active := activeQuote(quotes, ""); active != nil {
			return nil, apperrors.NewValidationError("ticket has a job in progress", map[string]any{"quote_id": active.ID})
		}
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	old := ticket.Status
	plan.Ticket.Status = next
	switch next {
	case domain.TicketStatusResolved:
		plan.Ticket.ResolvedAt = ptr(now)
	case domain.TicketStatusClosed:
		plan.Ticket.ClosedAt = ptr(now)
	case domain.TicketStatusInProgress:
		plan.Ticket.ResolvedAt = nil
	}

	description := "Status changed from " + string(old) + " to " + string(next)
	comment = strings.TrimSpace(comment)
	if comment != "" {
		description += ": " + comment
	}
	plan.Event = e.event(ticket, nil, domain.EventStatusChanged, actor, "Status changed", description)
	plan.Event.Metadata["old_status"] = old
	plan.Event.Metadata["new_status"] = next
	return plan.finalize(), nil
}

// ChangePriority re-ranks an unclosed ticket.
func (e *Engine) ChangePriority(ticket *domain.Ticket, next domain.TicketPriority, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": next})
	}
	if ticket.Priority == next {
		return nil, apperrors.NewValidationError("priority unchanged", nil)
	}

	plan := e.newPlan(ticket)
	old := ticket.Priority
	plan.Ticket.Priority = next
	plan.Event = e.event(ticket, nil, domain.EventPriorityChanged, actor, "Priority changed",
		"Priority changed from "+string(old)+" to "+string(next))
	plan.Event.Metadata["old_priority"] = old
	plan.Event.Metadata["new_priority"] = next
	return plan.finalize(), nil
}
