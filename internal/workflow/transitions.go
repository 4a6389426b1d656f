package workflow

import (
	"strings"
	"time"

	"github.com/jb-platform/maintenance-service/internal/domain"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// SupersededReason is stored on open quotes rejected by another approval.
const SupersededReason = "superseded"

// SubmitQuoteInput carries a contractor's figures.
type SubmitQuoteInput struct {
	Amount        *int64
	AvailableDate *time.Time
	Response      string
	// Accept marks the job as accepted at the stated (or call-out) price
	// instead of a plain quote.
	Accept bool
}

// ApproveInput carries the booking a PM confirms.
type ApproveInput struct {
	Notes         string
	ScheduledDate time.Time
	TimeSlot      domain.TimeSlot
}

// CompleteInput closes out the job.
type CompleteInput struct {
	Notes       string
	FinalAmount *int64
}

// ReceiveTicket plans the acknowledgement of a freshly created ticket.
func (e *Engine) ReceiveTicket(ticket *domain.Ticket, actor Actor) (*Plan, error) {
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	if ticket.WorkflowStatus != domain.WorkflowNew || ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewValidationError("ticket already received", map[string]any{"ticket": ticket.Number})
	}
	plan := e.newPlan(ticket)
	plan.Event = e.event(ticket, nil, domain.EventTicketReceived, actor,
		"Ticket received", "Maintenance request "+ticket.Number+" logged")
	plan.Event.Metadata["category"] = ticket.Category
	plan.Event.Metadata["priority"] = ticket.Priority
	plan.notify(e.ticketReceivedMessage(ticket))
	return plan.finalize(), nil
}

// AssignContractor invites a contractor to quote and opens a pending quote.
func (e *Engine) AssignContractor(ticket *domain.Ticket, quotes []*domain.Quote, contractor *domain.Contractor, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	if contractor == nil {
		return nil, apperrors.NewNotFound("contractor", nil)
	}
	if !contractor.Active {
		return nil, apperrors.NewValidationError("contractor is inactive", map[string]any{"contractor_id": contractor.ID})
	}
	if err := requireWorkflow(ticket, domain.WorkflowNew, domain.WorkflowContractorNotified, domain.WorkflowQuoteReceived); err != nil {
		return nil, err
	}
	if active := activeQuote(quotes, ""); active != nil {
		return nil, apperrors.NewValidationError("ticket already has an active job", map[string]any{"quote_id": active.ID})
	}
	for _, q := range quotes {
		if q.ContractorID == contractor.ID && q.Status.Open() {
			return nil, apperrors.NewConflict("contractor already has an open quote on this ticket", map[string]any{"quote_id": q.ID})
		}
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote := &domain.Quote{
		ID:           e.newID(),
		TicketID:     ticket.ID,
		ContractorID: contractor.ID,
		Status:       domain.QuoteStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	plan.Quote = quote
	plan.NewQuote = true

	next := ticket.WorkflowStatus
	if next == domain.WorkflowNew {
		next = domain.WorkflowContractorNotified
	}
	if err := plan.moveTo(next); err != nil {
		return nil, err
	}
	if plan.Ticket.Status == domain.TicketStatusOpen {
		plan.Ticket.Status = domain.TicketStatusInProgress
	}

	plan.Event = e.event(ticket, &quote.ID, domain.EventContractorAssigned, actor,
		"Contractor assigned", "Contractor invited to quote")
	plan.Event.Metadata["contractor_id"] = contractor.ID
	plan.notify(e.jobRequestMessage(ticket, quote, contractor))
	return plan.finalize(), nil
}

// SubmitQuote records a contractor's figures against a pending quote.
func (e *Engine) SubmitQuote(ticket *domain.Ticket, quotes []*domain.Quote, quoteID string, in SubmitQuoteInput, actor Actor) (*Plan, error) {
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteOwnerOrManager(quote, actor); err != nil {
		return nil, err
	}
	if err := requireWorkflow(ticket, domain.WorkflowContractorNotified, domain.WorkflowQuoteReceived); err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusPending); err != nil {
		return nil, err
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, apperrors.NewValidationError("quote amount must be positive", nil)
	}
	if !in.Accept && in.Amount == nil {
		return nil, apperrors.NewValidationError("quote amount required", nil)
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusQuoted
	if in.Accept {
		quote.Status = domain.QuoteStatusAccepted
	}
	quote.QuoteAmount = in.Amount
	if in.AvailableDate != nil {
		quote.AvailableDate = ptr(dateOnly(*in.AvailableDate))
	}
	quote.ContractorResponse = strings.TrimSpace(in.Response)
	quote.QuotedAt = ptr(now)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	if err := plan.moveTo(domain.WorkflowQuoteReceived); err != nil {
		return nil, err
	}

	plan.Event = e.event(ticket, &quote.ID, domain.EventQuoteSubmitted, actor, "Quote received", quoteSummary(quote))
	plan.Event.Metadata["contractor_id"] = quote.ContractorID
	if quote.QuoteAmount != nil {
		plan.Event.Metadata["quote_amount"] = *quote.QuoteAmount
	}
	if quote.AvailableDate != nil {
		plan.Event.Metadata["available_date"] = quote.AvailableDate.Format(time.DateOnly)
	}
	plan.notify(e.quoteReceivedMessage(ticket, quote))
	return plan.finalize(), nil
}

// DeclineQuote records a contractor turning the invitation down.
func (e *Engine) DeclineQuote(ticket *domain.Ticket, quotes []*domain.Quote, quoteID, reason string, actor Actor) (*Plan, error) {
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteOwnerOrManager(quote, actor); err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusPending); err != nil {
		return nil, err
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusDeclined
	quote.ContractorResponse = strings.TrimSpace(reason)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	plan.Event = e.event(ticket, &quote.ID, domain.EventQuoteDeclined, actor, "Contractor declined", "Contractor declined the job")
	plan.Event.Metadata["contractor_id"] = quote.ContractorID
	if quote.ContractorResponse != "" {
		plan.Event.Metadata["reason"] = quote.ContractorResponse
	}
	plan.notify(e.declinedMessage(ticket, quote))
	return plan.finalize(), nil
}

// ApproveQuote books the job and forecloses every other open quote.
func (e *Engine) ApproveQuote(ticket *domain.Ticket, quotes []*domain.Quote, quoteID string, in ApproveInput, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusQuoted, domain.QuoteStatusAccepted); err != nil {
		return nil, err
	}
	if err := requireWorkflow(ticket, domain.WorkflowQuoteReceived); err != nil {
		return nil, err
	}
	if in.ScheduledDate.IsZero() {
		return nil, apperrors.NewValidationError("scheduled date required", nil)
	}
	if !in.TimeSlot.Valid() {
		return nil, apperrors.NewValidationError("invalid scheduled time slot", map[string]any{"time_slot": in.TimeSlot})
	}
	if active := activeQuote(quotes, quote.ID); active != nil {
		return nil, apperrors.NewValidationError("ticket already has an active job", map[string]any{"quote_id": active.ID})
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusScheduled
	quote.ScheduledDate = ptr(dateOnly(in.ScheduledDate))
	quote.ScheduledTimeSlot = in.TimeSlot
	quote.ApprovalNotes = strings.TrimSpace(in.Notes)
	quote.ApprovedAt = ptr(now)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	var superseded []*domain.Quote
	for _, other := range quotes {
		if other.ID == quote.ID || !other.Status.Open() {
			continue
		}
		q := other.Clone()
		q.Status = domain.QuoteStatusRejected
		q.RejectionReason = SupersededReason
		q.UpdatedAt = now
		plan.changeQuote(q)
		superseded = append(superseded, q)
	}

	if err := plan.moveTo(domain.WorkflowScheduled); err != nil {
		return nil, err
	}
	if plan.Ticket.Status == domain.TicketStatusOpen || plan.Ticket.Status == domain.TicketStatusWaitingTenant {
		plan.Ticket.Status = domain.TicketStatusInProgress
	}

	plan.Event = e.event(ticket, &quote.ID, domain.EventQuoteApproved, actor, "Work scheduled",
		"Work booked for "+quote.ScheduledDate.Format(time.DateOnly)+" ("+string(in.TimeSlot)+")")
	plan.Event.Metadata["scheduled_date"] = quote.ScheduledDate.Format(time.DateOnly)
	plan.Event.Metadata["time_slot"] = in.TimeSlot

	plan.notify(e.scheduledTenantMessage(ticket, quote))
	plan.notify(e.scheduledContractorMessage(ticket, quote))
	for _, q := range superseded {
		plan.notify(e.notAcceptedMessage(ticket, q))
	}
	return plan.finalize(), nil
}

// RejectQuote turns a quote down so the ticket can be reassigned.
func (e *Engine) RejectQuote(ticket *domain.Ticket, quotes []*domain.Quote, quoteID, reason string, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusQuoted, domain.QuoteStatusAccepted); err != nil {
		return nil, err
	}
	if err := requireWorkflow(ticket, domain.WorkflowQuoteReceived); err != nil {
		return nil, err
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusRejected
	quote.RejectionReason = strings.TrimSpace(reason)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	next := domain.WorkflowContractorNotified
	for _, other := range quotes {
		if other.ID != quote.ID && other.Status.Responded() {
			next = domain.WorkflowQuoteReceived
			break
		}
	}
	if err := plan.moveTo(next); err != nil {
		return nil, err
	}

	description := "Quote rejected"
	if quote.RejectionReason != "" {
		description += ": " + quote.RejectionReason
	}
	plan.Event = e.event(ticket, &quote.ID, domain.EventQuoteRejected, actor, "Quote rejected", description)
	plan.Event.Metadata["contractor_id"] = quote.ContractorID
	if quote.RejectionReason != "" {
		plan.Event.Metadata["reason"] = quote.RejectionReason
	}
	plan.notify(e.notAcceptedMessage(ticket, quote))
	return plan.finalize(), nil
}

// StartWork marks the booked job as underway. Nobody is notified.
func (e *Engine) StartWork(ticket *domain.Ticket, quotes []*domain.Quote, quoteID string, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusScheduled); err != nil {
		return nil, err
	}
	if err := requireWorkflow(ticket, domain.WorkflowScheduled); err != nil {
		return nil, err
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusInProgress
	quote.StartedAt = ptr(now)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	if err := plan.moveTo(domain.WorkflowInWork); err != nil {
		return nil, err
	}
	plan.Event = e.event(ticket, &quote.ID, domain.EventWorkStarted, actor, "Work started", "Work marked as started")
	return plan.finalize(), nil
}

// CompleteWork closes out the job and resolves the ticket.
func (e *Engine) CompleteWork(ticket *domain.Ticket, quotes []*domain.Quote, quoteID string, in CompleteInput, actor Actor) (*Plan, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := requireOpenTicket(ticket); err != nil {
		return nil, err
	}
	quote, err := findQuote(ticket, quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := requireQuoteStatus(quote, domain.QuoteStatusInProgress); err != nil {
		return nil, err
	}
	if err := requireWorkflow(ticket, domain.WorkflowInWork); err != nil {
		return nil, err
	}
	if in.FinalAmount != nil && *in.FinalAmount < 0 {
		return nil, apperrors.NewValidationError("final amount cannot be negative", nil)
	}

	now := e.timestamp()
	plan := e.newPlan(ticket)
	quote.Status = domain.QuoteStatusCompleted
	quote.CompletionNotes = strings.TrimSpace(in.Notes)
	quote.FinalAmount = in.FinalAmount
	quote.CompletedAt = ptr(now)
	quote.UpdatedAt = now
	plan.Quote = quote
	plan.changeQuote(quote)

	if err := plan.moveTo(domain.WorkflowCompleted); err != nil {
		return nil, err
	}
	plan.Ticket.Status = domain.TicketStatusResolved
	plan.Ticket.ResolvedAt = ptr(now)

	plan.Event = e.event(ticket, &quote.ID, domain.EventWorkCompleted, actor, "Work completed",
		"Maintenance work completed by "+e.agency.Name)
	plan.notify(e.completedTenantMessage(ticket))
	return plan.finalize(), nil
}

func requireQuoteOwnerOrManager(q *domain.Quote, actor Actor) error {
	switch actor.Party {
	case domain.PartyPropertyManager:
		return nil
	case domain.PartyContractor:
		if actor.ID == q.ContractorID {
			return nil
		}
	}
	return apperrors.NewForbidden("quote belongs to another contractor")
}

func quoteSummary(q *domain.Quote) string {
	var b strings.Builder
	if q.Status == domain.QuoteStatusAccepted {
		b.WriteString("Job accepted")
	} else {
		b.WriteString("Quote submitted")
	}
	if q.QuoteAmount != nil {
		b.WriteString(" at ")
		b.WriteString(domain.FormatPence(*q.QuoteAmount))
	}
	if q.AvailableDate != nil {
		b.WriteString(", available from ")
		b.WriteString(q.AvailableDate.Format(time.DateOnly))
	}
	return b.String()
}
