// Package workflow holds the maintenance ticket state machine. The engine is
// pure: it reads a ticket and its quotes, checks the guards of one command and
// returns a Plan describing every mutation, the audit event and the outbound
// notifications. Persisting and delivering a Plan is the caller's job.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/jb-platform/maintenance-service/internal/domain"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// Agency is the management company the tenant and contractor deal with.
type Agency struct {
	Name  string
	Phone string
}

// Actor identifies who issued a command.
type Actor struct {
	Party domain.Party
	ID    string
}

// Manager builds a property-manager actor.
func Manager(id string) Actor {
	return Actor{Party: domain.PartyPropertyManager, ID: id}
}

// ContractorActor builds a contractor actor.
func ContractorActor(id string) Actor {
	return Actor{Party: domain.PartyContractor, ID: id}
}

// TenantActor builds a tenant actor.
func TenantActor(id string) Actor {
	return Actor{Party: domain.PartyTenant, ID: id}
}

// Notification is a message the engine wants delivered to one party.
// RecipientID is empty for the property-manager inbox.
type Notification struct {
	Audience    domain.Party
	RecipientID string
	QuoteID     *string
	Subject     string
	Body        string
}

// Plan is the complete outcome of an accepted command.
type Plan struct {
	Ticket        *domain.Ticket
	Quote         *domain.Quote
	NewQuote      bool
	ChangedQuotes []*domain.Quote
	Event         *domain.WorkflowEvent
	Notifications []Notification
}

// Engine evaluates workflow commands.
type Engine struct {
	agency Agency
	now    func() time.Time
	newID  func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides quote and event id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine constructs an engine speaking on behalf of agency.
func NewEngine(agency Agency, opts ...Option) *Engine {
	e := &Engine{
		agency: agency,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Agency returns the configured management company.
func (e *Engine) Agency() Agency {
	return e.agency
}

// CanMove reports whether workflowStatus may go from one value to another:
// forward or unchanged, plus the rejection edge back to contractor_notified.
func CanMove(from, to domain.WorkflowStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to.Rank() >= from.Rank() {
		return true
	}
	return from == domain.WorkflowQuoteReceived && to == domain.WorkflowContractorNotified
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

func (e *Engine) newPlan(ticket *domain.Ticket) *Plan {
	return &Plan{Ticket: ticket.Clone()}
}

// moveTo advances the plan's ticket, refusing any illegal edge.
func (p *Plan) moveTo(next domain.WorkflowStatus) error {
	current := p.Ticket.WorkflowStatus
	if !CanMove(current, next) {
		return apperrors.NewValidationError("illegal workflow transition", map[string]any{
			"from": current,
			"to":   next,
		})
	}
	p.Ticket.WorkflowStatus = next
	return nil
}

func (p *Plan) changeQuote(q *domain.Quote) {
	for i, existing := range p.ChangedQuotes {
		if existing.ID == q.ID {
			p.ChangedQuotes[i] = q
			return
		}
	}
	p.ChangedQuotes = append(p.ChangedQuotes, q)
}

func (p *Plan) notify(n Notification) {
	p.Notifications = append(p.Notifications, n)
}

func (e *Engine) event(ticket *domain.Ticket, quoteID *string, kind domain.WorkflowEventType, actor Actor, title, description string) *domain.WorkflowEvent {
	ev := &domain.WorkflowEvent{
		ID:          e.newID(),
		TicketID:    ticket.ID,
		EventType:   kind,
		Title:       title,
		Description: description,
		ActorType:   actor.Party,
		Metadata:    map[string]any{},
		CreatedAt:   e.timestamp(),
	}
	if quoteID != nil {
		id := *quoteID
		ev.QuoteID = &id
	}
	if actor.ID != "" {
		id := actor.ID
		ev.ActorID = &id
	}
	return ev
}

// finalize stamps recipients on the event from the planned notifications.
func (p *Plan) finalize() *Plan {
	seen := map[domain.Party]bool{}
	for _, n := range p.Notifications {
		if !seen[n.Audience] {
			seen[n.Audience] = true
			p.Event.Recipients = append(p.Event.Recipients, n.Audience)
		}
	}
	return p
}

func requireManager(actor Actor) error {
	if actor.Party != domain.PartyPropertyManager {
		return apperrors.NewForbidden("only a property manager can perform this action")
	}
	return nil
}

func requireOpenTicket(ticket *domain.Ticket) error {
	if ticket == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return apperrors.NewValidationError("ticket is closed", map[string]any{"ticket": ticket.Number})
	}
	return nil
}

func requireWorkflow(ticket *domain.Ticket, allowed ...domain.WorkflowStatus) error {
	for _, s := range allowed {
		if ticket.WorkflowStatus == s {
			return nil
		}
	}
	return apperrors.NewValidationError("action not allowed at current workflow status", map[string]any{
		"workflow_status": ticket.WorkflowStatus,
		"allowed":         allowed,
	})
}

func requireQuoteStatus(q *domain.Quote, allowed ...domain.QuoteStatus) error {
	for _, s := range allowed {
		if q.Status == s {
			return nil
		}
	}
	return apperrors.NewValidationError("action not allowed at current quote status", map[string]any{
		"quote_id":     q.ID,
		"quote_status": q.Status,
		"allowed":      allowed,
	})
}

func findQuote(ticket *domain.Ticket, quotes []*domain.Quote, quoteID string) (*domain.Quote, error) {
	for _, q := range quotes {
		if q.ID == quoteID && q.TicketID == ticket.ID {
			return q.Clone(), nil
		}
	}
	return nil, apperrors.NewNotFound("quote", map[string]any{"quote_id": quoteID, "ticket": ticket.Number})
}

func activeQuote(quotes []*domain.Quote, exceptID string) *domain.Quote {
	for _, q := range quotes {
		if q.ID != exceptID && q.Status.Active() {
			return q
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
