package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/events"
	"github.com/jb-platform/maintenance-service/internal/observability"
	"github.com/jb-platform/maintenance-service/internal/repository"
	"github.com/jb-platform/maintenance-service/internal/workflow"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// WorkflowService runs workflow commands: load, plan, persist atomically,
// then hand the planned notifications to the dispatcher.
type WorkflowService struct {
	store      repository.Store
	engine     *workflow.Engine
	dispatcher events.Dispatcher
	inbox      domain.Contact
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	Store      repository.Store
	Engine     *workflow.Engine
	Dispatcher events.Dispatcher
	// ManagerInbox is where property-manager notifications are delivered.
	ManagerInbox domain.Contact
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		store:      deps.Store,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		inbox:      deps.ManagerInbox,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// DeliveryError reports a notification that could not be delivered. The
// workflow step it belongs to has already been committed.
type DeliveryError struct {
	CommunicationID string         `json:"communication_id,omitempty"`
	Audience        domain.Party   `json:"audience"`
	Channel         domain.Channel `json:"channel,omitempty"`
	Error           string         `json:"error"`
}

// TransitionResult is what every workflow command returns.
type TransitionResult struct {
	Ticket         *domain.Ticket
	Quote          *domain.Quote
	Quotes         []*domain.Quote
	Events         []*domain.WorkflowEvent
	DeliveryErrors []DeliveryError
}

type planner func(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error)

// AssignContractor invites a contractor to quote for the ticket.
func (s *WorkflowService) AssignContractor(ctx context.Context, actor workflow.Actor, ticketRef, contractorID string) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		if err := requireUUID(contractorID, "contractor"); err != nil {
			return nil, err
		}
		contractor, err := repos.Contractors.GetByID(ctx, contractorID)
		if err != nil {
			return nil, mapRepoError(err, "contractor")
		}
		return s.engine.AssignContractor(ticket, quotes, contractor, actor)
	})
}

// SubmitQuote records the contractor's price and availability.
func (s *WorkflowService) SubmitQuote(ctx context.Context, actor workflow.Actor, ticketRef, quoteID string, in workflow.SubmitQuoteInput) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.SubmitQuote(ticket, quotes, quoteID, in, actor)
	})
}

// DeclineQuote records the contractor turning the job down.
func (s *WorkflowService) DeclineQuote(ctx context.Context, actor workflow.Actor, ticketRef, quoteID, reason string) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.DeclineQuote(ticket, quotes, quoteID, reason, actor)
	})
}

// ApproveQuote books the quote and supersedes the others.
func (s *WorkflowService) ApproveQuote(ctx context.Context, actor workflow.Actor, ticketRef, quoteID string, in workflow.ApproveInput) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.ApproveQuote(ticket, quotes, quoteID, in, actor)
	})
}

// RejectQuote turns a quote down.
func (s *WorkflowService) RejectQuote(ctx context.Context, actor workflow.Actor, ticketRef, quoteID, reason string) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.RejectQuote(ticket, quotes, quoteID, reason, actor)
	})
}

// StartWork marks the scheduled job as under way.
func (s *WorkflowService) StartWork(ctx context.Context, actor workflow.Actor, ticketRef, quoteID string) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.StartWork(ticket, quotes, quoteID, actor)
	})
}

// CompleteWork closes out the job and resolves the ticket.
func (s *WorkflowService) CompleteWork(ctx context.Context, actor workflow.Actor, ticketRef, quoteID string, in workflow.CompleteInput) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.CompleteWork(ticket, quotes, quoteID, in, actor)
	})
}

// ChangeStatus moves the customer-service status.
func (s *WorkflowService) ChangeStatus(ctx context.Context, actor workflow.Actor, ticketRef string, next domain.TicketStatus, comment string) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, quotes []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.ChangeStatus(ticket, quotes, next, comment, actor)
	})
}

// ChangePriority re-ranks the ticket.
func (s *WorkflowService) ChangePriority(ctx context.Context, actor workflow.Actor, ticketRef string, next domain.TicketPriority) (*TransitionResult, error) {
	return s.execute(ctx, ticketRef, actor, func(_ context.Context, _ repository.Repositories, ticket *domain.Ticket, _ []*domain.Quote) (*workflow.Plan, error) {
		return s.engine.ChangePriority(ticket, next, actor)
	})
}

// Receive stores a new ticket together with its ticket_received event and
// sends the tenant the acknowledgement.
func (s *WorkflowService) Receive(ctx context.Context, actor workflow.Actor, ticket *domain.Ticket) (*TransitionResult, error) {
	var (
		plan     *workflow.Plan
		messages []events.OutboundMessage
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return mapRepoError(err, "ticket")
		}
		var err error
		plan, err = s.engine.ReceiveTicket(ticket, actor)
		if err != nil {
			return err
		}
		if messages, err = s.resolveMessages(ctx, repos, plan); err != nil {
			return err
		}
		return repos.Events.Append(ctx, plan.Event)
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	result := &TransitionResult{Ticket: ticket, Events: []*domain.WorkflowEvent{plan.Event}}
	s.metrics.RecordTransition(string(plan.Event.EventType))
	result.DeliveryErrors = s.publish(ctx, ticket, plan, actor, messages)
	return result, nil
}

func (s *WorkflowService) execute(ctx context.Context, ticketRef string, actor workflow.Actor, plan planner) (*TransitionResult, error) {
	var (
		result   TransitionResult
		planned  *workflow.Plan
		messages []events.OutboundMessage
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := loadTicket(ctx, repos.Tickets, ticketRef)
		if err != nil {
			return err
		}
		ledger := NewQuoteLedger(repos)
		quotes, err := ledger.QuotesForTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if planned, err = plan(ctx, repos, ticket, quotes); err != nil {
			return err
		}
		if messages, err = s.resolveMessages(ctx, repos, planned); err != nil {
			return err
		}
		if err := s.persist(ctx, repos, ledger, planned); err != nil {
			return err
		}
		if result.Quotes, err = ledger.QuotesForTicket(ctx, ticket.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}

	result.Ticket = planned.Ticket
	result.Quote = planned.Quote
	result.Events = []*domain.WorkflowEvent{planned.Event}
	s.metrics.RecordTransition(string(planned.Event.EventType))
	result.DeliveryErrors = s.publish(ctx, planned.Ticket, planned, actor, messages)
	return &result, nil
}

func (s *WorkflowService) persist(ctx context.Context, repos repository.Repositories, ledger *QuoteLedger, plan *workflow.Plan) error {
	if err := repos.Tickets.Update(ctx, plan.Ticket); err != nil {
		return mapRepoError(err, "ticket")
	}
	if plan.NewQuote {
		if err := ledger.Append(ctx, plan.Quote); err != nil {
			return err
		}
	}
	for _, q := range plan.ChangedQuotes {
		if err := ledger.Save(ctx, q); err != nil {
			return err
		}
	}
	return repos.Events.Append(ctx, plan.Event)
}

// resolveMessages picks a channel and address for every planned
// notification and stamps the channels used on the event.
func (s *WorkflowService) resolveMessages(ctx context.Context, repos repository.Repositories, plan *workflow.Plan) ([]events.OutboundMessage, error) {
	messages := make([]events.OutboundMessage, 0, len(plan.Notifications))
	seen := map[domain.Channel]bool{}
	for _, n := range plan.Notifications {
		contact, err := s.contactFor(ctx, repos, n.Audience, n.RecipientID)
		if err != nil {
			return nil, err
		}
		msg := events.OutboundMessage{
			Audience:    n.Audience,
			RecipientID: n.RecipientID,
			QuoteID:     n.QuoteID,
			Subject:     n.Subject,
			Body:        n.Body,
		}
		if channel, address, ok := contact.ResolveChannel(); ok {
			msg.Channel = channel
			msg.Address = address
			if !seen[channel] {
				seen[channel] = true
				plan.Event.NotificationChannels = append(plan.Event.NotificationChannels, channel)
			}
		} else {
			s.logger.Warn("no reachable contact for notification",
				zap.String("ticket_id", plan.Ticket.ID),
				zap.String("audience", string(n.Audience)),
				zap.String("recipient_id", n.RecipientID))
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *WorkflowService) contactFor(ctx context.Context, repos repository.Repositories, audience domain.Party, recipientID string) (domain.Contact, error) {
	switch audience {
	case domain.PartyTenant:
		tenant, err := repos.Tenants.GetByID(ctx, recipientID)
		if err != nil {
			return domain.Contact{}, mapRepoError(err, "tenant")
		}
		return tenant.Contact(), nil
	case domain.PartyContractor:
		contractor, err := repos.Contractors.GetByID(ctx, recipientID)
		if err != nil {
			return domain.Contact{}, mapRepoError(err, "contractor")
		}
		return contractor.Contact(), nil
	default:
		return s.inbox, nil
	}
}

// publish hands the committed step to the dispatcher and collects the
// delivery failures the notification handlers report.
func (s *WorkflowService) publish(ctx context.Context, ticket *domain.Ticket, plan *workflow.Plan, actor workflow.Actor, messages []events.OutboundMessage) []DeliveryError {
	if s.dispatcher == nil || len(messages) == 0 {
		return nil
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventNotificationRequested,
		TicketID:  ticket.ID,
		Actor:     eventActor(actor),
		Timestamp: time.Now().UTC(),
		Payload: events.NotificationRequestedPayload{
			WorkflowEventID: plan.Event.ID,
			EventType:       plan.Event.EventType,
			TicketNumber:    ticket.Number,
			QuoteID:         plan.Event.QuoteID,
			Messages:        messages,
		},
	}
	err := s.dispatcher.Publish(ctx, event)
	if err == nil {
		return nil
	}
	var failures *DeliveryFailures
	if errors.As(err, &failures) {
		return failures.Failures
	}
	s.logger.Error("notification dispatch failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	return []DeliveryError{{Error: err.Error()}}
}

func eventActor(actor workflow.Actor) events.Actor {
	a := events.Actor{Party: actor.Party}
	if actor.ID != "" {
		id := actor.ID
		a.ID = &id
	}
	return a
}

// loadTicket accepts either the internal id or the JB number.
func loadTicket(ctx context.Context, tickets repository.TicketRepository, ref string) (*domain.Ticket, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.NewValidationError("ticket reference required", nil)
	}
	var (
		ticket *domain.Ticket
		err    error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		ticket, err = tickets.GetByID(ctx, ref)
	} else {
		ticket, err = tickets.GetByNumber(ctx, ref)
	}
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return ticket, nil
}

func requireUUID(id, resource string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return nil
}
