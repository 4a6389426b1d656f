package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	"github.com/jb-platform/maintenance-service/internal/workflow"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

const ticketNumberAttempts = 5

// TicketService coordinates ticket intake and the per-party views of a ticket.
type TicketService struct {
	store    repository.Store
	workflow *WorkflowService
	numbers  TicketNumberGenerator
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store    repository.Store
	Workflow *WorkflowService
	Numbers  TicketNumberGenerator
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:    deps.Store,
		workflow: deps.Workflow,
		numbers:  deps.Numbers,
	}
}

// TicketCreateInput describes ticket creation payload. TenantID is required
// when a PM logs the ticket and ignored for tenants.
type TicketCreateInput struct {
	TenantID    string
	PropertyID  string
	Subject     string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// TicketListFilter describes list parameters accepted from callers.
type TicketListFilter struct {
	TenantID         *string
	PropertyID       *string
	Statuses         []domain.TicketStatus
	WorkflowStatuses []domain.WorkflowStatus
	Priorities       []domain.TicketPriority
	Categories       []domain.TicketCategory
	SearchTerm       *string
	Limit            int
	Offset           int
}

// TicketDetail is a ticket with its collections as the viewer may see them.
type TicketDetail struct {
	Ticket         *domain.Ticket
	Quotes         []*domain.Quote
	Events         []*domain.WorkflowEvent
	Communications []*domain.Communication
	// Restricted is set when the view was reduced for a tenant or contractor.
	Restricted bool
}

// CreateTicket logs a maintenance request and acknowledges it to the tenant.
func (s *TicketService) CreateTicket(ctx context.Context, p *auth.Principal, input TicketCreateInput) (*TransitionResult, error) {
	if !p.Can(domain.CapTicketsCreate) {
		return nil, apperrors.NewForbidden("cannot create tickets")
	}

	tenantID := strings.TrimSpace(input.TenantID)
	actor := p.Actor()
	if p.Role == domain.RoleTenant {
		tenantID = p.Party()
		actor = workflow.TenantActor(tenantID)
	}
	if tenantID == "" {
		return nil, apperrors.NewValidationError("tenant_id required", nil)
	}
	if err := requireUUID(tenantID, "tenant"); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	category := input.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	if !category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": category})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	tenant, err := s.store.Repos().Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, mapRepoError(err, "tenant")
	}
	propertyID := strings.TrimSpace(input.PropertyID)
	if propertyID == "" {
		propertyID = tenant.PropertyID
	}

	// a number can already be taken when the sequence was reset
	var lastErr error
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		ticket := &domain.Ticket{
			Number:         number,
			TenantID:       tenant.ID,
			PropertyID:     propertyID,
			Subject:        subject,
			Description:    strings.TrimSpace(input.Description),
			Category:       category,
			Priority:       priority,
			Status:         domain.TicketStatusOpen,
			WorkflowStatus: domain.WorkflowNew,
		}
		res, err := s.workflow.Receive(ctx, actor, ticket)
		if !apperrors.IsCode(err, apperrors.CodeConflict) {
			return res, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListTickets returns tickets visible to the principal.
func (s *TicketService) ListTickets(ctx context.Context, p *auth.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		TenantID:         filter.TenantID,
		PropertyID:       filter.PropertyID,
		Statuses:         filter.Statuses,
		WorkflowStatuses: filter.WorkflowStatuses,
		Priorities:       filter.Priorities,
		Categories:       filter.Categories,
		SearchTerm:       filter.SearchTerm,
		Limit:            filter.Limit,
		Offset:           filter.Offset,
	}
	switch {
	case p.Can(domain.CapTicketsViewAll):
	case p.Can(domain.CapTicketsViewOwn) && p.Party() != "":
		tenantID := p.Party()
		repoFilter.TenantID = &tenantID
	default:
		return nil, apperrors.NewForbidden("cannot list tickets")
	}
	if repoFilter.TenantID != nil {
		if _, err := uuid.Parse(*repoFilter.TenantID); err != nil {
			return []domain.Ticket{}, nil
		}
	}
	tickets, err := s.store.Repos().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return tickets, nil
}

// GetTicket loads a ticket and its collections in parallel and trims them
// to what the principal may see.
func (s *TicketService) GetTicket(ctx context.Context, p *auth.Principal, ref string) (*TicketDetail, error) {
	repos := s.store.Repos()
	ticket, err := loadTicket(ctx, repos.Tickets, ref)
	if err != nil {
		return nil, err
	}

	detail := &TicketDetail{Ticket: ticket}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quotes, err := repos.Quotes.ListByTicket(gctx, ticket.ID)
		detail.Quotes = quotes
		return err
	})
	g.Go(func() error {
		evts, err := repos.Events.ListByTicket(gctx, ticket.ID)
		detail.Events = evts
		return err
	})
	g.Go(func() error {
		comms, err := repos.Communications.ListByTicket(gctx, ticket.ID, repository.CommunicationFilter{})
		detail.Communications = comms
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, mapRepoError(err, "ticket")
	}

	if err := restrictDetail(p, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// ContractorQuotes lists the calling contractor's quotes across tickets.
func (s *TicketService) ContractorQuotes(ctx context.Context, p *auth.Principal) ([]*domain.Quote, error) {
	if p.Role != domain.RoleContractor || p.Party() == "" {
		return nil, apperrors.NewForbidden("only contractors have quotes")
	}
	quotes, err := s.store.Repos().Quotes.ListByContractor(ctx, p.Party())
	if err != nil {
		return nil, mapRepoError(err, "quote")
	}
	return quotes, nil
}

// restrictDetail keeps tenants and contractors inside their own silo. A
// tenant never sees quotes. A contractor sees only its own quotes and
// never the tenant.
func restrictDetail(p *auth.Principal, detail *TicketDetail) error {
	if p.Can(domain.CapTicketsViewAll) {
		return nil
	}
	party := p.Party()
	switch {
	case p.Role == domain.RoleTenant && party != "" && detail.Ticket.TenantID == party:
		detail.Restricted = true
		detail.Quotes = nil
		detail.Events = keepIf(detail.Events, func(e *domain.WorkflowEvent) bool { return e.TenantFacing() })
		detail.Communications = keepIf(detail.Communications, func(c *domain.Communication) bool {
			return c.Audience == domain.PartyTenant && c.RecipientID == party
		})
		return nil
	case p.Role == domain.RoleContractor && party != "":
		own := keepIf(detail.Quotes, func(q *domain.Quote) bool { return q.ContractorID == party })
		if len(own) == 0 {
			break
		}
		detail.Restricted = true
		detail.Quotes = own
		detail.Events = nil
		detail.Communications = keepIf(detail.Communications, func(c *domain.Communication) bool {
			return c.Audience == domain.PartyContractor && c.RecipientID == party
		})
		t := *detail.Ticket
		t.TenantID = ""
		detail.Ticket = &t
		return nil
	}
	return apperrors.NewNotFound("ticket", nil)
}

// ViewFor returns the result as p may see it, with the same silos as
// GetTicket. Staff who can view every ticket get it unchanged.
func (r *TransitionResult) ViewFor(p *auth.Principal) *TransitionResult {
	if r == nil || p.Can(domain.CapTicketsViewAll) {
		return r
	}
	party := p.Party()
	out := &TransitionResult{Ticket: r.Ticket}
	switch {
	case p.Role == domain.RoleTenant && party != "" && r.Ticket.TenantID == party:
		out.Events = keepIf(r.Events, func(e *domain.WorkflowEvent) bool { return e.TenantFacing() })
		out.DeliveryErrors = keepIf(r.DeliveryErrors, func(d DeliveryError) bool { return d.Audience == domain.PartyTenant })
		return out
	case p.Role == domain.RoleContractor && party != "":
		out.Quotes = keepIf(r.Quotes, func(q *domain.Quote) bool { return q.ContractorID == party })
		if r.Quote != nil && r.Quote.ContractorID == party {
			out.Quote = r.Quote
		}
		out.DeliveryErrors = keepIf(r.DeliveryErrors, func(d DeliveryError) bool { return d.Audience == domain.PartyContractor })
	}
	t := *r.Ticket
	t.TenantID = ""
	out.Ticket = &t
	return out
}

func keepIf[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// UpdateStatus moves the customer-service status of a ticket.
func (s *TicketService) UpdateStatus(ctx context.Context, p *auth.Principal, ref string, next domain.TicketStatus, comment string) (*TransitionResult, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": next})
	}
	return s.workflow.ChangeStatus(ctx, p.Actor(), ref, next, strings.TrimSpace(comment))
}

// UpdatePriority changes the urgency of a ticket.
func (s *TicketService) UpdatePriority(ctx context.Context, p *auth.Principal, ref string, next domain.TicketPriority) (*TransitionResult, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": next})
	}
	return s.workflow.ChangePriority(ctx, p.Actor(), ref, next)
}
