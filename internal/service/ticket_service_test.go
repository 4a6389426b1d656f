package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

func TestCreateTicketAcknowledgesTenant(t *testing.T) {
	f := newFixture(t)

	res, err := f.tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: "  Boiler broken  "})
	require.NoError(t, err)

	ticket := res.Ticket
	assert.Equal(t, "JB-001", ticket.Number)
	assert.Equal(t, "Boiler broken", ticket.Subject)
	assert.Equal(t, f.tenant.ID, ticket.TenantID)
	assert.Equal(t, "flat-4", ticket.PropertyID)
	assert.Equal(t, domain.CategoryGeneral, ticket.Category)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.WorkflowNew, ticket.WorkflowStatus)

	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.EventTicketReceived, res.Events[0].EventType)
	assert.Equal(t, []domain.Party{domain.PartyTenant}, res.Events[0].Recipients)
	assert.Equal(t, domain.PartyTenant, res.Events[0].ActorType)

	msgs := f.sender.to(tenantPhone)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "JB-001")
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: " "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: "x", Priority: "whenever"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(f.ctx, f.pm, TicketCreateInput{Subject: "No tenant"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(f.ctx, f.contractorPrincipal(), TicketCreateInput{Subject: "x"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	res, err := f.tickets.CreateTicket(f.ctx, f.pm, TicketCreateInput{TenantID: f.tenant.ID, Subject: "Logged by phone", Priority: domain.TicketPriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, domain.PartyPropertyManager, res.Events[0].ActorType)
}

func TestListTicketsScopesTenants(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	other, err := f.parties.CreateTenant(f.ctx, TenantInput{Name: "Olly Other", Email: "olly@example.com", PropertyID: "flat-9"})
	require.NoError(t, err)
	_, err = f.tickets.CreateTicket(f.ctx, f.pm, TicketCreateInput{TenantID: other.ID, Subject: "Broken window"})
	require.NoError(t, err)

	all, err := f.tickets.ListTickets(f.ctx, f.pm, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// the tenant filter in the request is overridden
	own, err := f.tickets.ListTickets(f.ctx, f.tenantPrincipal(), TicketListFilter{TenantID: &other.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.tenant.ID, own[0].TenantID)

	_, err = f.tickets.ListTickets(f.ctx, f.contractorPrincipal(), TicketListFilter{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestGetTicketProjections(t *testing.T) {
	f := newFixture(t)
	number, _ := f.quoted(t, 25000)

	full, err := f.tickets.GetTicket(f.ctx, f.pm, number)
	require.NoError(t, err)
	assert.False(t, full.Restricted)
	assert.Len(t, full.Quotes, 1)
	assert.Len(t, full.Events, 3)
	assert.Len(t, full.Communications, 3)

	tenantView, err := f.tickets.GetTicket(f.ctx, f.tenantPrincipal(), number)
	require.NoError(t, err)
	assert.True(t, tenantView.Restricted)
	assert.Empty(t, tenantView.Quotes)
	require.Len(t, tenantView.Events, 1)
	assert.Equal(t, domain.EventTicketReceived, tenantView.Events[0].EventType)
	require.Len(t, tenantView.Communications, 1)
	assert.Equal(t, domain.PartyTenant, tenantView.Communications[0].Audience)

	contractorView, err := f.tickets.GetTicket(f.ctx, f.contractorPrincipal(), number)
	require.NoError(t, err)
	assert.True(t, contractorView.Restricted)
	assert.Len(t, contractorView.Quotes, 1)
	assert.Empty(t, contractorView.Events)
	assert.Empty(t, contractorView.Ticket.TenantID)
	require.Len(t, contractorView.Communications, 1)
	assert.Equal(t, domain.PartyContractor, contractorView.Communications[0].Audience)

	stranger := principal("t2", domain.RoleTenant, strPtr("another-tenant"))
	_, err = f.tickets.GetTicket(f.ctx, stranger, number)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	quotes, err := f.tickets.ContractorQuotes(f.ctx, f.contractorPrincipal())
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	_, err = f.tickets.ContractorQuotes(f.ctx, f.pm)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestUpdateStatusAndPriority(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)

	res, err := f.tickets.UpdatePriority(f.ctx, f.pm, number, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, res.Ticket.Priority)

	_, err = f.tickets.UpdatePriority(f.ctx, f.pm, number, "soon")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.tickets.UpdateStatus(f.ctx, f.tenantPrincipal(), number, domain.TicketStatusClosed, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.GetTicket(f.ctx, f.pm, "JB-404")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func strPtr(s string) *string { return &s }

func TestTransitionViewForKeepsPartiesApart(t *testing.T) {
	f := newFixture(t)
	number, quoteID := f.quoted(t, 25000)

	rival, err := f.parties.CreateContractor(f.ctx, ContractorInput{Name: "Rapid Pipes", Trade: domain.CategoryPlumbing, Email: "ops@rapidpipes.example"})
	require.NoError(t, err)
	res, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, rival.ID)
	require.NoError(t, err)
	require.Len(t, res.Quotes, 2)
	res.DeliveryErrors = []DeliveryError{
		{Audience: domain.PartyContractor, Error: "smtp down"},
		{Audience: domain.PartyTenant, Error: "whatsapp down"},
	}

	assert.Same(t, res, res.ViewFor(f.pm))

	rivalView := res.ViewFor(principal("rival-user", domain.RoleContractor, &rival.ID))
	assert.Empty(t, rivalView.Ticket.TenantID)
	assert.Empty(t, rivalView.Events)
	require.NotNil(t, rivalView.Quote)
	assert.Equal(t, rival.ID, rivalView.Quote.ContractorID)
	require.Len(t, rivalView.Quotes, 1)
	assert.Equal(t, rival.ID, rivalView.Quotes[0].ContractorID)
	require.Len(t, rivalView.DeliveryErrors, 1)
	assert.Equal(t, domain.PartyContractor, rivalView.DeliveryErrors[0].Audience)
	assert.Equal(t, f.tenant.ID, res.Ticket.TenantID, "projection must not mutate the original")

	firstView := res.ViewFor(f.contractorPrincipal())
	assert.Nil(t, firstView.Quote)
	require.Len(t, firstView.Quotes, 1)
	assert.Equal(t, quoteID, firstView.Quotes[0].ID)

	tenantView := res.ViewFor(f.tenantPrincipal())
	assert.Equal(t, f.tenant.ID, tenantView.Ticket.TenantID)
	assert.Nil(t, tenantView.Quote)
	assert.Empty(t, tenantView.Quotes)
	assert.Empty(t, tenantView.Events, "assigning a contractor is not tenant-facing")
	require.Len(t, tenantView.DeliveryErrors, 1)
	assert.Equal(t, domain.PartyTenant, tenantView.DeliveryErrors[0].Audience)

	strangerView := res.ViewFor(principal("other-tenant", domain.RoleTenant, strPtr("someone-else")))
	assert.Empty(t, strangerView.Ticket.TenantID)
	assert.Empty(t, strangerView.Quotes)
}

// resetNumbers replays numbers in order, like a sequence that was reset.
type resetNumbers struct{ numbers []string }

func (r *resetNumbers) Next(context.Context) (string, error) {
	n := r.numbers[0]
	if len(r.numbers) > 1 {
		r.numbers = r.numbers[1:]
	}
	return n, nil
}

func TestCreateTicketSkipsNumbersAlreadyTaken(t *testing.T) {
	f := newFixture(t)
	first, err := f.tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: "Boiler broken"})
	require.NoError(t, err)
	require.Equal(t, "JB-001", first.Ticket.Number)

	tickets := NewTicketService(TicketDependencies{
		Store:    f.store,
		Workflow: f.workflow,
		Numbers:  &resetNumbers{numbers: []string{"JB-001", "JB-001", "JB-002"}},
	})
	res, err := tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: "Window stuck"})
	require.NoError(t, err)
	assert.Equal(t, "JB-002", res.Ticket.Number)

	stuck := NewTicketService(TicketDependencies{
		Store:    f.store,
		Workflow: f.workflow,
		Numbers:  &resetNumbers{numbers: []string{"JB-002"}},
	})
	_, err = stuck.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{Subject: "Door jammed"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	all, err := f.store.Repos().Tickets.List(f.ctx, repository.TicketFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
