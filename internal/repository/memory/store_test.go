package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
)

func seedTicket(t *testing.T, s *Store, number string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Number:         number,
		TenantID:       "tenant-1",
		PropertyID:     "prop-1",
		Subject:        "Leaking tap",
		Category:       domain.CategoryPlumbing,
		Priority:       domain.TicketPriorityMedium,
		Status:         domain.TicketStatusOpen,
		WorkflowStatus: domain.WorkflowNew,
	}
	require.NoError(t, s.Repos().Tickets.Create(context.Background(), ticket))
	return ticket
}

func TestTicketCreateAssignsIdentity(t *testing.T) {
	s := NewStore()
	ticket := seedTicket(t, s, "JB-00001")

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, 1, ticket.Version)

	got, err := s.Repos().Tickets.GetByNumber(context.Background(), "jb-00001")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	dup := &domain.Ticket{Number: "JB-00001"}
	assert.ErrorIs(t, s.Repos().Tickets.Create(context.Background(), dup), repository.ErrDuplicate)
}

func TestTicketMaxSequenceIgnoresFallbackKeys(t *testing.T) {
	s := NewStore()
	max, err := s.Repos().Tickets.MaxSequence(context.Background())
	require.NoError(t, err)
	assert.Zero(t, max)

	seedTicket(t, s, "JB-00007")
	seedTicket(t, s, "JB-00012")
	seedTicket(t, s, "JB-R1A2B3C")
	seedTicket(t, s, "JB-+99")

	max, err = s.Repos().Tickets.MaxSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), max)
}

func TestTicketUpdateDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ticket := seedTicket(t, s, "JB-00001")

	first, err := s.Repos().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := s.Repos().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)

	first.WorkflowStatus = domain.WorkflowContractorNotified
	require.NoError(t, s.Repos().Tickets.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Priority = domain.TicketPriorityUrgent
	assert.ErrorIs(t, s.Repos().Tickets.Update(ctx, second), repository.ErrVersionConflict)

	missing := &domain.Ticket{ID: "nope", Version: 1}
	assert.ErrorIs(t, s.Repos().Tickets.Update(ctx, missing), repository.ErrNotFound)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ticket := seedTicket(t, s, "JB-00001")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket.WorkflowStatus = domain.WorkflowContractorNotified
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := repos.Quotes.Create(ctx, &domain.Quote{TicketID: ticket.ID, ContractorID: "c1", Status: domain.QuoteStatusPending}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.Repos().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowNew, stored.WorkflowStatus)
	assert.Equal(t, 1, stored.Version)

	quotes, err := s.Repos().Quotes.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ticket := seedTicket(t, s, "JB-00001")

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Events.Append(ctx, &domain.WorkflowEvent{
			TicketID:   ticket.ID,
			EventType:  domain.EventTicketReceived,
			Title:      "Ticket received",
			Recipients: []domain.Party{domain.PartyTenant},
			ActorType:  domain.PartyTenant,
			Metadata:   map[string]any{"priority": "medium"},
		})
	})
	require.NoError(t, err)

	events, err := s.Repos().Events.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)

	// returned events are copies
	events[0].Recipients[0] = domain.PartyContractor
	again, err := s.Repos().Events.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PartyTenant, again[0].Recipients[0])
}

func TestTicketListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedTicket(t, s, "JB-00001")
	urgent := &domain.Ticket{
		Number: "JB-00002", TenantID: "tenant-2", PropertyID: "prop-2", Subject: "No heating",
		Category: domain.CategoryHeating, Priority: domain.TicketPriorityUrgent,
		Status: domain.TicketStatusOpen, WorkflowStatus: domain.WorkflowNew,
	}
	require.NoError(t, s.Repos().Tickets.Create(ctx, urgent))

	tenant := "tenant-2"
	list, err := s.Repos().Tickets.List(ctx, repository.TicketFilter{TenantID: &tenant})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "JB-00002", list[0].Number)

	term := "TAP"
	list, err = s.Repos().Tickets.List(ctx, repository.TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "JB-00001", list[0].Number)

	list, err = s.Repos().Tickets.List(ctx, repository.TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityLow}})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommunicationFilterAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repos()

	assert.ErrorIs(t, repos.Communications.Create(ctx, &domain.Communication{TicketID: "t1", Audience: domain.PartyTenant, Body: "no id"}), ErrInvalidID)

	tenantMsg := &domain.Communication{ID: uuid.NewString(), TicketID: "t1", Audience: domain.PartyTenant, RecipientID: "tenant-1",
		Channel: domain.ChannelWhatsApp, Address: "+447700900001", Body: "hi", Status: domain.DeliveryPending}
	contractorMsg := &domain.Communication{ID: uuid.NewString(), TicketID: "t1", Audience: domain.PartyContractor, RecipientID: "c1",
		Channel: domain.ChannelEmail, Address: "c1@example.com", Body: "job", Status: domain.DeliveryPending}
	require.NoError(t, repos.Communications.Create(ctx, tenantMsg))
	require.NoError(t, repos.Communications.Create(ctx, contractorMsg))

	audience := domain.PartyTenant
	list, err := repos.Communications.ListByTicket(ctx, "t1", repository.CommunicationFilter{Audience: &audience})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tenantMsg.ID, list[0].ID)

	contractorMsg.Status = domain.DeliveryFailed
	contractorMsg.LastError = "smtp down"
	contractorMsg.Attempts = 1
	contractorMsg.Body = "ignored"
	require.NoError(t, repos.Communications.Update(ctx, contractorMsg))

	stored, err := repos.Communications.GetByID(ctx, contractorMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, stored.Status)
	assert.Equal(t, "job", stored.Body)
	assert.Equal(t, 1, stored.Attempts)
}

func TestUserEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := &domain.User{Name: "Pat", Email: "Pat@Example.com", Role: domain.RolePropertyManager, Active: true}
	require.NoError(t, s.Repos().Users.Create(ctx, user))

	got, err := s.Repos().Users.GetByEmail(ctx, "PAT@example.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	assert.ErrorIs(t, s.Repos().Users.Create(ctx, &domain.User{Email: "pat@example.com"}), repository.ErrDuplicate)
}
