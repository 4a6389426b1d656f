package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/config"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/persistence"
	"github.com/jb-platform/maintenance-service/internal/repository"
)

// newPostgresStore boots a throwaway Postgres, applies migrations and returns
// a store over it. Set INTEGRATION_TESTS=1 to run.
func newPostgresStore(t *testing.T) repository.Store {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run postgres tests")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("maintenance"),
		postgres.WithUsername("maintenance"),
		postgres.WithPassword("maintenance"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 8}, logger)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pg.Pool, "../../migrations", logger))
	return repository.NewPostgresStore(pg.Pool)
}

func seedTicket(t *testing.T, ctx context.Context, repos repository.Repositories, number string) (*domain.Tenant, *domain.Ticket) {
	t.Helper()
	tenant := &domain.Tenant{Name: "Tina", Phone: "+447700900100", PropertyID: "flat-4", PreferredChannel: domain.ChannelWhatsApp}
	require.NoError(t, repos.Tenants.Create(ctx, tenant))

	ticket := &domain.Ticket{
		Number:         number,
		TenantID:       tenant.ID,
		PropertyID:     tenant.PropertyID,
		Subject:        "Leaking tap",
		Category:       domain.CategoryPlumbing,
		Priority:       domain.TicketPriorityMedium,
		Status:         domain.TicketStatusOpen,
		WorkflowStatus: domain.WorkflowNew,
	}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	return tenant, ticket
}

func TestPostgresTicketVersioning(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	repos := store.Repos()

	tenant, ticket := seedTicket(t, ctx, repos, "JB-00001")
	assert.Equal(t, 1, ticket.Version)

	dup := *ticket
	err := repos.Tickets.Create(ctx, &dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stale := *ticket
	ticket.WorkflowStatus = domain.WorkflowContractorNotified
	require.NoError(t, repos.Tickets.Update(ctx, ticket))
	assert.Equal(t, 2, ticket.Version)

	stale.Priority = domain.TicketPriorityHigh
	assert.ErrorIs(t, repos.Tickets.Update(ctx, &stale), repository.ErrVersionConflict)

	loaded, err := repos.Tickets.GetByNumber(ctx, "jb-00001")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowContractorNotified, loaded.WorkflowStatus)
	assert.Equal(t, domain.TicketPriorityMedium, loaded.Priority)

	_, err = repos.Tickets.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	listed, err := repos.Tickets.List(ctx, repository.TicketFilter{
		TenantID:         &tenant.ID,
		WorkflowStatuses: []domain.WorkflowStatus{domain.WorkflowContractorNotified},
	})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, ticket.ID, listed[0].ID)
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	_, ticket := seedTicket(t, ctx, store.Repos(), "JB-00002")

	contractor := &domain.Contractor{Name: "Dave", Trade: domain.CategoryPlumbing, Email: "dave@example.com", PreferredChannel: domain.ChannelEmail, Active: true}
	require.NoError(t, store.Repos().Contractors.Create(ctx, contractor))

	boom := errors.New("delivery planning failed")
	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := time.Now().UTC()
		quote := &domain.Quote{
			ID:           uuid.NewString(),
			TicketID:     ticket.ID,
			ContractorID: contractor.ID,
			Status:       domain.QuoteStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Quotes.Create(ctx, quote); err != nil {
			return err
		}
		ticket.WorkflowStatus = domain.WorkflowContractorNotified
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	quotes, err := store.Repos().Quotes.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, quotes)

	loaded, err := store.Repos().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowNew, loaded.WorkflowStatus)
	assert.Equal(t, 1, loaded.Version)
}

func TestPostgresSingleActiveQuote(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	repos := store.Repos()
	_, ticket := seedTicket(t, ctx, repos, "JB-00003")

	var quotes []*domain.Quote
	for _, email := range []string{"a@example.com", "b@example.com"} {
		c := &domain.Contractor{Name: email, Trade: domain.CategoryPlumbing, Email: email, PreferredChannel: domain.ChannelEmail, Active: true}
		require.NoError(t, repos.Contractors.Create(ctx, c))
		now := time.Now().UTC()
		q := &domain.Quote{ID: uuid.NewString(), TicketID: ticket.ID, ContractorID: c.ID, Status: domain.QuoteStatusPending, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repos.Quotes.Create(ctx, q))
		quotes = append(quotes, q)
	}

	quotes[0].Status = domain.QuoteStatusScheduled
	require.NoError(t, repos.Quotes.Update(ctx, quotes[0]))
	quotes[1].Status = domain.QuoteStatusScheduled
	assert.Error(t, repos.Quotes.Update(ctx, quotes[1]))

	mine, err := repos.Quotes.ListByContractor(ctx, quotes[0].ContractorID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.QuoteStatusScheduled, mine[0].Status)
}

func TestPostgresCommunicationLifecycle(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	repos := store.Repos()
	tenant, ticket := seedTicket(t, ctx, repos, "JB-00004")

	comm := &domain.Communication{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Audience:    domain.PartyTenant,
		RecipientID: tenant.ID,
		Channel:     domain.ChannelWhatsApp,
		Address:     tenant.Phone,
		Subject:     "Ticket received",
		Body:        "We have your request",
		Status:      domain.DeliveryPending,
	}
	require.NoError(t, repos.Communications.Create(ctx, comm))
	assert.False(t, comm.CreatedAt.IsZero())

	comm.Status = domain.DeliveryFailed
	comm.LastError = "provider responded 503"
	comm.Attempts = 1
	require.NoError(t, repos.Communications.Update(ctx, comm))

	audience := domain.PartyTenant
	listed, err := repos.Communications.ListByTicket(ctx, ticket.ID, repository.CommunicationFilter{Audience: &audience})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, comm.ID, listed[0].ID)
	assert.Equal(t, domain.DeliveryFailed, listed[0].Status)
	assert.Equal(t, "provider responded 503", listed[0].LastError)

	stored, err := repos.Communications.GetByID(ctx, comm.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)

	contractors := domain.PartyContractor
	none, err := repos.Communications.ListByTicket(ctx, ticket.ID, repository.CommunicationFilter{Audience: &contractors})
	require.NoError(t, err)
	assert.Empty(t, none)
}
