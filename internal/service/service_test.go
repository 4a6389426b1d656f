package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/events"
	"github.com/jb-platform/maintenance-service/internal/notify"
	"github.com/jb-platform/maintenance-service/internal/observability"
	"github.com/jb-platform/maintenance-service/internal/repository/memory"
	"github.com/jb-platform/maintenance-service/internal/workflow"
)

// recordingSender captures sent messages and fails any channel in failing.
type recordingSender struct {
	mu      sync.Mutex
	sent    []notify.Message
	failing map[domain.Channel]bool
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing[msg.Channel] {
		return errors.New("provider unavailable")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) fail(ch domain.Channel, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing == nil {
		r.failing = map[domain.Channel]bool{}
	}
	r.failing[ch] = on
}

func (r *recordingSender) to(address string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.sent {
		if m.To == address {
			out = append(out, m)
		}
	}
	return out
}

type sequenceNumbers struct{ n int }

func (s *sequenceNumbers) Next(context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("JB-%03d", s.n), nil
}

const (
	tenantPhone     = "+447700900100"
	contractorEmail = "dave@plumbing.example"
	managerEmail    = "pm@jb.example"
)

type fixture struct {
	ctx           context.Context
	store         *memory.Store
	sender        *recordingSender
	metrics       *observability.Metrics
	workflow      *WorkflowService
	notifications *NotificationService
	tickets       *TicketService
	parties       *PartyService
	tenant        *domain.Tenant
	contractor    *domain.Contractor
	pm            *auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	sender := &recordingSender{}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Store:      store,
		Sender:     sender,
		Metrics:    metrics,
	})
	notifications.RegisterHandlers()

	wf := NewWorkflowService(WorkflowDependencies{
		Store:        store,
		Engine:       workflow.NewEngine(workflow.Agency{Name: "JB Lettings", Phone: "020 7946 0000"}),
		Dispatcher:   dispatcher,
		ManagerInbox: domain.Contact{Name: "JB desk", Email: managerEmail, PreferredChannel: domain.ChannelEmail},
		Metrics:      metrics,
	})
	parties := NewPartyService(store)

	tenant, err := parties.CreateTenant(ctx, TenantInput{Name: "Tina Tenant", Phone: tenantPhone, PropertyID: "flat-4"})
	require.NoError(t, err)
	contractor, err := parties.CreateContractor(ctx, ContractorInput{Name: "Dave Plumbing", Trade: domain.CategoryPlumbing, Email: contractorEmail})
	require.NoError(t, err)

	return &fixture{
		ctx:           ctx,
		store:         store,
		sender:        sender,
		metrics:       metrics,
		workflow:      wf,
		notifications: notifications,
		tickets:       NewTicketService(TicketDependencies{Store: store, Workflow: wf, Numbers: &sequenceNumbers{}}),
		parties:       parties,
		tenant:        tenant,
		contractor:    contractor,
		pm:            principal("pm-1", domain.RolePropertyManager, nil),
	}
}

func principal(id string, role domain.Role, partyID *string) *auth.Principal {
	return auth.NewPrincipal(&domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, PartyID: partyID, Active: true})
}

func (f *fixture) tenantPrincipal() *auth.Principal {
	return principal("tenant-user", domain.RoleTenant, &f.tenant.ID)
}

func (f *fixture) contractorPrincipal() *auth.Principal {
	return principal("contractor-user", domain.RoleContractor, &f.contractor.ID)
}

// open creates a ticket as the tenant and returns its number.
func (f *fixture) open(t *testing.T) string {
	t.Helper()
	res, err := f.tickets.CreateTicket(f.ctx, f.tenantPrincipal(), TicketCreateInput{
		Subject:     "Leaking kitchen tap",
		Description: "Drips all night",
		Category:    domain.CategoryPlumbing,
	})
	require.NoError(t, err)
	return res.Ticket.Number
}

// quoted opens a ticket, assigns the contractor and submits a quote.
func (f *fixture) quoted(t *testing.T, amount int64) (string, string) {
	t.Helper()
	number := f.open(t)
	res, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, f.contractor.ID)
	require.NoError(t, err)
	quoteID := res.Quote.ID

	available := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.workflow.SubmitQuote(f.ctx, f.contractorPrincipal().Actor(), number, quoteID, workflow.SubmitQuoteInput{
		Amount:        &amount,
		AvailableDate: &available,
	})
	require.NoError(t, err)
	return number, quoteID
}

func approveInput() workflow.ApproveInput {
	return workflow.ApproveInput{
		ScheduledDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		TimeSlot:      domain.SlotMorning,
	}
}
