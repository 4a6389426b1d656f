package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	"github.com/jb-platform/maintenance-service/internal/workflow"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

func TestRejectedQuoteReturnsTicketToContractorNotified(t *testing.T) {
	f := newFixture(t)
	number, quoteID := f.quoted(t, 25000)

	res, err := f.workflow.RejectQuote(f.ctx, f.pm.Actor(), number, quoteID, "too expensive")
	require.NoError(t, err)

	assert.Equal(t, domain.WorkflowContractorNotified, res.Ticket.WorkflowStatus)
	require.NotNil(t, res.Quote)
	assert.Equal(t, domain.QuoteStatusRejected, res.Quote.Status)
	assert.Equal(t, "too expensive", res.Quote.RejectionReason)
	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.EventQuoteRejected, res.Events[0].EventType)

	evts, err := f.store.Repos().Events.ListByTicket(f.ctx, res.Ticket.ID)
	require.NoError(t, err)
	var kinds []domain.WorkflowEventType
	for _, e := range evts {
		kinds = append(kinds, e.EventType)
	}
	assert.Equal(t, []domain.WorkflowEventType{
		domain.EventTicketReceived,
		domain.EventContractorAssigned,
		domain.EventQuoteSubmitted,
		domain.EventQuoteRejected,
	}, kinds)
	assert.Equal(t, int64(1), f.metrics.Snapshot().Transitions[string(domain.EventQuoteRejected)])
}

func TestApproveSchedulesAndTellsTenantOnlyTheBooking(t *testing.T) {
	f := newFixture(t)
	number, quoteID := f.quoted(t, 25000)
	before := len(f.sender.to(tenantPhone))

	res, err := f.workflow.ApproveQuote(f.ctx, f.pm.Actor(), number, quoteID, approveInput())
	require.NoError(t, err)

	assert.Equal(t, domain.WorkflowScheduled, res.Ticket.WorkflowStatus)
	assert.Equal(t, domain.QuoteStatusScheduled, res.Quote.Status)
	assert.Empty(t, res.DeliveryErrors)

	tenantMsgs := f.sender.to(tenantPhone)
	require.Len(t, tenantMsgs, before+1)
	body := tenantMsgs[len(tenantMsgs)-1].Body
	assert.Contains(t, body, "Saturday 1 June 2024")
	assert.NotContains(t, body, f.contractor.Name)
	assert.NotContains(t, body, "250")
	assert.NotContains(t, body, "£")

	contractorMsgs := f.sender.to(contractorEmail)
	require.NotEmpty(t, contractorMsgs)
	assert.NotContains(t, contractorMsgs[len(contractorMsgs)-1].Body, tenantPhone)
}

func TestApprovePendingQuoteChangesNothing(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)
	assigned, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, f.contractor.ID)
	require.NoError(t, err)

	_, err = f.workflow.ApproveQuote(f.ctx, f.pm.Actor(), number, assigned.Quote.ID, approveInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	ticket, err := f.store.Repos().Tickets.GetByNumber(f.ctx, number)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowContractorNotified, ticket.WorkflowStatus)
	quote, err := f.store.Repos().Quotes.GetByID(f.ctx, assigned.Quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusPending, quote.Status)
}

func TestStartAndCompleteWork(t *testing.T) {
	f := newFixture(t)
	number, quoteID := f.quoted(t, 18000)
	_, err := f.workflow.ApproveQuote(f.ctx, f.pm.Actor(), number, quoteID, approveInput())
	require.NoError(t, err)

	started, err := f.workflow.StartWork(f.ctx, f.pm.Actor(), number, quoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowInWork, started.Ticket.WorkflowStatus)
	require.Len(t, started.Events, 1)
	assert.False(t, started.Events[0].TenantFacing())
	assert.Empty(t, started.Events[0].NotificationChannels)

	final := int64(19500)
	done, err := f.workflow.CompleteWork(f.ctx, f.pm.Actor(), number, quoteID, workflow.CompleteInput{Notes: "Washer replaced", FinalAmount: &final})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowCompleted, done.Ticket.WorkflowStatus)
	assert.Equal(t, domain.TicketStatusResolved, done.Ticket.Status)
	require.Len(t, done.Events, 1)
	assert.True(t, done.Events[0].TenantFacing())
	assert.Equal(t, []domain.Channel{domain.ChannelWhatsApp}, done.Events[0].NotificationChannels)

	last := f.sender.to(tenantPhone)
	body := last[len(last)-1].Body
	assert.NotContains(t, body, f.contractor.Name)
	assert.NotContains(t, body, "195")

	_, err = f.workflow.CompleteWork(f.ctx, f.pm.Actor(), number, quoteID, workflow.CompleteInput{Notes: "second go"})
	require.Error(t, err)
	quote, err := f.store.Repos().Quotes.GetByID(f.ctx, quoteID)
	require.NoError(t, err)
	assert.Equal(t, "Washer replaced", quote.CompletionNotes)
}

func TestQuoteSubmissionNotifiesManagerInbox(t *testing.T) {
	f := newFixture(t)
	f.quoted(t, 25000)

	msgs := f.sender.to(managerEmail)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Subject, "Quote received")
}

func TestContractorCannotSubmitAnotherContractorsQuote(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)
	assigned, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, f.contractor.ID)
	require.NoError(t, err)

	amount := int64(100)
	_, err = f.workflow.SubmitQuote(f.ctx, workflow.ContractorActor("someone-else"), number, assigned.Quote.ID, workflow.SubmitQuoteInput{Amount: &amount})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestDeliveryFailureDoesNotUndoTransition(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)
	f.sender.fail(domain.ChannelEmail, true)

	res, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, f.contractor.ID)
	require.NoError(t, err)
	require.Len(t, res.DeliveryErrors, 1)
	failure := res.DeliveryErrors[0]
	assert.Equal(t, domain.PartyContractor, failure.Audience)
	assert.Equal(t, domain.ChannelEmail, failure.Channel)
	require.NotEmpty(t, failure.CommunicationID)

	ticket, err := f.store.Repos().Tickets.GetByNumber(f.ctx, number)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowContractorNotified, ticket.WorkflowStatus)

	comm, err := f.store.Repos().Communications.GetByID(f.ctx, failure.CommunicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, comm.Status)
	assert.Equal(t, 1, comm.Attempts)
	assert.NotEmpty(t, comm.LastError)

	f.sender.fail(domain.ChannelEmail, false)
	resent, err := f.notifications.Resend(f.ctx, failure.CommunicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, resent.Status)
	assert.Equal(t, 2, resent.Attempts)
	assert.NotNil(t, resent.SentAt)

	_, err = f.notifications.Resend(f.ctx, failure.CommunicationID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Equal(t, int64(1), f.metrics.Snapshot().Deliveries["email|failed"])
}

func TestCommunicationsCarryAssignedIDs(t *testing.T) {
	f := newFixture(t)
	number, _ := f.quoted(t, 25000)
	ticket, err := f.store.Repos().Tickets.GetByNumber(f.ctx, number)
	require.NoError(t, err)

	manual, err := f.notifications.SendManual(f.ctx, number, ManualMessage{Audience: domain.PartyTenant, Body: "Plumber booked"})
	require.NoError(t, err)
	_, err = uuid.Parse(manual.ID)
	require.NoError(t, err)

	comms, err := f.store.Repos().Communications.ListByTicket(f.ctx, ticket.ID, repository.CommunicationFilter{})
	require.NoError(t, err)
	// acknowledgement, contractor invitation, manager quote alert, manual message
	require.Len(t, comms, 4)
	for _, c := range comms {
		_, err := uuid.Parse(c.ID)
		assert.NoError(t, err, "communication %q", c.Subject)
		assert.Equal(t, domain.DeliverySent, c.Status)
	}
}

func TestResendUnknownCommunication(t *testing.T) {
	f := newFixture(t)
	_, err := f.notifications.Resend(f.ctx, "not-a-uuid")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSendManualKeepsSilos(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)
	assigned, err := f.workflow.AssignContractor(f.ctx, f.pm.Actor(), number, f.contractor.ID)
	require.NoError(t, err)

	_, err = f.notifications.SendManual(f.ctx, number, ManualMessage{Audience: domain.PartyContractor, Body: "Keys at the office"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	comm, err := f.notifications.SendManual(f.ctx, number, ManualMessage{
		Audience: domain.PartyContractor,
		QuoteID:  &assigned.Quote.ID,
		Body:     "Keys at the office",
	})
	require.NoError(t, err)
	assert.Equal(t, f.contractor.ID, comm.RecipientID)
	assert.Equal(t, contractorEmail, comm.Address)
	assert.Equal(t, domain.DeliverySent, comm.Status)

	comm, err = f.notifications.SendManual(f.ctx, number, ManualMessage{Audience: domain.PartyTenant, Body: "Contractor booked soon"})
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, comm.RecipientID)
	assert.Equal(t, domain.ChannelWhatsApp, comm.Channel)

	_, err = f.notifications.SendManual(f.ctx, number, ManualMessage{Audience: domain.PartyPropertyManager, Body: "x"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRepoErrorsMapToDomainCodes(t *testing.T) {
	assert.True(t, apperrors.IsCode(mapRepoError(repository.ErrVersionConflict, "ticket"), apperrors.CodeConflict))
	assert.True(t, apperrors.IsCode(mapRepoError(repository.ErrDuplicate, "user"), apperrors.CodeConflict))
	assert.True(t, apperrors.IsCode(mapRepoError(repository.ErrNotFound, "quote"), apperrors.CodeNotFound))
	assert.NoError(t, mapRepoError(nil, "ticket"))
}

func TestStaleTicketWriteIsRejected(t *testing.T) {
	f := newFixture(t)
	number := f.open(t)
	repos := f.store.Repos()

	stale, err := repos.Tickets.GetByNumber(f.ctx, number)
	require.NoError(t, err)
	_, err = f.workflow.ChangePriority(f.ctx, f.pm.Actor(), number, domain.TicketPriorityUrgent)
	require.NoError(t, err)

	stale.Status = domain.TicketStatusClosed
	err = mapRepoError(repos.Tickets.Update(f.ctx, stale), "ticket")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}
