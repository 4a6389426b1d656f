package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/events"
	"github.com/jb-platform/maintenance-service/internal/notify"
	"github.com/jb-platform/maintenance-service/internal/observability"
	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

var errNoContact = errors.New("recipient has no reachable contact")

// DeliveryFailures is returned by the notification handler so the publisher
// can report which messages did not go out.
type DeliveryFailures struct {
	Failures []DeliveryError
}

func (d *DeliveryFailures) Error() string {
	return fmt.Sprintf("%d notification(s) failed", len(d.Failures))
}

// NotificationService writes Communications and delivers them.
type NotificationService struct {
	dispatcher events.Dispatcher
	store      repository.Store
	sender     notify.Sender
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Store      repository.Store
	Sender     notify.Sender
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		store:      deps.Store,
		sender:     deps.Sender,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventNotificationRequested, n.handleNotificationRequested)
}

func (n *NotificationService) handleNotificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("delivering workflow notifications",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(payload.EventType)),
		zap.Int("messages", len(payload.Messages)))

	failures := n.Deliver(ctx, event.TicketID, payload.TicketNumber, payload.Messages)
	if len(failures) > 0 {
		return &DeliveryFailures{Failures: failures}
	}
	return nil
}

// Deliver records and sends each message. It never fails as a whole; the
// messages that could not be sent are returned.
func (n *NotificationService) Deliver(ctx context.Context, ticketID, reference string, messages []events.OutboundMessage) []DeliveryError {
	var failures []DeliveryError
	for _, msg := range messages {
		comm := &domain.Communication{
			ID:          uuid.NewString(),
			TicketID:    ticketID,
			QuoteID:     msg.QuoteID,
			Audience:    msg.Audience,
			RecipientID: msg.RecipientID,
			Channel:     msg.Channel,
			Address:     msg.Address,
			Subject:     msg.Subject,
			Body:        msg.Body,
			Status:      domain.DeliveryPending,
		}
		if err := n.store.Repos().Communications.Create(ctx, comm); err != nil {
			n.logger.Error("record communication", zap.String("ticket_id", ticketID), zap.Error(err))
			failures = append(failures, DeliveryError{Audience: msg.Audience, Channel: msg.Channel, Error: err.Error()})
			continue
		}
		if err := n.attempt(ctx, comm, reference); err != nil {
			failures = append(failures, DeliveryError{
				CommunicationID: comm.ID,
				Audience:        comm.Audience,
				Channel:         comm.Channel,
				Error:           err.Error(),
			})
		}
	}
	return failures
}

// Resend retries a communication that previously failed.
func (n *NotificationService) Resend(ctx context.Context, communicationID string) (*domain.Communication, error) {
	if err := requireUUID(communicationID, "communication"); err != nil {
		return nil, err
	}
	repos := n.store.Repos()
	comm, err := repos.Communications.GetByID(ctx, communicationID)
	if err != nil {
		return nil, mapRepoError(err, "communication")
	}
	if comm.Status == domain.DeliverySent {
		return nil, apperrors.NewValidationError("communication already sent", map[string]any{"communication_id": comm.ID})
	}
	ticket, err := repos.Tickets.GetByID(ctx, comm.TicketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	if comm.Channel == "" {
		// contact details may have been added since the first attempt
		if err := n.refreshAddress(ctx, repos, comm); err != nil {
			return nil, err
		}
	}
	_ = n.attempt(ctx, comm, ticket.Number)
	return comm, nil
}

// ManualMessage is a free-text message a PM sends from the ticket screen.
type ManualMessage struct {
	Audience domain.Party
	QuoteID  *string
	Subject  string
	Body     string
}

// SendManual delivers a PM-authored message to the ticket's tenant or to
// the contractor of one of its quotes, in that party's silo.
func (n *NotificationService) SendManual(ctx context.Context, ticketRef string, in ManualMessage) (*domain.Communication, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	repos := n.store.Repos()
	ticket, err := loadTicket(ctx, repos.Tickets, ticketRef)
	if err != nil {
		return nil, err
	}

	comm := &domain.Communication{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		Audience: in.Audience,
		Subject:  strings.TrimSpace(in.Subject),
		Body:     body,
		Status:   domain.DeliveryPending,
	}
	if comm.Subject == "" {
		comm.Subject = "Update on " + ticket.Number
	}
	switch in.Audience {
	case domain.PartyTenant:
		comm.RecipientID = ticket.TenantID
	case domain.PartyContractor:
		if in.QuoteID == nil {
			return nil, apperrors.NewValidationError("quote_id required for contractor messages", nil)
		}
		if err := requireUUID(*in.QuoteID, "quote"); err != nil {
			return nil, err
		}
		quote, err := NewQuoteLedger(repos).Get(ctx, ticket.ID, *in.QuoteID)
		if err != nil {
			return nil, err
		}
		comm.RecipientID = quote.ContractorID
		comm.QuoteID = &quote.ID
	default:
		return nil, apperrors.NewValidationError("audience must be tenant or contractor", map[string]any{"audience": in.Audience})
	}
	if err := n.refreshAddress(ctx, repos, comm); err != nil {
		return nil, err
	}
	if err := repos.Communications.Create(ctx, comm); err != nil {
		return nil, mapRepoError(err, "communication")
	}
	_ = n.attempt(ctx, comm, ticket.Number)
	return comm, nil
}

func (n *NotificationService) refreshAddress(ctx context.Context, repos repository.Repositories, comm *domain.Communication) error {
	var contact domain.Contact
	switch comm.Audience {
	case domain.PartyTenant:
		tenant, err := repos.Tenants.GetByID(ctx, comm.RecipientID)
		if err != nil {
			return mapRepoError(err, "tenant")
		}
		contact = tenant.Contact()
	case domain.PartyContractor:
		contractor, err := repos.Contractors.GetByID(ctx, comm.RecipientID)
		if err != nil {
			return mapRepoError(err, "contractor")
		}
		contact = contractor.Contact()
	default:
		return nil
	}
	if channel, address, ok := contact.ResolveChannel(); ok {
		comm.Channel = channel
		comm.Address = address
	}
	return nil
}

// attempt sends comm once and records the outcome on the row.
func (n *NotificationService) attempt(ctx context.Context, comm *domain.Communication, reference string) error {
	var sendErr error
	if comm.Channel == "" || comm.Address == "" {
		sendErr = errNoContact
	} else {
		sendErr = n.sender.Send(ctx, notify.Message{
			Channel:   comm.Channel,
			To:        comm.Address,
			Subject:   comm.Subject,
			Body:      comm.Body,
			Reference: reference,
		})
	}

	comm.Attempts++
	if sendErr != nil {
		comm.Status = domain.DeliveryFailed
		comm.LastError = sendErr.Error()
		n.logger.Warn("notification delivery failed",
			zap.String("communication_id", comm.ID),
			zap.String("ticket_id", comm.TicketID),
			zap.String("audience", string(comm.Audience)),
			zap.String("channel", string(comm.Channel)),
			zap.Error(sendErr))
	} else {
		now := n.now()
		comm.Status = domain.DeliverySent
		comm.LastError = ""
		comm.SentAt = &now
	}
	n.metrics.RecordDelivery(string(comm.Channel), string(comm.Status))

	if err := n.store.Repos().Communications.Update(ctx, comm); err != nil {
		n.logger.Error("update communication", zap.String("communication_id", comm.ID), zap.Error(err))
	}
	return sendErr
}
