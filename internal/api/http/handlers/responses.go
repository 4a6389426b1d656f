package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/service"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseDate(field, val string) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{field: val, "layout": "YYYY-MM-DD"})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitQuery[T ~string](val string) []T {
	if val == "" {
		return nil
	}
	var out []T
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, T(part))
		}
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             t.ID,
		Number:         t.Number,
		TenantID:       t.TenantID,
		PropertyID:     t.PropertyID,
		Subject:        t.Subject,
		Description:    t.Description,
		Category:       t.Category,
		Priority:       t.Priority,
		Status:         t.Status,
		WorkflowStatus: t.WorkflowStatus,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		ResolvedAt:     t.ResolvedAt,
		ClosedAt:       t.ClosedAt,
	}
}

func quoteResponse(q *domain.Quote) dto.QuoteResponse {
	return dto.QuoteResponse{
		ID:                 q.ID,
		TicketID:           q.TicketID,
		ContractorID:       q.ContractorID,
		Status:             q.Status,
		QuoteAmount:        q.QuoteAmount,
		AvailableDate:      formatDate(q.AvailableDate),
		ScheduledDate:      formatDate(q.ScheduledDate),
		ScheduledTimeSlot:  q.ScheduledTimeSlot,
		ContractorResponse: q.ContractorResponse,
		ApprovalNotes:      q.ApprovalNotes,
		RejectionReason:    q.RejectionReason,
		CompletionNotes:    q.CompletionNotes,
		FinalAmount:        q.FinalAmount,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
		QuotedAt:           q.QuotedAt,
		ApprovedAt:         q.ApprovedAt,
		StartedAt:          q.StartedAt,
		CompletedAt:        q.CompletedAt,
	}
}

func quoteResponses(quotes []*domain.Quote) []dto.QuoteResponse {
	out := make([]dto.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, quoteResponse(q))
	}
	return out
}

func eventResponses(evts []*domain.WorkflowEvent) []dto.WorkflowEventResponse {
	out := make([]dto.WorkflowEventResponse, 0, len(evts))
	for _, e := range evts {
		out = append(out, dto.WorkflowEventResponse{
			ID:                   e.ID,
			QuoteID:              e.QuoteID,
			EventType:            e.EventType,
			Title:                e.Title,
			Description:          e.Description,
			Recipients:           nonNil(e.Recipients),
			NotificationChannels: nonNil(e.NotificationChannels),
			ActorType:            e.ActorType,
			ActorID:              e.ActorID,
			Metadata:             e.Metadata,
			CreatedAt:            e.CreatedAt,
		})
	}
	return out
}

func communicationResponse(m *domain.Communication) dto.CommunicationResponse {
	return dto.CommunicationResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		QuoteID:     m.QuoteID,
		Audience:    m.Audience,
		RecipientID: m.RecipientID,
		Channel:     m.Channel,
		Subject:     m.Subject,
		Body:        m.Body,
		Status:      m.Status,
		LastError:   m.LastError,
		Attempts:    m.Attempts,
		CreatedAt:   m.CreatedAt,
		SentAt:      m.SentAt,
	}
}

func communicationResponses(comms []*domain.Communication) []dto.CommunicationResponse {
	out := make([]dto.CommunicationResponse, 0, len(comms))
	for _, m := range comms {
		out = append(out, communicationResponse(m))
	}
	return out
}

func transitionResponse(res *service.TransitionResult) dto.TransitionResponse {
	resp := dto.TransitionResponse{
		Ticket:         ticketResponse(res.Ticket),
		Quotes:         quoteResponses(res.Quotes),
		Events:         eventResponses(res.Events),
		DeliveryErrors: make([]dto.DeliveryError, 0, len(res.DeliveryErrors)),
	}
	if res.Quote != nil {
		q := quoteResponse(res.Quote)
		resp.Quote = &q
	}
	for _, d := range res.DeliveryErrors {
		resp.DeliveryErrors = append(resp.DeliveryErrors, dto.DeliveryError{
			CommunicationID: d.CommunicationID,
			Audience:        d.Audience,
			Channel:         d.Channel,
			Error:           d.Error,
		})
	}
	return resp
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		PartyID:   u.PartyID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func tenantResponse(t *domain.Tenant) dto.TenantResponse {
	return dto.TenantResponse{
		ID:               t.ID,
		Name:             t.Name,
		Email:            t.Email,
		Phone:            t.Phone,
		PropertyID:       t.PropertyID,
		PreferredChannel: t.PreferredChannel,
		CreatedAt:        t.CreatedAt,
	}
}

func contractorResponse(c *domain.Contractor) dto.ContractorResponse {
	return dto.ContractorResponse{
		ID:               c.ID,
		Name:             c.Name,
		Trade:            c.Trade,
		Email:            c.Email,
		Phone:            c.Phone,
		PreferredChannel: c.PreferredChannel,
		Active:           c.Active,
		CreatedAt:        c.CreatedAt,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
