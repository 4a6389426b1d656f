package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/service"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints. Every read goes through the
// service so tenants and contractors get their restricted view.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.CreateTicket(c.UserContext(), p, service.TicketCreateInput{
		TenantID:    req.TenantID,
		PropertyID:  req.PropertyID,
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": transitionResponse(res.ViewFor(p))})
}

// ListTickets GET /api/v1/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), p, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/v1/tickets/:id. The id may be the ticket number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.detail(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: ticketResponse(detail.Ticket),
		Quotes:         quoteResponses(detail.Quotes),
		Events:         eventResponses(detail.Events),
		Communications: communicationResponses(detail.Communications),
	}})
}

// ListQuotes GET /api/v1/tickets/:id/quotes. Accepts ?status= with the
// legacy "approved" alias.
func (h *TicketsHandler) ListQuotes(c *fiber.Ctx) error {
	var want domain.QuoteStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := domain.ParseQuoteStatus(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid quote status", map[string]any{"status": raw})
		}
		want = parsed
	}
	detail, err := h.detail(c)
	if err != nil {
		return err
	}
	quotes := detail.Quotes
	if want != "" {
		quotes = quotes[:0:0]
		for _, q := range detail.Quotes {
			if q.Status == want {
				quotes = append(quotes, q)
			}
		}
	}
	return c.JSON(fiber.Map{"data": quoteResponses(quotes)})
}

// ListEvents GET /api/v1/tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	detail, err := h.detail(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(detail.Events)})
}

// ListCommunications GET /api/v1/tickets/:id/communications.
func (h *TicketsHandler) ListCommunications(c *fiber.Ctx) error {
	detail, err := h.detail(c)
	if err != nil {
		return err
	}
	comms := detail.Communications
	if audience := domain.Party(c.Query("audience")); audience != "" {
		comms = comms[:0:0]
		for _, m := range detail.Communications {
			if m.Audience == audience {
				comms = append(comms, m)
			}
		}
	}
	return c.JSON(fiber.Map{"data": communicationResponses(comms)})
}

// UpdateStatus PATCH /api/v1/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.UpdateStatus(c.UserContext(), p, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(res.ViewFor(p))})
}

// UpdatePriority PATCH /api/v1/tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.UpdatePriority(c.UserContext(), p, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(res.ViewFor(p))})
}

// MyQuotes GET /api/v1/me/quotes.
func (h *TicketsHandler) MyQuotes(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	quotes, err := h.service.ContractorQuotes(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteResponses(quotes)})
}

func (h *TicketsHandler) detail(c *fiber.Ctx) (*service.TicketDetail, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	return h.service.GetTicket(c.UserContext(), p, c.Params("id"))
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Statuses:         splitQuery[domain.TicketStatus](c.Query("status")),
		WorkflowStatuses: splitQuery[domain.WorkflowStatus](c.Query("workflow_status")),
		Priorities:       splitQuery[domain.TicketPriority](c.Query("priority")),
		Categories:       splitQuery[domain.TicketCategory](c.Query("category")),
	}
	if tenantID := strings.TrimSpace(c.Query("tenant_id")); tenantID != "" {
		filter.TenantID = &tenantID
	}
	if propertyID := strings.TrimSpace(c.Query("property_id")); propertyID != "" {
		filter.PropertyID = &propertyID
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
