package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/service"
)

// CommunicationsHandler sends manual messages and retries failed ones.
type CommunicationsHandler struct {
	notifications *service.NotificationService
}

// NewCommunicationsHandler constructs handler.
func NewCommunicationsHandler(notifications *service.NotificationService) *CommunicationsHandler {
	return &CommunicationsHandler{notifications: notifications}
}

// Send POST /api/v1/tickets/:id/communications.
func (h *CommunicationsHandler) Send(c *fiber.Ctx) error {
	var req dto.ManualMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comm, err := h.notifications.SendManual(c.UserContext(), c.Params("id"), service.ManualMessage{
		Audience: req.Audience,
		QuoteID:  req.QuoteID,
		Subject:  req.Subject,
		Body:     req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": communicationResponse(comm)})
}

// Resend POST /api/v1/communications/:id/resend.
func (h *CommunicationsHandler) Resend(c *fiber.Ctx) error {
	comm, err := h.notifications.Resend(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": communicationResponse(comm)})
}
