package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/service"
	"github.com/jb-platform/maintenance-service/internal/workflow"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// WorkflowHandler exposes one endpoint per workflow transition.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(workflowService *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflowService}
}

// Assign POST /api/v1/tickets/:id/assignments.
func (h *WorkflowHandler) Assign(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AssignContractorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ContractorID == "" {
		return apperrors.NewValidationError("contractor_id required", nil)
	}
	return respond(c, p)(h.workflow.AssignContractor(c.UserContext(), p.Actor(), c.Params("id"), req.ContractorID))
}

// Submit POST /api/v1/tickets/:id/quotes/:quoteId/submit.
func (h *WorkflowHandler) Submit(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SubmitQuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	available, err := parseDate("available_date", req.AvailableDate)
	if err != nil {
		return err
	}
	return respond(c, p)(h.workflow.SubmitQuote(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId"), workflow.SubmitQuoteInput{
		Amount:        req.QuoteAmount,
		AvailableDate: available,
		Response:      req.Response,
		Accept:        req.Accept,
	}))
}

// Decline POST /api/v1/tickets/:id/quotes/:quoteId/decline.
func (h *WorkflowHandler) Decline(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.DeclineQuoteRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	return respond(c, p)(h.workflow.DeclineQuote(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId"), req.Reason))
}

// Approve POST /api/v1/tickets/:id/quotes/:quoteId/approve.
func (h *WorkflowHandler) Approve(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ApproveQuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	scheduled, err := parseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		return err
	}
	if scheduled == nil {
		return apperrors.NewValidationError("scheduled_date required", nil)
	}
	return respond(c, p)(h.workflow.ApproveQuote(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId"), workflow.ApproveInput{
		Notes:         req.ApprovalNotes,
		ScheduledDate: *scheduled,
		TimeSlot:      req.ScheduledTimeSlot,
	}))
}

// Reject POST /api/v1/tickets/:id/quotes/:quoteId/reject.
func (h *WorkflowHandler) Reject(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.RejectQuoteRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	return respond(c, p)(h.workflow.RejectQuote(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId"), req.RejectionReason))
}

// Start POST /api/v1/tickets/:id/quotes/:quoteId/start.
func (h *WorkflowHandler) Start(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return respond(c, p)(h.workflow.StartWork(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId")))
}

// Complete POST /api/v1/tickets/:id/quotes/:quoteId/complete.
func (h *WorkflowHandler) Complete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CompleteWorkRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	return respond(c, p)(h.workflow.CompleteWork(c.UserContext(), p.Actor(), c.Params("id"), c.Params("quoteId"), workflow.CompleteInput{
		Notes:       req.CompletionNotes,
		FinalAmount: req.FinalAmount,
	}))
}

func respond(c *fiber.Ctx, p *auth.Principal) func(*service.TransitionResult, error) error {
	return func(res *service.TransitionResult, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": transitionResponse(res.ViewFor(p))})
	}
}
