package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/service"
)

// PartiesHandler manages tenant and contractor records.
type PartiesHandler struct {
	parties *service.PartyService
}

// NewPartiesHandler constructs handler.
func NewPartiesHandler(parties *service.PartyService) *PartiesHandler {
	return &PartiesHandler{parties: parties}
}

// CreateTenant POST /api/v1/tenants.
func (h *PartiesHandler) CreateTenant(c *fiber.Ctx) error {
	var req dto.TenantRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tenant, err := h.parties.CreateTenant(c.UserContext(), service.TenantInput{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PropertyID:       req.PropertyID,
		PreferredChannel: req.PreferredChannel,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": tenantResponse(tenant)})
}

// ListTenants GET /api/v1/tenants.
func (h *PartiesHandler) ListTenants(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	tenants, err := h.parties.ListTenants(c.UserContext(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TenantResponse, 0, len(tenants))
	for i := range tenants {
		items = append(items, tenantResponse(&tenants[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateContractor POST /api/v1/contractors.
func (h *PartiesHandler) CreateContractor(c *fiber.Ctx) error {
	var req dto.ContractorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	contractor, err := h.parties.CreateContractor(c.UserContext(), contractorInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": contractorResponse(contractor)})
}

// UpdateContractor PATCH /api/v1/contractors/:id.
func (h *PartiesHandler) UpdateContractor(c *fiber.Ctx) error {
	var req dto.ContractorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	contractor, err := h.parties.UpdateContractor(c.UserContext(), c.Params("id"), contractorInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contractorResponse(contractor)})
}

// ListContractors GET /api/v1/contractors.
func (h *PartiesHandler) ListContractors(c *fiber.Ctx) error {
	contractors, err := h.parties.ListContractors(c.UserContext(), c.QueryBool("active_only", false))
	if err != nil {
		return err
	}
	items := make([]dto.ContractorResponse, 0, len(contractors))
	for i := range contractors {
		items = append(items, contractorResponse(&contractors[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func contractorInput(req dto.ContractorRequest) service.ContractorInput {
	return service.ContractorInput{
		Name:             req.Name,
		Trade:            req.Trade,
		Email:            req.Email,
		Phone:            req.Phone,
		PreferredChannel: req.PreferredChannel,
		Active:           req.Active,
	}
}
