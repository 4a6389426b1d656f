package dto

import (
	"time"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// TenantRequest payload.
type TenantRequest struct {
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	PropertyID       string         `json:"property_id"`
	PreferredChannel domain.Channel `json:"preferred_channel"`
}

// TenantResponse describes a tenant.
type TenantResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	PropertyID       string         `json:"property_id"`
	PreferredChannel domain.Channel `json:"preferred_channel"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ContractorRequest payload for create and update. Empty fields are left
// unchanged on update.
type ContractorRequest struct {
	Name             string                `json:"name"`
	Trade            domain.TicketCategory `json:"trade"`
	Email            string                `json:"email"`
	Phone            string                `json:"phone"`
	PreferredChannel domain.Channel        `json:"preferred_channel"`
	Active           *bool                 `json:"active"`
}

// ContractorResponse describes a contractor.
type ContractorResponse struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	Trade            domain.TicketCategory `json:"trade"`
	Email            string                `json:"email,omitempty"`
	Phone            string                `json:"phone,omitempty"`
	PreferredChannel domain.Channel        `json:"preferred_channel"`
	Active           bool                  `json:"active"`
	CreatedAt        time.Time             `json:"created_at"`
}
