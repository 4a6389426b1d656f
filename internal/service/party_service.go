package service

import (
	"context"
	"strings"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// PartyService manages tenant and contractor contact records.
type PartyService struct {
	store repository.Store
}

// NewPartyService constructs the service.
func NewPartyService(store repository.Store) *PartyService {
	return &PartyService{store: store}
}

// TenantInput describes a tenant record.
type TenantInput struct {
	Name             string
	Email            string
	Phone            string
	PropertyID       string
	PreferredChannel domain.Channel
}

// ContractorInput describes a contractor record. Active is only applied on
// update.
type ContractorInput struct {
	Name             string
	Trade            domain.TicketCategory
	Email            string
	Phone            string
	PreferredChannel domain.Channel
	Active           *bool
}

// CreateTenant stores a tenant.
func (s *PartyService) CreateTenant(ctx context.Context, in TenantInput) (*domain.Tenant, error) {
	channel, err := normalizeContact(in.Name, in.Email, in.Phone, in.PreferredChannel)
	if err != nil {
		return nil, err
	}
	propertyID := strings.TrimSpace(in.PropertyID)
	if propertyID == "" {
		return nil, apperrors.NewValidationError("property_id required", nil)
	}
	tenant := &domain.Tenant{
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		PropertyID:       propertyID,
		PreferredChannel: channel,
	}
	if err := s.store.Repos().Tenants.Create(ctx, tenant); err != nil {
		return nil, mapRepoError(err, "tenant")
	}
	return tenant, nil
}

// ListTenants pages through tenants by name.
func (s *PartyService) ListTenants(ctx context.Context, limit, offset int) ([]domain.Tenant, error) {
	tenants, err := s.store.Repos().Tenants.List(ctx, limit, offset)
	if err != nil {
		return nil, mapRepoError(err, "tenant")
	}
	return tenants, nil
}

// CreateContractor stores a contractor.
func (s *PartyService) CreateContractor(ctx context.Context, in ContractorInput) (*domain.Contractor, error) {
	channel, err := normalizeContact(in.Name, in.Email, in.Phone, in.PreferredChannel)
	if err != nil {
		return nil, err
	}
	trade := in.Trade
	if trade == "" {
		trade = domain.CategoryGeneral
	}
	if !trade.Valid() {
		return nil, apperrors.NewValidationError("invalid trade", map[string]any{"trade": trade})
	}
	contractor := &domain.Contractor{
		Name:             strings.TrimSpace(in.Name),
		Trade:            trade,
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		PreferredChannel: channel,
		Active:           true,
	}
	if err := s.store.Repos().Contractors.Create(ctx, contractor); err != nil {
		return nil, mapRepoError(err, "contractor")
	}
	return contractor, nil
}

// UpdateContractor replaces a contractor's contact details.
func (s *PartyService) UpdateContractor(ctx context.Context, id string, in ContractorInput) (*domain.Contractor, error) {
	if err := requireUUID(id, "contractor"); err != nil {
		return nil, err
	}
	var updated *domain.Contractor
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		contractor, err := repos.Contractors.GetByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "contractor")
		}
		if in.Name != "" {
			contractor.Name = strings.TrimSpace(in.Name)
		}
		if in.Trade != "" {
			if !in.Trade.Valid() {
				return apperrors.NewValidationError("invalid trade", map[string]any{"trade": in.Trade})
			}
			contractor.Trade = in.Trade
		}
		if in.Email != "" {
			contractor.Email = strings.TrimSpace(in.Email)
		}
		if in.Phone != "" {
			contractor.Phone = strings.TrimSpace(in.Phone)
		}
		if in.PreferredChannel != "" {
			contractor.PreferredChannel = in.PreferredChannel
		}
		if in.Active != nil {
			contractor.Active = *in.Active
		}
		channel, err := normalizeContact(contractor.Name, contractor.Email, contractor.Phone, contractor.PreferredChannel)
		if err != nil {
			return err
		}
		contractor.PreferredChannel = channel
		if err := repos.Contractors.Update(ctx, contractor); err != nil {
			return mapRepoError(err, "contractor")
		}
		updated = contractor
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "contractor")
	}
	return updated, nil
}

// ListContractors returns contractors ordered by name.
func (s *PartyService) ListContractors(ctx context.Context, activeOnly bool) ([]domain.Contractor, error) {
	contractors, err := s.store.Repos().Contractors.List(ctx, activeOnly)
	if err != nil {
		return nil, mapRepoError(err, "contractor")
	}
	return contractors, nil
}

// normalizeContact validates a party's contact block and picks the
// preferred channel when none was given.
func normalizeContact(name, email, phone string, preferred domain.Channel) (domain.Channel, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperrors.NewValidationError("name required", nil)
	}
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return "", apperrors.NewValidationError("email or phone required", nil)
	}
	if email != "" && !strings.Contains(email, "@") {
		return "", apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if preferred == "" {
		if phone != "" {
			return domain.ChannelWhatsApp, nil
		}
		return domain.ChannelEmail, nil
	}
	if !preferred.Valid() {
		return "", apperrors.NewValidationError("invalid preferred_channel", map[string]any{"preferred_channel": preferred})
	}
	return preferred, nil
}
