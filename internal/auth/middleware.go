package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	"github.com/jb-platform/maintenance-service/internal/workflow"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. It is resolved once per
// request from the stored user, so role changes apply to live tokens.
type Principal struct {
	UserID       string
	Name         string
	Email        string
	Role         domain.Role
	PartyID      *string
	Capabilities domain.CapabilitySet
}

// NewPrincipal resolves the capabilities of user.
func NewPrincipal(user *domain.User) *Principal {
	return &Principal{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		PartyID:      user.PartyID,
		Capabilities: domain.CapabilitiesFor(user.Role),
	}
}

// Can reports whether the principal holds c.
func (p *Principal) Can(c domain.Capability) bool {
	return p != nil && p.Capabilities.Has(c)
}

// Party returns the linked tenant or contractor id, or "".
func (p *Principal) Party() string {
	if p == nil || p.PartyID == nil {
		return ""
	}
	return *p.PartyID
}

// Actor maps the principal onto a workflow actor.
func (p *Principal) Actor() workflow.Actor {
	switch {
	case p.Can(domain.CapWorkflowManage):
		return workflow.Manager(p.UserID)
	case p.Role == domain.RoleContractor:
		return workflow.ContractorActor(p.Party())
	case p.Role == domain.RoleTenant:
		return workflow.TenantActor(p.Party())
	default:
		return workflow.Actor{ID: p.UserID}
	}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("user inactive")
	}

	c.Locals(principalKey, NewPrincipal(user))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
