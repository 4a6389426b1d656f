package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/domain"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// RequireCapability lets the request through when the principal holds any
// of the listed capabilities.
func RequireCapability(caps ...domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(caps) == 0 {
			return c.Next()
		}
		for _, want := range caps {
			if principal.Can(want) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient permissions")
	}
}

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
