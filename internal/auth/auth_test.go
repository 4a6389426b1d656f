package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository/memory"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, exp, err := tm.GenerateToken("user-1", domain.RoleContractor)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleContractor, claims.Role)

	_, err = NewTokenManager("other", time.Minute).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, _, err := tm.GenerateToken("user-1", domain.RoleTenant)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestHashPasswordEnforcesLength(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	hash, err := HashPassword("long-enough", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "long-enough"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestPrincipalActor(t *testing.T) {
	party := "contractor-9"
	contractor := NewPrincipal(&domain.User{ID: "u1", Role: domain.RoleContractor, PartyID: &party})
	assert.Equal(t, domain.PartyContractor, contractor.Actor().Party)
	assert.Equal(t, "contractor-9", contractor.Actor().ID)

	pm := NewPrincipal(&domain.User{ID: "u2", Role: domain.RolePropertyManager})
	assert.Equal(t, domain.PartyPropertyManager, pm.Actor().Party)

	landlord := NewPrincipal(&domain.User{ID: "u3", Role: domain.RoleLandlord})
	assert.Empty(t, landlord.Actor().Party)
	assert.True(t, landlord.Can(domain.CapTicketsViewAll))
	assert.False(t, landlord.Can(domain.CapWorkflowManage))
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *domain.User) {
	t.Helper()
	store := memory.NewStore()
	user := &domain.User{Name: "Pat", Email: "pat@example.com", Role: domain.RoleAgent, Active: true}
	require.NoError(t, store.Repos().Users.Create(context.Background(), user))

	tm := NewTokenManager("secret", time.Minute)
	mw := NewAuthMiddleware(tm, store.Repos().Users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	app.Get("/tenants", mw.Handle, RequireCapability(domain.CapTenantsManage), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.UserID)
	})
	app.Get("/workflow", mw.Handle, RequireCapability(domain.CapWorkflowManage), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tm, user
}

func TestMiddlewareAndCapabilities(t *testing.T) {
	app, tm, user := newTestApp(t)
	token, _, err := tm.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/tenants", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/tenants", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
