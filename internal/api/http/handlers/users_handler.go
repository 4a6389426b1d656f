package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/dto"
	"github.com/jb-platform/maintenance-service/internal/service"
)

// UsersHandler exposes login and user management endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: userResponse(res.User)},
	})
}

// Me handles GET /api/v1/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		UserID:       p.UserID,
		Name:         p.Name,
		Email:        p.Email,
		Role:         p.Role,
		PartyID:      p.PartyID,
		Capabilities: p.Capabilities.List(),
	}})
}

// CreateUser handles POST /api/v1/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		PartyID:  req.PartyID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}
