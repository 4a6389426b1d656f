package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/config"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// AuthService coordinates logins and user management.
type AuthService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, store repository.Store, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      store,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// LoginResult carries the issued token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, mapRepoError(err, "user")
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// CreateUserInput describes a new login.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	PartyID  *string
}

// CreateUser adds a login. Tenant and contractor logins must point at an
// existing party record.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if !in.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": in.Role})
	}

	repos := s.store.Repos()
	var partyID *string
	switch in.Role {
	case domain.RoleTenant, domain.RoleContractor:
		if in.PartyID == nil || strings.TrimSpace(*in.PartyID) == "" {
			return nil, apperrors.NewValidationError("party_id required for role", map[string]any{"role": in.Role})
		}
		id := strings.TrimSpace(*in.PartyID)
		if err := requireUUID(id, string(in.Role)); err != nil {
			return nil, err
		}
		var err error
		if in.Role == domain.RoleTenant {
			_, err = repos.Tenants.GetByID(ctx, id)
		} else {
			_, err = repos.Contractors.GetByID(ctx, id)
		}
		if err != nil {
			return nil, mapRepoError(err, string(in.Role))
		}
		partyID = &id
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		PartyID:      partyID,
		Active:       true,
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// BootstrapAdmin creates the configured admin when no user holds its email.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	_, err := s.store.Repos().Users.GetByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	user, err := s.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
