package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/repository"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// AdminService exposes the admin directory to ticket consoles.
type AdminService struct {
	admins     repository.AdminRepository
	bcryptCost int
	logger     *zap.Logger
}

// AdminDependencies encapsulates repositories required for the directory.
type AdminDependencies struct {
	AdminRepo repository.AdminRepository
	Logger    *zap.Logger
}

// AdminSummary is the directory entry used to pick assignees.
type AdminSummary struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  domain.AdminRole `json:"role"`
}

// AdminListFilters define listing parameters. Nil Status lists active accounts only.
type AdminListFilters struct {
	Role   *domain.AdminRole
	Status *domain.AdminStatus
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		admins:     deps.AdminRepo,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// ListAdmins returns directory entries ordered by name.
func (s *AdminService) ListAdmins(ctx context.Context, actor *domain.AdminIdentity, filters AdminListFilters) ([]AdminSummary, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	status := filters.Status
	if status == nil {
		active := domain.AdminStatusActive
		status = &active
	}
	admins, err := s.admins.List(ctx, repository.AdminFilter{Role: filters.Role, Status: status})
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	out := make([]AdminSummary, 0, len(admins))
	for _, a := range admins {
		out = append(out, AdminSummary{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role})
	}
	return out, nil
}

// GetAdmin fetches one directory entry.
func (s *AdminService) GetAdmin(ctx context.Context, id string) (*domain.AdminIdentity, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("admin", map[string]any{"id": id})
		}
		return nil, apperrors.NewUnavailable(err)
	}
	return admin, nil
}

// SeedAdmins creates bootstrap accounts; accounts that already exist are skipped.
func (s *AdminService) SeedAdmins(ctx context.Context, seeds []config.AdminSeed) error {
	for _, seed := range seeds {
		role := domain.AdminRole(strings.ToLower(seed.Role))
		if role == "" {
			role = domain.AdminRoleAdmin
		}
		hash, err := auth.HashPassword(seed.Password, s.bcryptCost)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		admin := &domain.AdminIdentity{
			ID:           seed.ID,
			Name:         seed.Name,
			Email:        strings.ToLower(seed.Email),
			PasswordHash: hash,
			Role:         role,
			Status:       domain.AdminStatusActive,
		}
		if err := s.admins.Create(ctx, admin); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				s.logger.Debug("admin seed already present", zap.String("email", admin.Email))
				continue
			}
			return err
		}
		s.logger.Info("seeded admin", zap.String("id", admin.ID), zap.String("email", admin.Email))
	}
	return nil
}
