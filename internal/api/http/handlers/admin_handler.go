package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketdesk/internal/api/dto"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/service"
)

// AdminHandler exposes admin login and the admin directory.
type AdminHandler struct {
	authService  *service.AuthService
	adminService *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{authService: authService, adminService: adminService}
}

// Login handles POST /auth/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	admin, token, exp, err := h.authService.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": adminResponse(admin),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /auth/admin/me.
func (h *AdminHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": adminResponse(auth.AdminFromContext(c))})
}

// ListAdminUsers handles GET /admin-users.
func (h *AdminHandler) ListAdminUsers(c *fiber.Ctx) error {
	filters := service.AdminListFilters{}
	if role := c.Query("role"); role != "" {
		r := domain.AdminRole(role)
		filters.Role = &r
	}
	admins, err := h.adminService.ListAdmins(c.UserContext(), auth.AdminFromContext(c), filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": admins})
}

func adminResponse(admin *domain.AdminIdentity) dto.AdminResponse {
	if admin == nil {
		return dto.AdminResponse{}
	}
	return dto.AdminResponse{
		ID:     admin.ID,
		Name:   admin.Name,
		Email:  admin.Email,
		Role:   string(admin.Role),
		Status: string(admin.Status),
	}
}
