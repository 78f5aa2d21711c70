package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CustomizationHandler serves the widget settings.
type CustomizationHandler struct {
	settings *service.SettingsService
}

// NewCustomizationHandler constructs handler.
func NewCustomizationHandler(settingsService *service.SettingsService) *CustomizationHandler {
	return &CustomizationHandler{settings: settingsService}
}

// Get GET /api/customization. Public so the widget can render.
func (h *CustomizationHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.GetSettings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}

// Update PUT /api/customization.
func (h *CustomizationHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.UpdateSettings(c.UserContext(), auth.IdentityFromContext(c), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}
