package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UsersHandler manages the team roster and self-service profile endpoints.
type UsersHandler struct {
	identity *service.IdentityService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(identityService *service.IdentityService) *UsersHandler {
	return &UsersHandler{identity: identityService}
}

// ListTeam GET /api/users/team?sort=name&order=asc.
func (h *UsersHandler) ListTeam(c *fiber.Ctx) error {
	team, err := h.identity.ListTeam(c.UserContext(), auth.IdentityFromContext(c), service.TeamSort{
		Key:       domain.IdentitySortKey(strings.TrimSpace(c.Query("sort"))),
		Direction: domain.ParseSortDirection(c.Query("order")),
	})
	if err != nil {
		return err
	}
	items := make([]dto.IdentityResponse, 0, len(team))
	for i := range team {
		items = append(items, dto.NewIdentityResponse(&team[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMember POST /api/users/team and POST /api/auth/register.
func (h *UsersHandler) AddMember(c *fiber.Ctx) error {
	var req dto.TeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.identity.AddTeamMember(c.UserContext(), auth.IdentityFromContext(c), service.TeamMemberInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Designation: req.Designation,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewIdentityResponse(member)})
}

// EditMember PUT /api/users/team/:id.
func (h *UsersHandler) EditMember(c *fiber.Ctx) error {
	var req dto.ProfilePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.identity.EditMember(c.UserContext(), auth.IdentityFromContext(c), c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(member)})
}

// DeleteMember DELETE /api/users/team/:id.
func (h *UsersHandler) DeleteMember(c *fiber.Ctx) error {
	if err := h.identity.DeleteMember(c.UserContext(), auth.IdentityFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateProfile PUT /api/users/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.ProfilePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	identity, err := h.identity.UpdateProfile(c.UserContext(), auth.IdentityFromContext(c), service.ProfileInput{
		Email: req.Email,
		Patch: req.Patch(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// ChangePassword PUT /api/users/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.identity.ChangePassword(c.UserContext(), auth.IdentityFromContext(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}
