package service

import (
	"errors"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// errNotAssignee is raised inside ticket mutations so the authorization check
// runs under the same lock as the write.
var errNotAssignee = errors.New("ticket is not assigned to the caller")

// mapTicketError translates repository and domain errors into DomainErrors.
func mapTicketError(err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, errNotAssignee):
		return apperrors.NewForbidden("ticket is not assigned to you")
	case errors.Is(err, domain.ErrTicketResolved):
		return apperrors.NewInvalidState("ticket is already resolved", nil)
	case errors.Is(err, domain.ErrEmptyBody):
		return apperrors.NewMissingField("body")
	case errors.Is(err, domain.ErrMissingContactName):
		return apperrors.NewMissingField("name")
	case errors.Is(err, domain.ErrMissingContactEmail):
		return apperrors.NewMissingField("email")
	case errors.Is(err, domain.ErrMissingContactPhone):
		return apperrors.NewMissingField("phone")
	case errors.Is(err, domain.ErrAssigneeNotTeamMember):
		return apperrors.NewInvalidArgument("assignee must be a team member", nil)
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return apperrors.NewConflict("ticket was modified concurrently, retry", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

// mapIdentityError translates repository and validation errors for identity
// operations.
func mapIdentityError(err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("email already exists", map[string]any{"field": "email"})
	case errors.Is(err, domain.ErrInvalidEmail):
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "email"})
	case errors.Is(err, domain.ErrNameTooShort):
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "name"})
	case errors.Is(err, domain.ErrPasswordTooShort):
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	default:
		return apperrors.NewInternalError(err)
	}
}
