package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SignupRequest payload.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns token information.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      IdentityResponse `json:"user"`
}

// TeamMemberRequest is the admin form for adding a member.
type TeamMemberRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Designation string `json:"designation"`
}

// ProfilePatchRequest is a partial identity update. Email is only checked,
// never applied.
type ProfilePatchRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Designation *string `json:"designation"`
}

// Patch converts the request into a domain patch.
func (r ProfilePatchRequest) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Name:        r.Name,
		Phone:       r.Phone,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Designation: r.Designation,
	}
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// IdentityResponse is the public view of an identity. The password hash is
// never serialised.
type IdentityResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	Phone       string      `json:"phone"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Designation string      `json:"designation"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewIdentityResponse maps an identity.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          identity.ID,
		Name:        identity.Name,
		Email:       identity.Email,
		Role:        identity.Role,
		Phone:       identity.Phone,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
		Designation: identity.Designation,
		CreatedAt:   identity.CreatedAt,
		UpdatedAt:   identity.UpdatedAt,
	}
}
