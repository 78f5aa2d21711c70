package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// IdentityService coordinates signup, login and roster management.
type IdentityService struct {
	identities repository.IdentityRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	clock      func() time.Time
}

// IdentityDependencies encapsulates repo requirements for identity service.
type IdentityDependencies struct {
	IdentityRepo repository.IdentityRepository
	Logger       *zap.Logger
	Clock        func() time.Time
}

// SignupInput is the self-service registration form.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// TeamMemberInput is the admin form for adding a roster entry.
type TeamMemberInput struct {
	Name        string
	Email       string
	Phone       string
	FirstName   string
	LastName    string
	Designation string
}

// ProfileInput is a self edit. Email is accepted only so a change can be
// rejected explicitly.
type ProfileInput struct {
	Email *string
	Patch domain.ProfilePatch
}

// TeamSort orders the roster.
type TeamSort struct {
	Key       domain.IdentitySortKey
	Direction domain.SortDirection
}

// Session is a successful login.
type Session struct {
	Identity  *domain.Identity
	Token     string
	ExpiresAt time.Time
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.Config, deps IdentityDependencies) *IdentityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &IdentityService{
		identities: deps.IdentityRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		clock:      clock,
	}
}

// Signup registers a staff account. The very first account becomes the admin;
// the repository makes that check atomic with the insert.
func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (*domain.Identity, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	switch {
	case name == "":
		return nil, apperrors.NewMissingField("name")
	case email == "":
		return nil, apperrors.NewMissingField("email")
	case input.Password == "":
		return nil, apperrors.NewMissingField("password")
	}
	if err := validateAll(domain.ValidateName(name), domain.ValidateEmail(email), domain.ValidatePassword(input.Password)); err != nil {
		return nil, mapIdentityError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.identities.Register(ctx, identity); err != nil {
		return nil, mapIdentityError(err)
	}

	s.logger.Info("identity registered", zap.String("identity_id", identity.ID), zap.String("role", string(identity.Role)))
	return identity, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("please provide email and password", nil)
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Identity: identity, Token: token, ExpiresAt: exp}, nil
}

// Verify resolves a bearer token to the current identity. A token for a
// deleted identity is rejected.
func (s *IdentityService) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	identity, err := s.identities.GetByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return identity, nil
}

// AdminExists reports whether bootstrap already happened.
func (s *IdentityService) AdminExists(ctx context.Context) (bool, error) {
	exists, err := s.identities.AdminExists(ctx)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return exists, nil
}

// AddTeamMember lets an admin create a team member. The initial password is
// the member's email.
func (s *IdentityService) AddTeamMember(ctx context.Context, actor *domain.Identity, input TeamMemberInput) (*domain.Identity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" {
		return nil, apperrors.NewMissingField("name")
	}
	if email == "" {
		return nil, apperrors.NewMissingField("email")
	}
	if err := validateAll(domain.ValidateName(name), domain.ValidateEmail(email)); err != nil {
		return nil, mapIdentityError(err)
	}

	hash, err := auth.HashPassword(email, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	member := &domain.Identity{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleTeamMember,
		Phone:        strings.TrimSpace(input.Phone),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Designation:  strings.TrimSpace(input.Designation),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.identities.Create(ctx, member); err != nil {
		return nil, mapIdentityError(err)
	}

	s.logger.Info("team member added", zap.String("identity_id", member.ID), zap.String("by", actor.ID))
	return member, nil
}

// ListTeam returns every identity, newest first unless sort says otherwise.
func (s *IdentityService) ListTeam(ctx context.Context, actor *domain.Identity, sort TeamSort) ([]domain.Identity, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	team, err := s.identities.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	key := sort.Key
	if key == "" {
		key = domain.IdentitySortCreatedAt
	}
	dir := sort.Direction
	if dir == "" {
		dir = domain.SortDesc
	}
	domain.SortIdentities(team, key, dir)
	return team, nil
}

// EditMember updates roster fields. Admins may edit anyone, everyone else
// only themselves. Role and email never change here.
func (s *IdentityService) EditMember(ctx context.Context, actor *domain.Identity, id string, patch domain.ProfilePatch) (*domain.Identity, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() && actor.ID != id {
		return nil, apperrors.NewForbidden("you can only edit your own profile")
	}
	member, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, mapIdentityError(err)
	}
	if err := member.Apply(patch, false, s.clock()); err != nil {
		return nil, mapIdentityError(err)
	}
	if err := s.identities.Update(ctx, member); err != nil {
		return nil, mapIdentityError(err)
	}
	return member, nil
}

// UpdateProfile edits the caller's own profile. Giving a first or last name
// rebuilds the display name.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *domain.Identity, input ProfileInput) (*domain.Identity, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	current, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapIdentityError(err)
	}
	if input.Email != nil {
		if email := domain.NormalizeEmail(*input.Email); email != "" && email != current.Email {
			return nil, apperrors.NewValidationError("email cannot be changed", map[string]any{"field": "email"})
		}
	}
	if err := current.Apply(input.Patch, true, s.clock()); err != nil {
		return nil, mapIdentityError(err)
	}
	if err := s.identities.Update(ctx, current); err != nil {
		return nil, mapIdentityError(err)
	}
	return current, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, actor *domain.Identity, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("please provide current and new password", nil)
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return mapIdentityError(err)
	}

	current, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return mapIdentityError(err)
	}
	if err := auth.ComparePassword(current.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	current.PasswordHash = hash
	current.UpdatedAt = s.clock()
	if err := s.identities.Update(ctx, current); err != nil {
		return mapIdentityError(err)
	}
	return nil
}

// DeleteMember removes a team member. Admin accounts, including the caller's
// own, cannot be deleted.
func (s *IdentityService) DeleteMember(ctx context.Context, actor *domain.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	member, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return mapIdentityError(err)
	}
	if member.IsAdmin() {
		return apperrors.NewForbidden("cannot delete admin account")
	}
	if member.ID == actor.ID {
		return apperrors.NewForbidden("cannot delete your own account")
	}
	if err := s.identities.Delete(ctx, id); err != nil {
		return mapIdentityError(err)
	}
	s.logger.Info("team member deleted", zap.String("identity_id", id), zap.String("by", actor.ID))
	return nil
}

func requireAdmin(actor *domain.Identity) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func validateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
