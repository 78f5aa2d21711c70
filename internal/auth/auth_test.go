package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	identity := &domain.Identity{ID: "id-1", Role: domain.RoleAdmin}

	token, exp, err := tm.GenerateToken(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.IdentityID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(&domain.Identity{ID: "id-1", Role: domain.RoleTeamMember})
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

type stubResolver map[string]*domain.Identity

func (s stubResolver) Verify(_ context.Context, token string) (*domain.Identity, error) {
	if identity, ok := s[token]; ok {
		return identity, nil
	}
	return nil, apperrors.NewUnauthorized("invalid token")
}

func newTestApp() *fiber.App {
	mw := NewAuthMiddleware(stubResolver{
		"admin":  {ID: "a", Name: "Admin", Role: domain.RoleAdmin},
		"member": {ID: "m", Name: "Member", Role: domain.RoleTeamMember},
	})
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		if identity := IdentityFromContext(c); identity != nil {
			return c.SendString(identity.ID)
		}
		return c.SendString("visitor")
	}
	app.Get("/optional", mw.Optional, whoami)
	app.Get("/staff", mw.Handle, RequireStaff(), whoami)
	app.Get("/admin", mw.Handle, RequireAdmin(), whoami)
	return app
}

func TestMiddleware(t *testing.T) {
	app := newTestApp()
	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"optional anonymous", "/optional", "", http.StatusOK},
		{"optional with token", "/optional", "member", http.StatusOK},
		{"optional with bad token", "/optional", "forged", http.StatusUnauthorized},
		{"staff without token", "/staff", "", http.StatusUnauthorized},
		{"staff as member", "/staff", "member", http.StatusOK},
		{"admin as member", "/admin", "member", http.StatusForbidden},
		{"admin as admin", "/admin", "admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
