package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleForNewIdentity(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleForNewIdentity(0))
	assert.Equal(t, RoleTeamMember, RoleForNewIdentity(1))
	assert.Equal(t, RoleTeamMember, RoleForNewIdentity(99))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ana@x.com"))
	assert.NoError(t, ValidateEmail("first.last@support.example.org"))
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail("a@b"), ErrInvalidEmail)
	assert.Equal(t, "ana@x.com", NormalizeEmail("  Ana@X.com "))
}

func TestIdentityApply(t *testing.T) {
	t.Run("profile rebuilds name", func(t *testing.T) {
		id := &Identity{Name: "Old", FirstName: "Ana", LastName: "Silva"}
		require.NoError(t, id.Apply(ProfilePatch{LastName: strPtr("Souza")}, true, t0))
		assert.Equal(t, "Ana Souza", id.Name)
	})

	t.Run("admin edit keeps name", func(t *testing.T) {
		id := &Identity{Name: "Old", FirstName: "Ana"}
		require.NoError(t, id.Apply(ProfilePatch{LastName: strPtr("Souza"), Phone: strPtr("123")}, false, t0))
		assert.Equal(t, "Old", id.Name)
		assert.Equal(t, "123", id.Phone)
	})

	t.Run("short name rejected", func(t *testing.T) {
		id := &Identity{Name: "Old"}
		assert.ErrorIs(t, id.Apply(ProfilePatch{Name: strPtr("A")}, false, t0), ErrNameTooShort)
		assert.Equal(t, "Old", id.Name)
	})
}
