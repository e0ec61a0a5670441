package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leaddesk/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "sales", "management"} {
		role, err := ParseRole(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, role.String())
	}

	_, err := ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseRole("superadmin")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRoleSetContains(t *testing.T) {
	assert.True(t, AdminOnly.Contains(RoleAdmin))
	assert.False(t, AdminOnly.Contains(RoleSales))
	assert.False(t, AdminOnly.Contains(RoleManagement))

	for _, r := range []Role{RoleAdmin, RoleSales, RoleManagement} {
		assert.True(t, AnyStaff.Contains(r), r.String())
	}
}
