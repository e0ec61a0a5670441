package domain

import dErrors "leaddesk/pkg/domain-errors"

// Role is the access tier an identity carries. It is a closed enumeration;
// construct via ParseRole at trust boundaries so the allowlist is enforced.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSales      Role = "sales"
	RoleManagement Role = "management"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleSales:      true,
	RoleManagement: true,
}

// ParseRole constructs a Role from external input (request bodies, token
// claims). Returns CodeValidation when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
	}
	return r, nil
}

// IsValid checks whether the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// RoleSet is the set of roles an operation accepts.
type RoleSet []Role

// AdminOnly gates administrative operations: user management and the audit
// ledger listing.
var AdminOnly = RoleSet{RoleAdmin}

// AnyStaff gates the regular CRM operations on clients and leads.
var AnyStaff = RoleSet{RoleAdmin, RoleSales, RoleManagement}

// Contains reports whether the set includes role.
func (s RoleSet) Contains(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}
