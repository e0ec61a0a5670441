// Package authz decides whether a bearer credential may perform an
// operation. The gate is a pure decision function over the decoded token and
// the operation's required role set: no store access, no side effects.
package authz

import (
	"leaddesk/internal/jwttoken"
	"leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

// TokenValidator verifies a raw bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Principal is a verified caller identity.
type Principal struct {
	IdentityID int64
	Role       domain.Role
	TokenID    string
}

// Gate maps a verified bearer credential to a role and checks it against an
// operation's required role set.
type Gate struct {
	validator TokenValidator
}

// NewGate constructs a gate around a token validator. The validator carries
// the signing key; the gate itself holds no secrets.
func NewGate(validator TokenValidator) *Gate {
	return &Gate{validator: validator}
}

// Authorize validates the token and decides allow/deny. A bad, expired, or
// malformed token fails CodeUnauthorized regardless of the required set; a
// valid token whose role is outside the set fails CodeForbidden. A denied
// request gets no partial capability.
func (g *Gate) Authorize(token string, required domain.RoleSet) (Principal, error) {
	claims, err := g.validator.ValidateToken(token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return Principal{}, err
		}
		return Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token validation failed")
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		// A token carrying an unknown role is a malformed credential, not a
		// role decision.
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token carries unknown role")
	}
	if claims.UserID <= 0 {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no identity")
	}

	if !required.Contains(role) {
		return Principal{}, dErrors.New(dErrors.CodeForbidden, "insufficient role")
	}

	return Principal{
		IdentityID: claims.UserID,
		Role:       role,
		TokenID:    claims.ID,
	}, nil
}
