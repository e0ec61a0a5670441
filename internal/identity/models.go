// Package identity manages the users of the system: the identities that
// authenticate, carry a role, and appear as actors in the audit ledger.
package identity

import (
	"context"
	"time"

	"leaddesk/internal/audit"
	"leaddesk/pkg/domain"
)

// EntityName is the audit ledger name for users.
const EntityName = "user"

// User is an authenticated actor. Audit records reference users by id
// without a cascading constraint, so deleting a user never erases its
// historical trail.
type User struct {
	ID             int64       `json:"id"`
	Username       string      `json:"username"`
	Email          *string     `json:"email"`
	HashedPassword string      `json:"-"`
	Role           domain.Role `json:"role"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Snapshot captures the audited fields. Password material is deliberately
// not part of the declared capture set.
func (u *User) Snapshot() *audit.Snapshot {
	return audit.NewSnapshot().
		Set("username", audit.String(u.Username)).
		Set("email", audit.StringPtr(u.Email)).
		Set("role", audit.String(u.Role.String())).
		Set("active", audit.Bool(u.Active)).
		Set("created_at", audit.Time(u.CreatedAt)).
		Set("updated_at", audit.Time(u.UpdatedAt))
}

// CreateUserRequest carries the fields for a new user.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Active   *bool   `json:"active"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

// Store persists users. Writes must join the transaction carried in ctx.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*User, error)
}
