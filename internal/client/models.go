// Package client manages the customer records that leads attach to.
package client

import (
	"context"
	"time"

	"leaddesk/internal/audit"
	dErrors "leaddesk/pkg/domain-errors"
)

// EntityName is the audit ledger name for clients.
const EntityName = "client"

// Type distinguishes natural persons from juridical (company) clients.
type Type string

const (
	TypeNatural   Type = "natural"
	TypeJuridical Type = "juridical"
)

// ParseType constructs a Type from external input.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeNatural, TypeJuridical:
		return t, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown client type %q", s)
}

// String returns the string representation of the type.
func (t Type) String() string { return string(t) }

// Client is a customer record. Phone is unique when present.
type Client struct {
	ID          int64     `json:"id"`
	ClientType  Type      `json:"client_type"`
	ContactName string    `json:"contact_name"`
	CompanyName *string   `json:"company_name"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Instagram   *string   `json:"instagram"`
	Address     *string   `json:"address"`
	Country     *string   `json:"country"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot captures the audited fields.
func (c *Client) Snapshot() *audit.Snapshot {
	return audit.NewSnapshot().
		Set("client_type", audit.String(c.ClientType.String())).
		Set("contact_name", audit.String(c.ContactName)).
		Set("company_name", audit.StringPtr(c.CompanyName)).
		Set("phone", audit.StringPtr(c.Phone)).
		Set("email", audit.StringPtr(c.Email)).
		Set("instagram", audit.StringPtr(c.Instagram)).
		Set("address", audit.StringPtr(c.Address)).
		Set("country", audit.StringPtr(c.Country)).
		Set("created_at", audit.Time(c.CreatedAt)).
		Set("updated_at", audit.Time(c.UpdatedAt))
}

// CreateClientRequest carries the fields for a new client.
type CreateClientRequest struct {
	ClientType  string  `json:"client_type"`
	ContactName string  `json:"contact_name"`
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Instagram   *string `json:"instagram"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
}

// UpdateClientRequest is a partial update; nil fields are left untouched.
type UpdateClientRequest struct {
	ClientType  *string `json:"client_type"`
	ContactName *string `json:"contact_name"`
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Instagram   *string `json:"instagram"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
}

// Store persists clients. Writes must join the transaction carried in ctx.
type Store interface {
	Create(ctx context.Context, c *Client) error
	FindByID(ctx context.Context, id int64) (*Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Client, error)
	Search(ctx context.Context, phone, name string, limit int) ([]*Client, error)
}
