// Package lead manages sales leads and their lifecycle.
package lead

import (
	"context"
	"time"

	"leaddesk/internal/audit"
	dErrors "leaddesk/pkg/domain-errors"
)

// EntityName is the audit ledger name for leads.
const EntityName = "lead"

// Channel records where the lead originated.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelManual    Channel = "manual"
)

// ParseChannel constructs a Channel from external input.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelWeb, ChannelWhatsApp, ChannelInstagram, ChannelManual:
		return c, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown lead channel %q", s)
}

func (c Channel) String() string { return string(c) }

// Status is the lead's position in the sales funnel.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQuoted    Status = "quoted"
	StatusClosed    Status = "closed"
	StatusDiscarded Status = "discarded"
)

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusContacted, StatusQuoted, StatusClosed, StatusDiscarded:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown lead status %q", s)
}

func (s Status) String() string { return string(s) }

// Lead ties a client to a sales funnel position and an assignee.
type Lead struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	Channel      Channel   `json:"channel"`
	Status       Status    `json:"status"`
	AdminNotes   *string   `json:"admin_notes"`
	SalesNotes   *string   `json:"sales_notes"`
	CreatedByID  int64     `json:"created_by_id"`
	AssignedToID *int64    `json:"assigned_to_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot captures the audited fields.
func (l *Lead) Snapshot() *audit.Snapshot {
	return audit.NewSnapshot().
		Set("client_id", audit.Int(l.ClientID)).
		Set("channel", audit.String(l.Channel.String())).
		Set("status", audit.String(l.Status.String())).
		Set("admin_notes", audit.StringPtr(l.AdminNotes)).
		Set("sales_notes", audit.StringPtr(l.SalesNotes)).
		Set("created_by_id", audit.Int(l.CreatedByID)).
		Set("assigned_to_id", audit.IntPtr(l.AssignedToID)).
		Set("created_at", audit.Time(l.CreatedAt)).
		Set("updated_at", audit.Time(l.UpdatedAt))
}

// CreateLeadRequest carries the fields for a new lead.
type CreateLeadRequest struct {
	ClientID     int64   `json:"client_id"`
	Channel      string  `json:"channel"`
	AdminNotes   *string `json:"admin_notes"`
	SalesNotes   *string `json:"sales_notes"`
	AssignedToID *int64  `json:"assigned_to_id"`
}

// UpdateLeadRequest is a partial update; nil fields are left untouched.
type UpdateLeadRequest struct {
	ClientID     *int64  `json:"client_id"`
	Channel      *string `json:"channel"`
	Status       *string `json:"status"`
	AdminNotes   *string `json:"admin_notes"`
	SalesNotes   *string `json:"sales_notes"`
	AssignedToID *int64  `json:"assigned_to_id"`
}

// Filter narrows lead listings.
type Filter struct {
	Status       *Status
	Channel      *Channel
	AssignedToID *int64
	Limit        int
	Offset       int
}

// Stats groups lead counts by funnel position and origin.
type Stats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByChannel map[string]int64 `json:"by_channel"`
}

// Store persists leads. Writes must join the transaction carried in ctx.
type Store interface {
	Create(ctx context.Context, l *Lead) error
	FindByID(ctx context.Context, id int64) (*Lead, error)
	Update(ctx context.Context, l *Lead) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]*Lead, error)
	Stats(ctx context.Context) (*Stats, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]*Lead, error)
}
