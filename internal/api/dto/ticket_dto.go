package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. Enum fields arrive as raw strings and are parsed
// loudly; unknown literals are a 400, never a silent default.
type CreateTicketRequest struct {
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	Category               string     `json:"category"`
	Priority               string     `json:"priority"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date,omitempty"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// EscalateRequest payload for L2 and L3 escalation.
type EscalateRequest struct {
	Notes         string `json:"notes"`
	CriticalValue string `json:"critical_value,omitempty"`
}

// SetCriticalValueRequest payload.
type SetCriticalValueRequest struct {
	CriticalValue string `json:"critical_value"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// CreateActionRequest payload.
type CreateActionRequest struct {
	Action    string  `json:"action"`
	Notes     *string `json:"notes,omitempty"`
	NewStatus *string `json:"new_status,omitempty"`
}

// UserRefResponse is the only identity shape exposed on the wire.
type UserRefResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// TicketActionResponse represents an audit trail entry.
type TicketActionResponse struct {
	ID        string               `json:"id"`
	Action    string               `json:"action"`
	Notes     *string              `json:"notes,omitempty"`
	NewStatus *domain.TicketStatus `json:"new_status,omitempty"`
	Actor     *UserRefResponse     `json:"actor,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                     string                 `json:"id"`
	Title                  string                 `json:"title"`
	Description            string                 `json:"description"`
	Category               domain.TicketCategory  `json:"category"`
	Priority               domain.TicketPriority  `json:"priority"`
	Status                 domain.TicketStatus    `json:"status"`
	CriticalValue          domain.CriticalValue   `json:"critical_value"`
	ExpectedCompletionDate *time.Time             `json:"expected_completion_date,omitempty"`
	CreatedBy              *UserRefResponse       `json:"created_by,omitempty"`
	AssignedTo             *UserRefResponse       `json:"assigned_to,omitempty"`
	Actions                []TicketActionResponse `json:"actions,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// TicketListResponse is a paginated listing.
type TicketListResponse struct {
	Data       []TicketResponse `json:"data"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}
