package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated              EventType = "ticket_created"
	EventTicketStatusChanged        EventType = "ticket_status_changed"
	EventTicketCriticalValueChanged EventType = "ticket_critical_value_changed"
	EventTicketEscalated            EventType = "ticket_escalated"
	EventTicketResolved             EventType = "ticket_resolved"
	EventTicketActionAdded          EventType = "ticket_action_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCriticalValueChangedPayload payload.
type TicketCriticalValueChangedPayload struct {
	OldValue domain.CriticalValue `json:"old_value"`
	NewValue domain.CriticalValue `json:"new_value"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Level         domain.EscalationLevel `json:"level"`
	CriticalValue domain.CriticalValue   `json:"critical_value"`
	Notes         string                 `json:"notes"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// TicketActionAddedPayload payload.
type TicketActionAddedPayload struct {
	ActionID  string               `json:"action_id"`
	Action    string               `json:"action"`
	NewStatus *domain.TicketStatus `json:"new_status,omitempty"`
}
