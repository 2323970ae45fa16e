package domain

import "time"

// System-generated action labels.
const (
	ActionLabelResolved = "Resolved ticket"
	ActionLabelUpdated  = "Updated ticket details"
)

// EscalationActionLabel returns the audit label for an escalation to the given tier.
func EscalationActionLabel(level EscalationLevel) string {
	return "Escalated to " + string(level)
}

// StatusChangeActionLabel returns the audit label for a status transition.
func StatusChangeActionLabel(old, new TicketStatus) string {
	return "Changed status from " + string(old) + " to " + string(new)
}

// CriticalValueChangeActionLabel returns the audit label for a severity change.
func CriticalValueChangeActionLabel(old, new CriticalValue) string {
	return "Changed critical value from " + string(old) + " to " + string(new)
}

// TicketAction is an immutable audit record of a single event on a ticket.
// Actions are never updated or deleted once written.
type TicketAction struct {
	ID        string
	TicketID  string
	UserID    string
	Action    string
	Notes     *string
	NewStatus *TicketStatus
	CreatedAt time.Time
}
