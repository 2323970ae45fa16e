package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew         TicketStatus = "NEW"
	TicketStatusAttending   TicketStatus = "ATTENDING"
	TicketStatusCompleted   TicketStatus = "COMPLETED"
	TicketStatusEscalatedL2 TicketStatus = "ESCALATED_L2"
	TicketStatusEscalatedL3 TicketStatus = "ESCALATED_L3"
	TicketStatusResolved    TicketStatus = "RESOLVED"
)

// ParseTicketStatus converts a wire literal into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	switch TicketStatus(value) {
	case TicketStatusNew, TicketStatusAttending, TicketStatusCompleted,
		TicketStatusEscalatedL2, TicketStatusEscalatedL3, TicketStatusResolved:
		return TicketStatus(value), nil
	}
	return "", &InvalidEnumError{Field: "status", Value: value}
}

// TicketCategory classifies the subject of a ticket.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "HARDWARE"
	TicketCategorySoftware TicketCategory = "SOFTWARE"
	TicketCategoryNetwork  TicketCategory = "NETWORK"
	TicketCategoryAccess   TicketCategory = "ACCESS"
	TicketCategoryOther    TicketCategory = "OTHER"
)

// ParseTicketCategory converts a wire literal into a TicketCategory.
func ParseTicketCategory(value string) (TicketCategory, error) {
	switch TicketCategory(value) {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork,
		TicketCategoryAccess, TicketCategoryOther:
		return TicketCategory(value), nil
	}
	return "", &InvalidEnumError{Field: "category", Value: value}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ParseTicketPriority converts a wire literal into a TicketPriority.
func ParseTicketPriority(value string) (TicketPriority, error) {
	switch TicketPriority(value) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return TicketPriority(value), nil
	}
	return "", &InvalidEnumError{Field: "priority", Value: value}
}

// CriticalValue is the severity classification assigned at L2, gating L3 escalation.
type CriticalValue string

const (
	CriticalValueNone CriticalValue = "NONE"
	CriticalValueC1   CriticalValue = "C1"
	CriticalValueC2   CriticalValue = "C2"
	CriticalValueC3   CriticalValue = "C3"
)

// ParseCriticalValue converts a wire literal into a CriticalValue.
func ParseCriticalValue(value string) (CriticalValue, error) {
	switch CriticalValue(value) {
	case CriticalValueNone, CriticalValueC1, CriticalValueC2, CriticalValueC3:
		return CriticalValue(value), nil
	}
	return "", &InvalidEnumError{Field: "criticalValue", Value: value}
}

// EligibleForL3 reports whether a ticket with this value may progress past L2.
func (cv CriticalValue) EligibleForL3() bool {
	return cv == CriticalValueC1 || cv == CriticalValueC2
}

// EscalationLevel identifies the target support tier of an escalation.
type EscalationLevel string

const (
	EscalationL2 EscalationLevel = "L2"
	EscalationL3 EscalationLevel = "L3"
)

// ParseEscalationLevel converts a wire literal into an EscalationLevel.
func ParseEscalationLevel(value string) (EscalationLevel, error) {
	switch EscalationLevel(value) {
	case EscalationL2, EscalationL3:
		return EscalationLevel(value), nil
	}
	return "", &InvalidEnumError{Field: "escalation", Value: value}
}

// Status returns the ticket status a successful escalation transitions to.
func (l EscalationLevel) Status() TicketStatus {
	if l == EscalationL3 {
		return TicketStatusEscalatedL3
	}
	return TicketStatusEscalatedL2
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	Title                  string
	Description            string
	Category               TicketCategory
	Priority               TicketPriority
	Status                 TicketStatus
	CriticalValue          CriticalValue
	ExpectedCompletionDate *time.Time
	CreatedByID            string
	AssignedToID           string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// InvalidEnumError signals an unrecognized enumeration literal on a boundary.
type InvalidEnumError struct {
	Field string
	Value string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid %s value %q", e.Field, e.Value)
}
