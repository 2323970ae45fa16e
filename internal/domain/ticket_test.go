package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketStatus(t *testing.T) {
	for _, value := range []string{"NEW", "ATTENDING", "COMPLETED", "ESCALATED_L2", "ESCALATED_L3", "RESOLVED"} {
		status, err := ParseTicketStatus(value)
		require.NoError(t, err)
		assert.Equal(t, TicketStatus(value), status)
	}

	for _, value := range []string{"new", "Resolved", "CLOSED", ""} {
		_, err := ParseTicketStatus(value)
		require.Error(t, err, "value %q should be rejected", value)
		var enumErr *InvalidEnumError
		require.ErrorAs(t, err, &enumErr)
		assert.Equal(t, "status", enumErr.Field)
		assert.Equal(t, value, enumErr.Value)
	}
}

func TestParseTicketCategory(t *testing.T) {
	for _, value := range []string{"HARDWARE", "SOFTWARE", "NETWORK", "ACCESS", "OTHER"} {
		category, err := ParseTicketCategory(value)
		require.NoError(t, err)
		assert.Equal(t, TicketCategory(value), category)
	}

	_, err := ParseTicketCategory("hardware")
	assert.Error(t, err)
}

func TestParseTicketPriority(t *testing.T) {
	for _, value := range []string{"LOW", "MEDIUM", "HIGH"} {
		priority, err := ParseTicketPriority(value)
		require.NoError(t, err)
		assert.Equal(t, TicketPriority(value), priority)
	}

	_, err := ParseTicketPriority("URGENT")
	assert.Error(t, err)
}

func TestParseCriticalValue(t *testing.T) {
	for _, value := range []string{"NONE", "C1", "C2", "C3"} {
		cv, err := ParseCriticalValue(value)
		require.NoError(t, err)
		assert.Equal(t, CriticalValue(value), cv)
	}

	_, err := ParseCriticalValue("c1")
	assert.Error(t, err)
}

func TestCriticalValueEligibleForL3(t *testing.T) {
	assert.True(t, CriticalValueC1.EligibleForL3())
	assert.True(t, CriticalValueC2.EligibleForL3())
	assert.False(t, CriticalValueC3.EligibleForL3())
	assert.False(t, CriticalValueNone.EligibleForL3())
}

func TestParseRole(t *testing.T) {
	for _, value := range []string{"L1_AGENT", "L2_SUPPORT", "L3_SUPPORT"} {
		role, err := ParseRole(value)
		require.NoError(t, err)
		assert.Equal(t, Role(value), role)
	}

	_, err := ParseRole("ADMIN")
	assert.Error(t, err)
}

func TestEscalationLevelStatus(t *testing.T) {
	assert.Equal(t, TicketStatusEscalatedL2, EscalationL2.Status())
	assert.Equal(t, TicketStatusEscalatedL3, EscalationL3.Status())
}

func TestActionLabels(t *testing.T) {
	assert.Equal(t, "Escalated to L2", EscalationActionLabel(EscalationL2))
	assert.Equal(t, "Escalated to L3", EscalationActionLabel(EscalationL3))
	assert.Equal(t, "Changed status from NEW to ATTENDING",
		StatusChangeActionLabel(TicketStatusNew, TicketStatusAttending))
	assert.Equal(t, "Changed critical value from NONE to C1",
		CriticalValueChangeActionLabel(CriticalValueNone, CriticalValueC1))
	assert.Equal(t, "Resolved ticket", ActionLabelResolved)
	assert.Equal(t, "Updated ticket details", ActionLabelUpdated)
}
