package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestWhereClauseEmptyFilterMatchesEverything(t *testing.T) {
	where, args := TicketFilter{}.whereClause()
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestWhereClauseSingleFields(t *testing.T) {
	status := domain.TicketStatusEscalatedL2
	priority := domain.TicketPriorityHigh
	category := domain.TicketCategoryNetwork
	cv := domain.CriticalValueC1
	assignee := "user-1"
	creator := "user-2"

	cases := []struct {
		name     string
		filter   TicketFilter
		expected string
		args     []any
	}{
		{"status", TicketFilter{Status: &status}, "1=1 AND status=$1", []any{status}},
		{"priority", TicketFilter{Priority: &priority}, "1=1 AND priority=$1", []any{priority}},
		{"category", TicketFilter{Category: &category}, "1=1 AND category=$1", []any{category}},
		{"critical_value", TicketFilter{CriticalValue: &cv}, "1=1 AND critical_value=$1", []any{cv}},
		{"assigned_to", TicketFilter{AssignedToID: &assignee}, "1=1 AND assigned_to_id=$1", []any{assignee}},
		{"created_by", TicketFilter{CreatedByID: &creator}, "1=1 AND created_by_id=$1", []any{creator}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.filter.whereClause()
			assert.Equal(t, tc.expected, where)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestWhereClauseCriticalValueSet(t *testing.T) {
	filter := TicketFilter{
		CriticalValues: []domain.CriticalValue{domain.CriticalValueC1, domain.CriticalValueC2},
	}
	where, args := filter.whereClause()
	assert.Equal(t, "1=1 AND critical_value IN ($1,$2)", where)
	assert.Equal(t, []any{domain.CriticalValueC1, domain.CriticalValueC2}, args)
}

func TestWhereClauseSearchTerm(t *testing.T) {
	search := "  Printer  "
	where, args := TicketFilter{SearchTerm: &search}.whereClause()
	assert.Equal(t, "1=1 AND (LOWER(title) LIKE $1 OR LOWER(description) LIKE $1)", where)
	require.Len(t, args, 1)
	assert.Equal(t, "%printer%", args[0])
}

func TestWhereClauseBlankSearchTermIgnored(t *testing.T) {
	search := "   "
	where, args := TicketFilter{SearchTerm: &search}.whereClause()
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestWhereClauseCombinedPlaceholderNumbering(t *testing.T) {
	status := domain.TicketStatusEscalatedL3
	assignee := "user-9"
	search := "vpn"
	filter := TicketFilter{
		Status:         &status,
		CriticalValues: []domain.CriticalValue{domain.CriticalValueC1, domain.CriticalValueC2},
		AssignedToID:   &assignee,
		SearchTerm:     &search,
	}

	where, args := filter.whereClause()
	assert.Equal(t,
		"1=1 AND status=$1 AND critical_value IN ($2,$3) AND assigned_to_id=$4 AND (LOWER(title) LIKE $5 OR LOWER(description) LIKE $5)",
		where)
	assert.Equal(t, []any{
		status,
		domain.CriticalValueC1,
		domain.CriticalValueC2,
		assignee,
		"%vpn%",
	}, args)
}
