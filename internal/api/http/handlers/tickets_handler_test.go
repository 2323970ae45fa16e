package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type testEnv struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	users   *repository.MemoryUserRepository
	tickets *repository.MemoryTicketRepository
	actions *repository.MemoryTicketActionRepository
	l1      string
	l2      string
	l3      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tickets := repository.NewMemoryTicketRepository()
	actions := repository.NewMemoryTicketActionRepository()
	users := repository.NewMemoryUserRepository()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		ActionRepo: actions,
		UserRepo:   users,
		Dispatcher: events.NewInMemoryDispatcher(),
	})

	tokens := auth.NewTokenManager("test-secret", 60)
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})

	env := &testEnv{
		app:     app,
		tokens:  tokens,
		users:   users,
		tickets: tickets,
		actions: actions,
	}
	env.l1 = env.seedUser(t, "l1@helpdesk.local", domain.RoleL1Agent)
	env.l2 = env.seedUser(t, "l2@helpdesk.local", domain.RoleL2Support)
	env.l3 = env.seedUser(t, "l3@helpdesk.local", domain.RoleL3Support)
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, role domain.Role) string {
	t.Helper()
	user := &domain.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     string(role),
		PasswordHash: "irrelevant",
		Role:         role,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user.ID
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	user, err := e.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := e.tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed
}

func dataOf(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %v", body)
	return data
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	message, _ := errObj["message"].(string)
	return message
}

func (e *testEnv) createTicket(t *testing.T) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/tickets", e.l1, fiber.Map{
		"title":       "Printer broken",
		"description": "Office printer jams on every job",
		"category":    "HARDWARE",
		"priority":    "MEDIUM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, resp)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestTicketsRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleGuardsReturnGenericForbidden(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	cases := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
	}{
		{"l2 cannot create", http.MethodPost, "/tickets", env.l2,
			fiber.Map{"title": "t", "description": "d", "category": "OTHER", "priority": "LOW"}},
		{"l1 cannot escalate to l3", http.MethodPut, "/tickets/" + ticketID + "/escalate-l3", env.l1,
			fiber.Map{"notes": "please"}},
		{"l3 cannot escalate to l3", http.MethodPut, "/tickets/" + ticketID + "/escalate-l3", env.l3,
			fiber.Map{"notes": "please"}},
		{"l1 cannot set critical value", http.MethodPut, "/tickets/" + ticketID + "/critical-value", env.l1,
			fiber.Map{"critical_value": "C1"}},
		{"l2 cannot resolve", http.MethodPut, "/tickets/" + ticketID + "/resolve", env.l2,
			fiber.Map{"resolution_notes": "done"}},
		{"l1 cannot add actions", http.MethodPost, "/tickets/" + ticketID + "/actions", env.l1,
			fiber.Map{"action": "tried something"}},
		{"l1 cannot list escalated", http.MethodGet, "/tickets/escalated", env.l1, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.request(t, tc.method, tc.path, tc.actor, tc.body)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "not authorized", errorMessage(t, resp))
		})
	}
}

func TestCreateTicketDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/tickets", env.l1, fiber.Map{
		"title":       "VPN down",
		"description": "Cannot reach internal network",
		"category":    "NETWORK",
		"priority":    "HIGH",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, resp)
	assert.Equal(t, "NEW", data["status"])
	assert.Equal(t, "NONE", data["critical_value"])
	assignedTo, _ := data["assigned_to"].(map[string]any)
	require.NotNil(t, assignedTo)
	assert.Equal(t, env.l1, assignedTo["id"])

	bad := env.request(t, http.MethodPost, "/tickets", env.l1, fiber.Map{
		"title":       "Bad category",
		"description": "unknown literal",
		"category":    "GADGETS",
		"priority":    "HIGH",
	})
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	missing := env.request(t, http.MethodPost, "/tickets", env.l1, fiber.Map{
		"title":       "",
		"description": "no title",
		"category":    "OTHER",
		"priority":    "LOW",
	})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestGetTicketNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/tickets/no-such-id", env.l1, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Ticket not found", errorMessage(t, resp))
}

func TestUpdateStatusRestrictedForL1(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	ok := env.request(t, http.MethodPut, "/tickets/"+ticketID+"/status", env.l1,
		fiber.Map{"status": "ATTENDING"})
	require.Equal(t, http.StatusOK, ok.StatusCode)
	assert.Equal(t, "ATTENDING", dataOf(t, ok)["status"])

	denied := env.request(t, http.MethodPut, "/tickets/"+ticketID+"/status", env.l1,
		fiber.Map{"status": "RESOLVED"})
	assert.Equal(t, http.StatusBadRequest, denied.StatusCode)
	assert.Equal(t, "status must be one of NEW, ATTENDING, COMPLETED", errorMessage(t, denied))
}

func TestEscalateL2RequiresNotes(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	resp := env.request(t, http.MethodPut, "/tickets/"+ticketID+"/escalate-l2", env.l1,
		fiber.Map{"notes": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEscalateL3RejectsIneligibleCriticalValue(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	escalated := env.request(t, http.MethodPut, "/tickets/"+ticketID+"/escalate-l2", env.l1,
		fiber.Map{"notes": "beyond first line"})
	require.Equal(t, http.StatusOK, escalated.StatusCode)

	denied := env.request(t, http.MethodPut, "/tickets/"+ticketID+"/escalate-l3", env.l2,
		fiber.Map{"notes": "push up", "critical_value": "C3"})
	assert.Equal(t, http.StatusBadRequest, denied.StatusCode)
	assert.Equal(t, "critical value must be C1 or C2 for L3 escalation", errorMessage(t, denied))

	// The ticket is untouched by the rejected escalation.
	current := env.request(t, http.MethodGet, "/tickets/"+ticketID, env.l2, nil)
	require.Equal(t, http.StatusOK, current.StatusCode)
	assert.Equal(t, "ESCALATED_L2", dataOf(t, current)["status"])
}

func TestFullEscalationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	steps := []struct {
		method string
		path   string
		actor  string
		body   any
		status string
	}{
		{http.MethodPut, "/status", env.l1, fiber.Map{"status": "ATTENDING"}, "ATTENDING"},
		{http.MethodPut, "/escalate-l2", env.l1, fiber.Map{"notes": "needs L2 attention"}, "ESCALATED_L2"},
		{http.MethodPut, "/critical-value", env.l2, fiber.Map{"critical_value": "C1"}, "ESCALATED_L2"},
		{http.MethodPut, "/escalate-l3", env.l2, fiber.Map{"notes": "major incident"}, "ESCALATED_L3"},
		{http.MethodPut, "/resolve", env.l3, fiber.Map{"resolution_notes": "firmware patched"}, "RESOLVED"},
	}

	for _, step := range steps {
		resp := env.request(t, step.method, "/tickets/"+ticketID+step.path, step.actor, step.body)
		require.Equal(t, http.StatusOK, resp.StatusCode, "step %s", step.path)
		assert.Equal(t, step.status, dataOf(t, resp)["status"], "step %s", step.path)
	}

	final := env.request(t, http.MethodGet, "/tickets/"+ticketID, env.l3, nil)
	require.Equal(t, http.StatusOK, final.StatusCode)
	data := dataOf(t, final)
	assert.Equal(t, "RESOLVED", data["status"])
	assert.Equal(t, "C1", data["critical_value"])

	actions, _ := data["actions"].([]any)
	labels := make([]string, 0, len(actions))
	for _, raw := range actions {
		action, _ := raw.(map[string]any)
		label, _ := action["action"].(string)
		labels = append(labels, label)
	}
	assert.ElementsMatch(t, []string{
		"Escalated to L2",
		"Changed critical value from NONE to C1",
		"Escalated to L3",
		"Resolved ticket",
	}, labels, "the L1 status change leaves no audit record")
}

func TestAddActionReassignsWithoutExtraAudit(t *testing.T) {
	env := newTestEnv(t)
	ticketID := env.createTicket(t)

	resp := env.request(t, http.MethodPost, "/tickets/"+ticketID+"/actions", env.l2,
		fiber.Map{"action": "Swapped toner", "new_status": "COMPLETED"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, resp)
	assert.Equal(t, "Swapped toner", data["action"])

	current := env.request(t, http.MethodGet, "/tickets/"+ticketID, env.l2, nil)
	require.Equal(t, http.StatusOK, current.StatusCode)
	ticket := dataOf(t, current)
	assert.Equal(t, "COMPLETED", ticket["status"])
	assignedTo, _ := ticket["assigned_to"].(map[string]any)
	require.NotNil(t, assignedTo)
	assert.Equal(t, env.l2, assignedTo["id"])

	actions, _ := ticket["actions"].([]any)
	assert.Len(t, actions, 1, "the ownership follow-up must not write a second record")
}

func TestListTicketsScopedForL1(t *testing.T) {
	env := newTestEnv(t)
	env.createTicket(t)

	other := &domain.Ticket{
		Title:        "Someone else's ticket",
		Description:  "unrelated",
		Category:     domain.TicketCategoryOther,
		Priority:     domain.TicketPriorityLow,
		Status:       domain.TicketStatusNew,
		CreatedByID:  env.l2,
		AssignedToID: env.l2,
	}
	require.NoError(t, env.tickets.Create(context.Background(), other))

	l1List := env.request(t, http.MethodGet, "/tickets", env.l1, nil)
	require.Equal(t, http.StatusOK, l1List.StatusCode)
	l1Body := decodeBody(t, l1List)
	l1Data, _ := l1Body["data"].([]any)
	assert.Len(t, l1Data, 1)

	l2List := env.request(t, http.MethodGet, "/tickets", env.l2, nil)
	require.Equal(t, http.StatusOK, l2List.StatusCode)
	l2Body := decodeBody(t, l2List)
	l2Data, _ := l2Body["data"].([]any)
	assert.Len(t, l2Data, 2)
	assert.Equal(t, float64(2), l2Body["total"])
}

func TestListEscalatedScopedByRole(t *testing.T) {
	env := newTestEnv(t)

	seed := func(status domain.TicketStatus, cv domain.CriticalValue) {
		ticket := &domain.Ticket{
			Title:         fmt.Sprintf("%s %s", status, cv),
			Description:   "queue fixture",
			Category:      domain.TicketCategorySoftware,
			Priority:      domain.TicketPriorityHigh,
			Status:        status,
			CriticalValue: cv,
			CreatedByID:   env.l1,
			AssignedToID:  env.l1,
		}
		require.NoError(t, env.tickets.Create(context.Background(), ticket))
	}
	seed(domain.TicketStatusEscalatedL2, domain.CriticalValueNone)
	seed(domain.TicketStatusEscalatedL3, domain.CriticalValueC1)
	seed(domain.TicketStatusEscalatedL3, domain.CriticalValueC3)

	l2Resp := env.request(t, http.MethodGet, "/tickets/escalated", env.l2, nil)
	require.Equal(t, http.StatusOK, l2Resp.StatusCode)
	l2Body := decodeBody(t, l2Resp)
	l2Data, _ := l2Body["data"].([]any)
	assert.Len(t, l2Data, 1)

	l3Resp := env.request(t, http.MethodGet, "/tickets/escalated", env.l3, nil)
	require.Equal(t, http.StatusOK, l3Resp.StatusCode)
	l3Body := decodeBody(t, l3Resp)
	l3Data, _ := l3Body["data"].([]any)
	require.Len(t, l3Data, 1, "C3 tickets stay invisible in the L3 queue")
	first, _ := l3Data[0].(map[string]any)
	assert.Equal(t, "C1", first["critical_value"])
}
