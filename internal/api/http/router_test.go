package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apihttp "github.com/spec-kit/ticketdesk/internal/api/http"
	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := auth.HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)

	admins := repository.NewMemoryAdminRepository(
		domain.AdminIdentity{ID: "a1", Name: "Ada Admin", Email: "ada@parliament.test", PasswordHash: hash, Role: domain.AdminRoleAdmin, Status: domain.AdminStatusActive},
		domain.AdminIdentity{ID: "v1", Name: "Vic Viewer", Email: "vic@parliament.test", PasswordHash: hash, Role: domain.AdminRole("viewer"), Status: domain.AdminStatusActive},
	)
	cfg := config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: bcrypt.MinCost},
		Tickets: config.TicketsConfig{
			PageSize:             10,
			SLAPolicy:            "fixed",
			SLAFixedHours:        24,
			IncidentSequenceBase: 10000,
			ChangeSequenceBase:   10000,
			PersistenceTimeoutMS: 1000,
		},
	}
	metrics := observability.NewMetrics()
	tickets := service.NewTicketService(cfg.Tickets, service.TicketDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Sequences:  repository.NewMemorySequenceStore(),
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    metrics,
	})
	authService := service.NewAuthService(cfg, service.AuthDependencies{AdminRepo: admins})
	adminService := service.NewAdminService(cfg, service.AdminDependencies{AdminRepo: admins})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:         handlers.NewHealthHandler("ticketdesk", "test", nil, nil),
		Incidents:      handlers.NewTicketsHandler(domain.KindIncident, tickets),
		Changes:        handlers.NewTicketsHandler(domain.KindChangeRequest, tickets),
		Maintenance:    handlers.NewTicketsHandler(domain.KindMaintenanceTask, tickets),
		Admins:         handlers.NewAdminHandler(authService, adminService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), admins),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: authService.TokenManager()}
}

func (s *testServer) token(t *testing.T, id string, role domain.AdminRole) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(id, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func incidentPayload() map[string]any {
	return map[string]any{
		"shortDescription": "Database server down",
		"description":      "Primary members database refuses connections",
		"priority":         "1 - Critical",
		"category":         "Infrastructure",
		"subcategory":      "Database",
		"assignmentGroup":  "DB Team",
		"urgency":          "1 - Critical",
		"impact":           "1 - Critical",
		"caller":           "Jane Clerk",
		"callerEmail":      "jane@parliament.test",
	}
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data envelope: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/auth/admin/login", "", map[string]any{"email": "ada@parliament.test", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, status)
	authBody := data(t, body)["auth"].(map[string]any)
	token := authBody["token"].(string)
	require.NotEmpty(t, token)

	status, body = s.do(t, http.MethodGet, "/auth/admin/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a1", data(t, body)["id"])

	status, body = s.do(t, http.MethodPost, "/auth/admin/login", "", map[string]any{"email": "ada@parliament.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestIncidentLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "a1", domain.AdminRoleAdmin)

	status, body := s.do(t, http.MethodPost, "/api/v1/support/incidents", token, incidentPayload())
	require.Equal(t, http.StatusCreated, status)
	created := data(t, body)
	assert.Equal(t, "INC0010001", created["id"])
	assert.Equal(t, "New", created["state"])
	assert.Equal(t, false, created["slaBreached"])
	assert.NotEmpty(t, created["slaDue"])

	base := "/api/v1/support/incidents/INC0010001"
	status, _ = s.do(t, http.MethodPost, base+"/transition", token, map[string]any{"state": "In Progress"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, base+"/transition", token, map[string]any{"state": "Resolved", "notes": "Restarted primary"})
	require.Equal(t, http.StatusOK, status)
	resolved := data(t, body)
	assert.Equal(t, "Resolved", resolved["state"])
	assert.Equal(t, "Restarted primary", resolved["resolutionNotes"])
	assert.NotEmpty(t, resolved["resolvedAt"])

	status, body = s.do(t, http.MethodPost, base+"/transition", token, map[string]any{"state": "New"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(body))

	status, body = s.do(t, http.MethodPost, base+"/notes", token, map[string]any{"content": "Root cause: disk full", "isPublic": true})
	require.Equal(t, http.StatusCreated, status)
	notes := data(t, body)["workNotes"].([]any)
	require.Len(t, notes, 1)
	assert.Equal(t, "Ada Admin", notes[0].(map[string]any)["authorName"])

	status, body = s.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Resolved", data(t, body)["state"])
}

func TestCreateValidationReportsFields(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "a1", domain.AdminRoleAdmin)

	payload := incidentPayload()
	payload["shortDescription"] = ""
	payload["callerEmail"] = "not-an-email"
	status, body := s.do(t, http.MethodPost, "/api/v1/support/incidents", token, payload)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "shortDescription")
	assert.Contains(t, details, "callerEmail")
}

func TestAuthorizationGuards(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/support/incidents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	viewer := s.token(t, "v1", domain.AdminRole("viewer"))
	status, _ = s.do(t, http.MethodGet, "/api/v1/support/incidents", viewer, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, "/api/v1/support/incidents", viewer, incidentPayload())
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestListFiltersAndPaginates(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "a1", domain.AdminRoleAdmin)

	for _, priority := range []string{"1 - Critical", "2 - High", "3 - Medium"} {
		payload := incidentPayload()
		payload["priority"] = priority
		status, _ := s.do(t, http.MethodPost, "/api/v1/support/incidents", token, payload)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := s.do(t, http.MethodGet, "/api/v1/support/incidents?priority=all&assignedTo=all", token, nil)
	require.Equal(t, http.StatusOK, status)
	page := data(t, body)
	assert.Equal(t, float64(3), page["total"])
	assert.Len(t, page["items"], 3)

	status, body = s.do(t, http.MethodGet, "/api/v1/support/incidents?priority=2%20-%20High", token, nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, body)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "2 - High", items[0].(map[string]any)["priority"])

	status, body = s.do(t, http.MethodGet, "/api/v1/support/incidents?sortBy=priority&sortOrder=asc&page=99", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(t, body)["totalPages"])

	status, body = s.do(t, http.MethodGet, "/api/v1/support/incidents/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), data(t, body)["total"])
}

func TestMaintenanceCalendarAndApproval(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "a1", domain.AdminRoleAdmin)

	status, body := s.do(t, http.MethodPost, "/api/v1/support/maintenance-tasks", token, map[string]any{
		"shortDescription":   "Rotate DB backups",
		"description":        "Monthly backup rotation",
		"category":           "Database",
		"assignmentGroup":    "DB Team",
		"scheduledDate":      "2030-05-02",
		"scheduledStartTime": "10:00",
		"scheduledEndTime":   "11:30",
	})
	require.Equal(t, http.StatusCreated, status)
	task := data(t, body)
	assert.Equal(t, "Scheduled", task["status"])
	id := task["id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/v1/support/maintenance-tasks/calendar?startDate=2030-05-01&endDate=2030-05-31", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodGet, "/api/v1/support/maintenance-tasks/calendar?startDate=May", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, http.MethodPut, "/api/v1/support/maintenance-tasks/"+id+"/approval", token, map[string]any{"approvalStatus": "Approved"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Approved", data(t, body)["approvalStatus"])
	assert.Equal(t, "a1", data(t, body)["approvedBy"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/support/maintenance-tasks/MT9999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthReportsDisabledBackends(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}
