package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketdesk/internal/api/dto"
	"github.com/spec-kit/ticketdesk/internal/api/query"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/service"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// TicketsHandler serves one ticket kind.
type TicketsHandler struct {
	kind    domain.Kind
	tickets *service.TicketService
	now     func() time.Time
}

// NewTicketsHandler constructs a handler bound to kind.
func NewTicketsHandler(kind domain.Kind, ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{kind: kind, tickets: ticketService, now: time.Now}
}

// List GET /<kind>.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	params := query.Normalize(c.Queries(), query.TicketListRules)
	q, err := listQuery(params)
	if err != nil {
		return err
	}
	result, err := h.tickets.List(c.UserContext(), h.kind, q)
	if err != nil {
		return err
	}
	items := make([]any, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, h.render(t))
	}
	return c.JSON(fiber.Map{"data": dto.ListResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
		Total:      result.Total,
	}})
}

// Stats GET /<kind>/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext(), h.kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Get GET /<kind>/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), h.kind, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(ticket)})
}

// Create POST /<kind>.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor := auth.AdminFromContext(c)
	var (
		ticket *domain.Ticket
		err    error
	)
	switch h.kind {
	case domain.KindIncident:
		var req dto.CreateIncidentRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidPayload()
		}
		ticket, err = h.tickets.CreateIncident(c.UserContext(), actor, service.IncidentInput{
			TicketBaseInput:   baseInput(req.TicketBaseRequest),
			Urgency:           req.Urgency,
			Impact:            req.Impact,
			Caller:            req.Caller,
			CallerEmail:       req.CallerEmail,
			BusinessService:   req.BusinessService,
			ConfigurationItem: req.ConfigurationItem,
		})
	case domain.KindChangeRequest:
		var req dto.CreateChangeRequestRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidPayload()
		}
		ticket, err = h.tickets.CreateChangeRequest(c.UserContext(), actor, service.ChangeRequestInput{
			TicketBaseInput:       baseInput(req.TicketBaseRequest),
			RequestedBy:           req.RequestedBy,
			RequestedByEmail:      req.RequestedByEmail,
			ScheduledStart:        req.ScheduledStart,
			ScheduledEnd:          req.ScheduledEnd,
			EstimatedDuration:     req.EstimatedDuration,
			BusinessJustification: req.BusinessJustification,
			ImplementationPlan:    req.ImplementationPlan,
			RollbackPlan:          req.RollbackPlan,
			TestingPlan:           req.TestingPlan,
			CommunicationPlan:     req.CommunicationPlan,
			RiskAssessment:        req.RiskAssessment,
		})
	case domain.KindMaintenanceTask:
		var req dto.CreateMaintenanceTaskRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidPayload()
		}
		ticket, err = h.tickets.CreateMaintenanceTask(c.UserContext(), actor, service.MaintenanceTaskInput{
			TicketBaseInput:    baseInput(req.TicketBaseRequest),
			Type:               req.Type,
			ScheduledDate:      req.ScheduledDate,
			ScheduledStartTime: req.ScheduledStartTime,
			ScheduledEndTime:   req.ScheduledEndTime,
			EstimatedDuration:  req.EstimatedDuration,
			IsRecurring:        req.IsRecurring,
			RecurrencePattern:  req.RecurrencePattern,
			RecurrenceInterval: req.RecurrenceInterval,
			ImpactLevel:        req.ImpactLevel,
			RiskLevel:          req.RiskLevel,
			Dependencies:       req.Dependencies,
		})
	default:
		return apperrors.NewNotFound(string(h.kind), nil)
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.render(ticket)})
}

// Update PATCH /<kind>/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.Update(c.UserContext(), auth.AdminFromContext(c), h.kind, c.Params("id"), service.UpdateInput{
		ShortDescription:      req.ShortDescription,
		Description:           req.Description,
		Priority:              req.Priority,
		Category:              req.Category,
		Subcategory:           req.Subcategory,
		AssignmentGroup:       req.AssignmentGroup,
		Urgency:               req.Urgency,
		Impact:                req.Impact,
		Caller:                req.Caller,
		CallerEmail:           req.CallerEmail,
		BusinessService:       req.BusinessService,
		ConfigurationItem:     req.ConfigurationItem,
		IsEscalated:           req.IsEscalated,
		RequestedBy:           req.RequestedBy,
		RequestedByEmail:      req.RequestedByEmail,
		ScheduledStart:        req.ScheduledStart,
		ScheduledEnd:          req.ScheduledEnd,
		BusinessJustification: req.BusinessJustification,
		ImplementationPlan:    req.ImplementationPlan,
		RollbackPlan:          req.RollbackPlan,
		TestingPlan:           req.TestingPlan,
		CommunicationPlan:     req.CommunicationPlan,
		RiskAssessment:        req.RiskAssessment,
		MaintenanceType:       req.Type,
		ScheduledDate:         req.ScheduledDate,
		ScheduledStartTime:    req.ScheduledStartTime,
		ScheduledEndTime:      req.ScheduledEndTime,
		EstimatedDuration:     req.EstimatedDuration,
		IsRecurring:           req.IsRecurring,
		RecurrencePattern:     req.RecurrencePattern,
		RecurrenceInterval:    req.RecurrenceInterval,
		ImpactLevel:           req.ImpactLevel,
		RiskLevel:             req.RiskLevel,
		Dependencies:          req.Dependencies,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(ticket)})
}

// Transition POST /<kind>/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	state := req.State
	if state == "" {
		state = req.Status
	}
	ticket, err := h.tickets.Transition(c.UserContext(), auth.AdminFromContext(c), h.kind, c.Params("id"), service.TransitionInput{
		State: state,
		Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(ticket)})
}

// Assign PUT /<kind>/:id/assignee.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.Assign(c.UserContext(), auth.AdminFromContext(c), h.kind, c.Params("id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(ticket)})
}

// AddWorkNote POST /<kind>/:id/notes.
func (h *TicketsHandler) AddWorkNote(c *fiber.Ctx) error {
	var req dto.WorkNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.AddWorkNote(c.UserContext(), auth.AdminFromContext(c), h.kind, c.Params("id"), service.WorkNoteInput{
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.render(ticket)})
}

// SetApproval PUT /<kind>/:id/approval.
func (h *TicketsHandler) SetApproval(c *fiber.Ctx) error {
	var req dto.ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.SetApproval(c.UserContext(), auth.AdminFromContext(c), h.kind, c.Params("id"), service.ApprovalInput{
		Status:          req.ApprovalStatus,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.render(ticket)})
}

// Calendar GET /maintenance-tasks/calendar?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD.
func (h *TicketsHandler) Calendar(c *fiber.Ctx) error {
	from, errFrom := time.ParseInLocation(domain.DateLayout, c.Query("startDate"), time.UTC)
	to, errTo := time.ParseInLocation(domain.DateLayout, c.Query("endDate"), time.UTC)
	if errFrom != nil || errTo != nil {
		return apperrors.NewFieldValidation(map[string]string{"startDate": "startDate and endDate must be YYYY-MM-DD"})
	}
	items, err := h.tickets.Calendar(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	out := make([]any, 0, len(items))
	for _, t := range items {
		out = append(out, h.render(t))
	}
	return c.JSON(fiber.Map{"data": out})
}

func (h *TicketsHandler) render(t *domain.Ticket) any {
	base := dto.TicketBase{
		ID:               t.ID,
		Kind:             t.Kind,
		ShortDescription: t.ShortDescription,
		Description:      t.Description,
		Priority:         t.Priority,
		Category:         t.Category,
		Subcategory:      t.Subcategory,
		State:            t.State,
		AssignedTo:       t.AssignedTo,
		AssignmentGroup:  t.AssignmentGroup,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		WorkNotes:        t.WorkNotes,
	}
	switch {
	case t.Incident != nil:
		return dto.IncidentResponse{TicketBase: base, IncidentDetails: t.Incident, SLABreached: t.Incident.SLABreached(t.State, h.now())}
	case t.Change != nil:
		return dto.ChangeRequestResponse{TicketBase: base, ChangeDetails: t.Change}
	case t.Maintenance != nil:
		return dto.MaintenanceTaskResponse{TicketBase: base, MaintenanceDetails: t.Maintenance, Status: t.State}
	default:
		return base
	}
}

func baseInput(req dto.TicketBaseRequest) service.TicketBaseInput {
	return service.TicketBaseInput{
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Priority:         req.Priority,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		AssignedTo:       req.AssignedTo,
		AssignmentGroup:  req.AssignmentGroup,
	}
}

// listQuery maps normalized parameters onto a service query. A missing
// assignedTo means every assignee.
func listQuery(params map[string]string) (service.ListQuery, error) {
	page, _ := strconv.Atoi(params["page"])
	q := service.ListQuery{
		Page: page,
		Sort: service.ListSort{Field: params["sortBy"], Desc: params["sortOrder"] != "asc"},
		Filter: service.ListFilter{
			Search:          params["search"],
			State:           params["state"],
			Priority:        params["priority"],
			AssignedTo:      "all",
			Category:        params["category"],
			MaintenanceType: params["type"],
		},
	}
	if q.Filter.State == "" {
		q.Filter.State = params["status"]
	}
	if v, ok := params["assignedTo"]; ok {
		q.Filter.AssignedTo = v
	}
	bad := map[string]string{}
	if v := params["from"]; v != "" {
		from, err := time.ParseInLocation(domain.DateLayout, v, time.UTC)
		if err != nil {
			bad["from"] = "from must be YYYY-MM-DD"
		} else {
			q.Filter.ScheduledFrom = &from
		}
	}
	if v := params["to"]; v != "" {
		to, err := time.ParseInLocation(domain.DateLayout, v, time.UTC)
		if err != nil {
			bad["to"] = "to must be YYYY-MM-DD"
		} else {
			q.Filter.ScheduledTo = &to
		}
	}
	if len(bad) > 0 {
		return service.ListQuery{}, apperrors.NewFieldValidation(bad)
	}
	return q, nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}
