package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/workflow"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// CreateIncident validates and stores a new incident in state New.
func (s *TicketService) CreateIncident(ctx context.Context, actor *domain.AdminIdentity, in IncidentInput) (*domain.Ticket, error) {
	return s.create(ctx, actor, domain.KindIncident, func(f fieldErrors, now time.Time) *domain.Ticket {
		t := newTicket(f, domain.KindIncident, in.TicketBaseInput, now)
		t.Incident = &domain.IncidentDetails{
			Urgency:           f.priorityField("urgency", in.Urgency),
			Impact:            f.priorityField("impact", in.Impact),
			Caller:            strings.TrimSpace(in.Caller),
			CallerEmail:       strings.TrimSpace(in.CallerEmail),
			BusinessService:   strings.TrimSpace(in.BusinessService),
			ConfigurationItem: strings.TrimSpace(in.ConfigurationItem),
			SLADue:            s.sla.Due(now, t.Priority),
		}
		validateIncident(f, t.Incident)
		return t
	})
}

// CreateChangeRequest validates and stores a new change request in state New
// with approval Pending.
func (s *TicketService) CreateChangeRequest(ctx context.Context, actor *domain.AdminIdentity, in ChangeRequestInput) (*domain.Ticket, error) {
	return s.create(ctx, actor, domain.KindChangeRequest, func(f fieldErrors, now time.Time) *domain.Ticket {
		t := newTicket(f, domain.KindChangeRequest, in.TicketBaseInput, now)
		d := &domain.ChangeDetails{
			RequestedBy:           strings.TrimSpace(in.RequestedBy),
			RequestedByEmail:      strings.TrimSpace(in.RequestedByEmail),
			EstimatedDuration:     strings.TrimSpace(in.EstimatedDuration),
			BusinessJustification: strings.TrimSpace(in.BusinessJustification),
			ImplementationPlan:    strings.TrimSpace(in.ImplementationPlan),
			RollbackPlan:          strings.TrimSpace(in.RollbackPlan),
			TestingPlan:           strings.TrimSpace(in.TestingPlan),
			CommunicationPlan:     strings.TrimSpace(in.CommunicationPlan),
			RiskAssessment:        parseEnum(f, "riskAssessment", in.RiskAssessment, domain.RiskLow, riskAssessments, "Invalid risk assessment"),
			ApprovalStatus:        domain.ApprovalPending,
		}
		if in.ScheduledStart != nil {
			d.ScheduledStart = *in.ScheduledStart
		}
		if in.ScheduledEnd != nil {
			d.ScheduledEnd = *in.ScheduledEnd
		}
		t.Change = d
		validateChange(f, d)
		return t
	})
}

// CreateMaintenanceTask validates and stores a new maintenance task in state
// Scheduled with approval Pending.
func (s *TicketService) CreateMaintenanceTask(ctx context.Context, actor *domain.AdminIdentity, in MaintenanceTaskInput) (*domain.Ticket, error) {
	return s.create(ctx, actor, domain.KindMaintenanceTask, func(f fieldErrors, now time.Time) *domain.Ticket {
		t := newTicket(f, domain.KindMaintenanceTask, in.TicketBaseInput, now)
		d := &domain.MaintenanceDetails{
			Type:               parseEnum(f, "type", in.Type, domain.MaintenanceScheduled, maintenanceTypes, "Invalid maintenance type"),
			ScheduledDate:      f.parseScheduledDate(in.ScheduledDate),
			ScheduledStartTime: strings.TrimSpace(in.ScheduledStartTime),
			ScheduledEndTime:   strings.TrimSpace(in.ScheduledEndTime),
			EstimatedDuration:  strings.TrimSpace(in.EstimatedDuration),
			IsRecurring:        in.IsRecurring,
			ImpactLevel:        parseEnum(f, "impactLevel", in.ImpactLevel, domain.LevelMedium, levels, "Invalid impact level"),
			RiskLevel:          parseEnum(f, "riskLevel", in.RiskLevel, domain.LevelMedium, levels, "Invalid risk level"),
			Dependencies:       cleanList(in.Dependencies),
			ApprovalStatus:     domain.ApprovalPending,
		}
		if in.IsRecurring {
			d.RecurrencePattern = parseEnum(f, "recurrencePattern", in.RecurrencePattern, domain.RecurMonthly, recurrencePatterns, "Recurrence pattern is required")
			d.RecurrenceInterval = in.RecurrenceInterval
			if d.RecurrenceInterval == 0 {
				d.RecurrenceInterval = 1
			}
		}
		validateMaintenance(f, d)
		d.NextScheduledDate = nextOccurrence(d)
		t.Maintenance = d
		return t
	})
}

// create runs authorize, build, validate, allocate id, insert, publish.
// Ids are allocated only after validation so rejected input burns no number.
func (s *TicketService) create(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, build func(f fieldErrors, now time.Time) *domain.Ticket) (ticket *domain.Ticket, err error) {
	defer func() { s.record(kind, "create", err) }()
	if err := authorize(actor); err != nil {
		return nil, err
	}

	now := s.now()
	f := fieldErrors{}
	ticket = build(f, now)
	s.validateBase(f, kind, ticket)
	if err := f.err(); err != nil {
		return nil, err
	}

	pctx, cancel := s.persistCtx(ctx)
	defer cancel()

	id, err := s.ids.Next(pctx, kind)
	if err != nil {
		return nil, storeError(kind, "", err)
	}
	ticket.ID = id
	if err := s.tickets.Insert(pctx, ticket); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("ticket id already allocated", map[string]any{"id": id})
		}
		return nil, storeError(kind, id, err)
	}

	s.publishEvent(ctx, actor, ticket, events.EventTicketCreated, events.TicketCreatedPayload{
		Priority:         ticket.Priority,
		State:            ticket.State,
		ShortDescription: ticket.ShortDescription,
		AssignmentGroup:  ticket.AssignmentGroup,
	})
	return ticket, nil
}

func newTicket(f fieldErrors, kind domain.Kind, in TicketBaseInput, now time.Time) *domain.Ticket {
	t := &domain.Ticket{
		Kind:             kind,
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Description:      strings.TrimSpace(in.Description),
		Priority:         f.priorityField("priority", in.Priority),
		Category:         strings.TrimSpace(in.Category),
		Subcategory:      strings.TrimSpace(in.Subcategory),
		State:            workflow.InitialState(kind),
		AssignmentGroup:  strings.TrimSpace(in.AssignmentGroup),
		CreatedAt:        now,
		UpdatedAt:        now,
		WorkNotes:        []domain.WorkNote{},
	}
	if in.AssignedTo != nil {
		if v := strings.TrimSpace(*in.AssignedTo); v != "" {
			t.AssignedTo = &v
		}
	}
	return t
}

var (
	riskAssessments    = []domain.RiskAssessment{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical}
	levels             = []domain.Level{domain.LevelLow, domain.LevelMedium, domain.LevelHigh}
	recurrencePatterns = []domain.RecurrencePattern{domain.RecurDaily, domain.RecurWeekly, domain.RecurMonthly, domain.RecurQuarterly, domain.RecurYearly}
	maintenanceTypes   = []domain.MaintenanceType{
		domain.MaintenanceScheduled, domain.MaintenanceEmergency, domain.MaintenancePreventive,
		domain.MaintenanceCorrective, domain.MaintenanceUpgrade, domain.MaintenanceSecurity,
	}
)

// parseEnum matches raw case-insensitively against allowed values. Blank input
// takes the default; anything else unknown is a field error.
func parseEnum[T ~string](f fieldErrors, field, raw string, def T, allowed []T, msg string) T {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	for _, v := range allowed {
		if strings.EqualFold(raw, string(v)) {
			return v
		}
	}
	f.add(field, msg)
	return def
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
