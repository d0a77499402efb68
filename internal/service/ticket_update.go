package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// Update applies a partial edit and revalidates the merged ticket. State,
// assignee, approval and work notes have dedicated operations and are not
// reachable from here.
func (s *TicketService) Update(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id string, in UpdateInput) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, kind, id, "update", func(t *domain.Ticket, _ time.Time) (events.EventType, any, error) {
		f := fieldErrors{}
		u := &updater{f: f}

		u.text("shortDescription", in.ShortDescription, &t.ShortDescription)
		u.text("description", in.Description, &t.Description)
		u.text("category", in.Category, &t.Category)
		u.text("subcategory", in.Subcategory, &t.Subcategory)
		u.text("assignmentGroup", in.AssignmentGroup, &t.AssignmentGroup)
		priorityChanged := false
		if in.Priority != nil {
			p := f.priorityField("priority", *in.Priority)
			priorityChanged = p != t.Priority
			t.Priority = p
			u.touch("priority")
		}

		switch kind {
		case domain.KindIncident:
			u.rejectChange(in)
			u.rejectMaintenance(in)
			u.notApplicable("estimatedDuration", in.EstimatedDuration != nil)
			s.updateIncident(u, t, in, priorityChanged)
			validateIncident(f, t.Incident)
		case domain.KindChangeRequest:
			u.rejectIncident(in)
			u.rejectMaintenance(in)
			updateChange(u, t.Change, in)
			validateChange(f, t.Change)
		case domain.KindMaintenanceTask:
			u.rejectIncident(in)
			u.rejectChange(in)
			updateMaintenance(u, t.Maintenance, in)
			validateMaintenance(f, t.Maintenance)
			t.Maintenance.NextScheduledDate = nextOccurrence(t.Maintenance)
		}

		s.validateBase(f, kind, t)
		if err := f.err(); err != nil {
			return "", nil, err
		}
		if len(u.fields) == 0 {
			return "", nil, apperrors.NewValidationError("no fields to update", nil)
		}
		return events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: u.fields}, nil
	})
}

func (s *TicketService) updateIncident(u *updater, t *domain.Ticket, in UpdateInput, priorityChanged bool) {
	d := t.Incident
	if in.Urgency != nil {
		d.Urgency = u.f.priorityField("urgency", *in.Urgency)
		u.touch("urgency")
	}
	if in.Impact != nil {
		d.Impact = u.f.priorityField("impact", *in.Impact)
		u.touch("impact")
	}
	u.text("caller", in.Caller, &d.Caller)
	u.text("callerEmail", in.CallerEmail, &d.CallerEmail)
	u.text("businessService", in.BusinessService, &d.BusinessService)
	u.text("configurationItem", in.ConfigurationItem, &d.ConfigurationItem)
	if in.IsEscalated != nil {
		d.IsEscalated = *in.IsEscalated
		u.touch("isEscalated")
	}
	if priorityChanged && s.sla.PriorityBound() {
		d.SLADue = s.sla.Due(t.CreatedAt, t.Priority)
	}
}

func updateChange(u *updater, d *domain.ChangeDetails, in UpdateInput) {
	u.text("requestedBy", in.RequestedBy, &d.RequestedBy)
	u.text("requestedByEmail", in.RequestedByEmail, &d.RequestedByEmail)
	if in.ScheduledStart != nil {
		d.ScheduledStart = *in.ScheduledStart
		u.touch("scheduledStart")
	}
	if in.ScheduledEnd != nil {
		d.ScheduledEnd = *in.ScheduledEnd
		u.touch("scheduledEnd")
	}
	u.text("estimatedDuration", in.EstimatedDuration, &d.EstimatedDuration)
	u.text("businessJustification", in.BusinessJustification, &d.BusinessJustification)
	u.text("implementationPlan", in.ImplementationPlan, &d.ImplementationPlan)
	u.text("rollbackPlan", in.RollbackPlan, &d.RollbackPlan)
	u.text("testingPlan", in.TestingPlan, &d.TestingPlan)
	u.text("communicationPlan", in.CommunicationPlan, &d.CommunicationPlan)
	if in.RiskAssessment != nil {
		d.RiskAssessment = parseEnum(u.f, "riskAssessment", *in.RiskAssessment, d.RiskAssessment, riskAssessments, "Invalid risk assessment")
		u.touch("riskAssessment")
	}
}

func updateMaintenance(u *updater, d *domain.MaintenanceDetails, in UpdateInput) {
	if in.MaintenanceType != nil {
		d.Type = parseEnum(u.f, "type", *in.MaintenanceType, d.Type, maintenanceTypes, "Invalid maintenance type")
		u.touch("type")
	}
	if in.ScheduledDate != nil {
		d.ScheduledDate = u.f.parseScheduledDate(*in.ScheduledDate)
		u.touch("scheduledDate")
	}
	u.text("scheduledStartTime", in.ScheduledStartTime, &d.ScheduledStartTime)
	u.text("scheduledEndTime", in.ScheduledEndTime, &d.ScheduledEndTime)
	u.text("estimatedDuration", in.EstimatedDuration, &d.EstimatedDuration)
	if in.IsRecurring != nil {
		d.IsRecurring = *in.IsRecurring
		u.touch("isRecurring")
		if !d.IsRecurring {
			d.RecurrencePattern, d.RecurrenceInterval = "", 0
		} else if d.RecurrenceInterval == 0 {
			d.RecurrenceInterval = 1
		}
	}
	if in.RecurrencePattern != nil {
		d.RecurrencePattern = parseEnum(u.f, "recurrencePattern", *in.RecurrencePattern, d.RecurrencePattern, recurrencePatterns, "Recurrence pattern is required")
		u.touch("recurrencePattern")
	}
	if in.RecurrenceInterval != nil {
		d.RecurrenceInterval = *in.RecurrenceInterval
		u.touch("recurrenceInterval")
	}
	if in.ImpactLevel != nil {
		d.ImpactLevel = parseEnum(u.f, "impactLevel", *in.ImpactLevel, d.ImpactLevel, levels, "Invalid impact level")
		u.touch("impactLevel")
	}
	if in.RiskLevel != nil {
		d.RiskLevel = parseEnum(u.f, "riskLevel", *in.RiskLevel, d.RiskLevel, levels, "Invalid risk level")
		u.touch("riskLevel")
	}
	if in.Dependencies != nil {
		d.Dependencies = cleanList(in.Dependencies)
		u.touch("dependencies")
	}
}

// updater tracks which fields an update touched.
type updater struct {
	f      fieldErrors
	fields []string
}

func (u *updater) touch(field string) {
	if !slices.Contains(u.fields, field) {
		u.fields = append(u.fields, field)
	}
}

func (u *updater) text(field string, value *string, dst *string) {
	if value == nil {
		return
	}
	*dst = strings.TrimSpace(*value)
	u.touch(field)
}

func (u *updater) notApplicable(field string, present bool) {
	if present {
		u.f.add(field, "Field does not apply to this ticket kind")
	}
}

func (u *updater) rejectIncident(in UpdateInput) {
	u.notApplicable("urgency", in.Urgency != nil)
	u.notApplicable("impact", in.Impact != nil)
	u.notApplicable("caller", in.Caller != nil)
	u.notApplicable("callerEmail", in.CallerEmail != nil)
	u.notApplicable("businessService", in.BusinessService != nil)
	u.notApplicable("configurationItem", in.ConfigurationItem != nil)
	u.notApplicable("isEscalated", in.IsEscalated != nil)
}

func (u *updater) rejectChange(in UpdateInput) {
	u.notApplicable("requestedBy", in.RequestedBy != nil)
	u.notApplicable("requestedByEmail", in.RequestedByEmail != nil)
	u.notApplicable("scheduledStart", in.ScheduledStart != nil)
	u.notApplicable("scheduledEnd", in.ScheduledEnd != nil)
	u.notApplicable("businessJustification", in.BusinessJustification != nil)
	u.notApplicable("implementationPlan", in.ImplementationPlan != nil)
	u.notApplicable("rollbackPlan", in.RollbackPlan != nil)
	u.notApplicable("testingPlan", in.TestingPlan != nil)
	u.notApplicable("communicationPlan", in.CommunicationPlan != nil)
	u.notApplicable("riskAssessment", in.RiskAssessment != nil)
}

// rejectMaintenance flags maintenance-only fields. estimatedDuration is shared
// with change requests and is not listed.
func (u *updater) rejectMaintenance(in UpdateInput) {
	u.notApplicable("type", in.MaintenanceType != nil)
	u.notApplicable("scheduledDate", in.ScheduledDate != nil)
	u.notApplicable("scheduledStartTime", in.ScheduledStartTime != nil)
	u.notApplicable("scheduledEndTime", in.ScheduledEndTime != nil)
	u.notApplicable("isRecurring", in.IsRecurring != nil)
	u.notApplicable("recurrencePattern", in.RecurrencePattern != nil)
	u.notApplicable("recurrenceInterval", in.RecurrenceInterval != nil)
	u.notApplicable("impactLevel", in.ImpactLevel != nil)
	u.notApplicable("riskLevel", in.RiskLevel != nil)
	u.notApplicable("dependencies", in.Dependencies != nil)
}
