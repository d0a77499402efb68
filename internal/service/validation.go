package service

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/catalog"
	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// MaxWorkNoteLength bounds a single work note.
const MaxWorkNoteLength = 2000

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// maintenanceDurations are the estimates offered for upkeep windows.
var maintenanceDurations = []string{"30 minutes", "1 hour", "2 hours", "4 hours", "8 hours", "1 day"}

// fieldErrors collects every violation before failing.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) set(field, msg string) {
	f[field] = msg
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewFieldValidation(f)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (f fieldErrors) required(field, value, msg string) {
	if blank(value) {
		f.add(field, msg)
	}
}

func (f fieldErrors) email(field, value, requiredMsg string) {
	switch {
	case blank(value):
		f.add(field, requiredMsg)
	case !emailPattern.MatchString(value):
		f.add(field, "Please enter a valid email address")
	}
}

// priorityField parses an optional priority, defaulting to 3 - Medium.
func (f fieldErrors) priorityField(field, raw string) domain.Priority {
	if blank(raw) {
		return domain.PriorityMedium
	}
	p, ok := domain.ParsePriority(raw)
	if !ok {
		f.add(field, "Invalid priority")
		return domain.PriorityMedium
	}
	return p
}

// classification checks category and subcategory against the catalog. Strict
// mode rejects values outside the catalog; otherwise only presence is checked.
func (f fieldErrors) classification(c *catalog.Catalog, strict bool, kind domain.Kind, category, subcategory string) {
	f.required("category", category, "Category is required")
	if kind != domain.KindMaintenanceTask {
		f.required("subcategory", subcategory, "Subcategory is required")
	}
	if !strict || c == nil || blank(category) {
		return
	}
	if !c.HasCategory(kind, category) {
		f.add("category", "Unknown category")
		return
	}
	if !blank(subcategory) || c.RequiresSubcategory(kind, category) {
		if !c.Allows(kind, category, subcategory) {
			f.add("subcategory", "Subcategory is not valid for "+category)
		}
	}
}

func (s *TicketService) validateBase(f fieldErrors, kind domain.Kind, t *domain.Ticket) {
	f.required("shortDescription", t.ShortDescription, "Short description is required")
	f.required("description", t.Description, "Description is required")
	f.required("assignmentGroup", t.AssignmentGroup, "Assignment group is required")
	f.classification(s.catalog, s.strictCatalog, kind, t.Category, t.Subcategory)
	if !t.Priority.Valid() {
		f.add("priority", "Invalid priority")
	}
}

func validateIncident(f fieldErrors, d *domain.IncidentDetails) {
	f.required("caller", d.Caller, "Caller name is required")
	f.email("callerEmail", d.CallerEmail, "Caller email is required")
	if !d.Urgency.Valid() {
		f.add("urgency", "Invalid urgency")
	}
	if !d.Impact.Valid() {
		f.add("impact", "Invalid impact")
	}
}

func validateChange(f fieldErrors, d *domain.ChangeDetails) {
	f.required("requestedBy", d.RequestedBy, "Requested by name is required")
	f.email("requestedByEmail", d.RequestedByEmail, "Requested by email is required")
	if d.ScheduledStart.IsZero() {
		f.add("scheduledStart", "Scheduled start time is required")
	}
	if d.ScheduledEnd.IsZero() {
		f.add("scheduledEnd", "Scheduled end time is required")
	}
	if !d.ScheduledStart.IsZero() && !d.ScheduledEnd.IsZero() && !d.ScheduledEnd.After(d.ScheduledStart) {
		f.set("scheduledEnd", "End time must be after start time")
	}
	f.required("businessJustification", d.BusinessJustification, "Business justification is required")
	f.required("implementationPlan", d.ImplementationPlan, "Implementation plan is required")
	f.required("rollbackPlan", d.RollbackPlan, "Rollback plan is required")
	if !d.RiskAssessment.Valid() {
		f.add("riskAssessment", "Invalid risk assessment")
	}
	if d.EstimatedDuration != "" && !slices.Contains(domain.EstimatedDurations, d.EstimatedDuration) {
		f.add("estimatedDuration", "Invalid estimated duration")
	}
}

// validateMaintenance checks the schedule and recurrence. The raw date and clock
// strings are parsed by the caller; parse failures are already in f.
func validateMaintenance(f fieldErrors, d *domain.MaintenanceDetails) {
	if !d.Type.Valid() {
		f.add("type", "Invalid maintenance type")
	}
	if d.ScheduledDate.IsZero() {
		f.add("scheduledDate", "Scheduled date is required")
	}
	f.required("scheduledStartTime", d.ScheduledStartTime, "Start time is required")
	f.required("scheduledEndTime", d.ScheduledEndTime, "End time is required")
	if _, bad := f["scheduledStartTime"]; !bad {
		if _, bad := f["scheduledEndTime"]; !bad {
			start, errStart := d.WindowStart()
			end, errEnd := d.WindowEnd()
			switch {
			case errStart != nil:
				f.add("scheduledStartTime", "Start time must be HH:MM")
			case errEnd != nil:
				f.add("scheduledEndTime", "End time must be HH:MM")
			case !end.After(start):
				f.add("scheduledEndTime", "End time must be after start time")
			}
		}
	}
	switch {
	case blank(d.EstimatedDuration):
		f.add("estimatedDuration", "Estimated duration is required")
	case !slices.Contains(maintenanceDurations, d.EstimatedDuration):
		f.add("estimatedDuration", "Invalid estimated duration")
	}
	if d.IsRecurring {
		if !d.RecurrencePattern.Valid() {
			f.add("recurrencePattern", "Recurrence pattern is required")
		}
		if d.RecurrenceInterval < 1 {
			f.add("recurrenceInterval", "Recurrence interval must be at least 1")
		}
	}
	if !d.ImpactLevel.Valid() {
		f.add("impactLevel", "Invalid impact level")
	}
	if !d.RiskLevel.Valid() {
		f.add("riskLevel", "Invalid risk level")
	}
}

// parseScheduledDate reads a YYYY-MM-DD date in UTC; empty input yields the zero time.
func (f fieldErrors) parseScheduledDate(raw string) time.Time {
	if blank(raw) {
		return time.Time{}
	}
	date, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		f.add("scheduledDate", "Scheduled date must be YYYY-MM-DD")
		return time.Time{}
	}
	return date
}

func validateWorkNote(content string) error {
	f := fieldErrors{}
	switch {
	case blank(content):
		f.add("content", "Work note content is required")
	case len([]rune(content)) > MaxWorkNoteLength:
		f.add("content", "Work note must be at most 2000 characters")
	}
	return f.err()
}

// nextOccurrence derives the next scheduled date of a recurring task.
func nextOccurrence(d *domain.MaintenanceDetails) *time.Time {
	if d == nil || !d.IsRecurring || d.ScheduledDate.IsZero() {
		return nil
	}
	next, err := d.RecurrencePattern.Next(d.ScheduledDate, d.RecurrenceInterval)
	if err != nil {
		return nil
	}
	return &next
}
