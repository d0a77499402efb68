package repository

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// TicketFilter narrows Find results. Nil fields do not constrain. The
// scheduled range compares UTC calendar days and includes both ends.
type TicketFilter struct {
	State           *domain.TicketState
	Priority        *domain.Priority
	AssignedTo      *string
	Unassigned      bool
	Category        *string
	MaintenanceType *domain.MaintenanceType
	ScheduledFrom   *time.Time
	ScheduledTo     *time.Time
	SearchTerm      string
}

// TicketRepository stores tickets keyed by id within a kind namespace.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, kind domain.Kind, id string) (*domain.Ticket, error)
	Find(ctx context.Context, kind domain.Kind, filter TicketFilter) ([]*domain.Ticket, error)
}

// Matches evaluates the filter against a ticket in process.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.State != nil && t.State != *f.State {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Unassigned && !t.IsUnassigned() {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.MaintenanceType != nil && (t.Maintenance == nil || t.Maintenance.Type != *f.MaintenanceType) {
		return false
	}
	if f.ScheduledFrom != nil || f.ScheduledTo != nil {
		date, ok := scheduledDate(t)
		if !ok {
			return false
		}
		day := calendarDay(date)
		if f.ScheduledFrom != nil && day.Before(calendarDay(*f.ScheduledFrom)) {
			return false
		}
		if f.ScheduledTo != nil && day.After(calendarDay(*f.ScheduledTo)) {
			return false
		}
	}
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(t.ShortDescription), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.ID), term) {
			return false
		}
	}
	return true
}

func scheduledDate(t *domain.Ticket) (time.Time, bool) {
	switch {
	case t.Maintenance != nil:
		return t.Maintenance.ScheduledDate, true
	case t.Change != nil:
		return t.Change.ScheduledStart, true
	default:
		return time.Time{}, false
	}
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
