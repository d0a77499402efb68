package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// Stats counts a namespace by state, priority and, for planned work, approval.
func (s *TicketService) Stats(ctx context.Context, kind domain.Kind) (stats *Stats, err error) {
	defer func() { s.record(kind, "stats", err) }()
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	pctx, cancel := s.persistCtx(ctx)
	defer cancel()
	items, err := s.tickets.Find(pctx, kind, repository.TicketFilter{})
	if err != nil {
		return nil, storeError(kind, "", err)
	}

	now := s.now()
	stats = &Stats{
		Kind:       kind,
		Total:      len(items),
		ByState:    make(map[domain.TicketState]int),
		ByPriority: make(map[domain.Priority]int),
	}
	if kind != domain.KindIncident {
		stats.ByApproval = make(map[domain.ApprovalStatus]int)
	}
	for _, t := range items {
		stats.ByState[t.State]++
		stats.ByPriority[t.Priority]++
		switch {
		case t.Incident != nil:
			if t.Incident.IsEscalated {
				stats.EscalatedCount++
			}
			if t.Incident.SLABreached(t.State, now) {
				stats.SLABreached++
			}
		case t.Change != nil:
			stats.ByApproval[t.Change.ApprovalStatus]++
		case t.Maintenance != nil:
			stats.ByApproval[t.Maintenance.ApprovalStatus]++
		}
	}
	return stats, nil
}

// Calendar returns maintenance tasks whose scheduled date falls in [from, to],
// ordered by window start then id.
func (s *TicketService) Calendar(ctx context.Context, from, to time.Time) (items []*domain.Ticket, err error) {
	kind := domain.KindMaintenanceTask
	defer func() { s.record(kind, "calendar", err) }()
	if from.IsZero() || to.IsZero() {
		return nil, apperrors.NewFieldValidation(map[string]string{"startDate": "Start and end dates are required"})
	}
	if to.Before(from) {
		return nil, apperrors.NewFieldValidation(map[string]string{"endDate": "End date must not be before start date"})
	}
	pctx, cancel := s.persistCtx(ctx)
	defer cancel()
	items, err = s.tickets.Find(pctx, kind, repository.TicketFilter{ScheduledFrom: &from, ScheduledTo: &to})
	if err != nil {
		return nil, storeError(kind, "", err)
	}
	sortTickets(items, ListSort{Field: SortScheduledDate})
	return items, nil
}

// UpcomingMaintenance returns Scheduled tasks whose window opens in [now, now+window].
func (s *TicketService) UpcomingMaintenance(ctx context.Context, window time.Duration) ([]*domain.Ticket, error) {
	now := s.now()
	until := now.Add(window)
	// ScheduledDate is midnight of the task day; widen by a day and check the window start below.
	from := now.Add(-24 * time.Hour)
	state := domain.StateScheduled

	pctx, cancel := s.persistCtx(ctx)
	defer cancel()
	candidates, err := s.tickets.Find(pctx, domain.KindMaintenanceTask, repository.TicketFilter{
		State:         &state,
		ScheduledFrom: &from,
		ScheduledTo:   &until,
	})
	if err != nil {
		return nil, storeError(domain.KindMaintenanceTask, "", err)
	}

	due := make([]*domain.Ticket, 0, len(candidates))
	for _, t := range candidates {
		start, err := t.Maintenance.WindowStart()
		if err != nil {
			continue
		}
		if !start.Before(now) && !start.After(until) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return scheduledInstant(due[i]).Before(scheduledInstant(due[j]))
	})
	return due, nil
}

// AnnounceUpcomingMaintenance publishes maintenance_due once per task window
// opening inside window and returns how many were newly announced.
func (s *TicketService) AnnounceUpcomingMaintenance(ctx context.Context, window time.Duration) (int, error) {
	due, err := s.UpcomingMaintenance(ctx, window)
	if err != nil {
		return 0, err
	}
	now := s.now()
	announced := 0
	for _, t := range due {
		start, _ := t.Maintenance.WindowStart()
		if !s.announced.claim(t.ID, start, now) {
			continue
		}
		announced++
		if s.dispatcher == nil {
			continue
		}
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMaintenanceDue,
			Kind:      t.Kind,
			TicketID:  t.ID,
			Actor:     events.Actor{System: true},
			Timestamp: now,
			Payload: events.MaintenanceDuePayload{
				StartsAt:         start,
				ShortDescription: t.ShortDescription,
			},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("maintenance due handler failed", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}
	return announced, nil
}
