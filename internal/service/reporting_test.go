package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
)

func TestIncidentStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tickets := seedIncidents(t, h, "1 - Critical", "2 - High", "2 - High")
	_, err := h.svc.Update(ctx, testAdmin(), domain.KindIncident, tickets[0].ID, UpdateInput{IsEscalated: ptr(true)})
	require.NoError(t, err)
	_, err = h.svc.Transition(ctx, testAdmin(), domain.KindIncident, tickets[1].ID, TransitionInput{State: "In Progress"})
	require.NoError(t, err)

	h.clock.Advance(48 * time.Hour)
	stats, err := h.svc.Stats(ctx, domain.KindIncident)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByState[domain.StateNew])
	assert.Equal(t, 1, stats.ByState[domain.StateInProgress])
	assert.Equal(t, 2, stats.ByPriority[domain.PriorityHigh])
	assert.Equal(t, 1, stats.EscalatedCount)
	assert.Equal(t, 3, stats.SLABreached)
	assert.Nil(t, stats.ByApproval)
}

func TestChangeStatsByApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.svc.CreateChangeRequest(ctx, testAdmin(), validChange())
	require.NoError(t, err)
	_, err = h.svc.CreateChangeRequest(ctx, testAdmin(), validChange())
	require.NoError(t, err)
	_, err = h.svc.SetApproval(ctx, testAdmin(), domain.KindChangeRequest, first.ID, ApprovalInput{Status: "Approved"})
	require.NoError(t, err)

	stats, err := h.svc.Stats(ctx, domain.KindChangeRequest)
	require.NoError(t, err)
	assert.Equal(t, map[domain.ApprovalStatus]int{domain.ApprovalApproved: 1, domain.ApprovalPending: 1}, stats.ByApproval)
}

func TestCalendarRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, date := range []string{"2025-03-20", "2025-03-12", "2025-04-02"} {
		in := validMaintenance()
		in.ScheduledDate = date
		_, err := h.svc.CreateMaintenanceTask(ctx, testAdmin(), in)
		require.NoError(t, err)
	}

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	items, err := h.svc.Calendar(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"MAINT002", "MAINT001"}, ids(items))

	_, err = h.svc.Calendar(ctx, to, from)
	assert.Error(t, err)
}

func TestAnnounceUpcomingMaintenance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	soon := validMaintenance()
	soon.ScheduledStartTime, soon.ScheduledEndTime = "09:30", "10:30"
	_, err := h.svc.CreateMaintenanceTask(ctx, testAdmin(), soon)
	require.NoError(t, err)

	later := validMaintenance()
	later.ScheduledStartTime, later.ScheduledEndTime = "15:00", "16:00"
	_, err = h.svc.CreateMaintenanceTask(ctx, testAdmin(), later)
	require.NoError(t, err)

	started := validMaintenance()
	started.ScheduledStartTime, started.ScheduledEndTime = "08:00", "12:00"
	_, err = h.svc.CreateMaintenanceTask(ctx, testAdmin(), started)
	require.NoError(t, err)

	count, err := h.svc.AnnounceUpcomingMaintenance(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	last := (*h.events)[len(*h.events)-1]
	assert.Equal(t, events.EventMaintenanceDue, last.Type)
	assert.Equal(t, "MAINT001", last.TicketID)
	assert.True(t, last.Actor.System)
	payload := last.Payload.(events.MaintenanceDuePayload)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), payload.StartsAt)
}

func TestOverlappingSweepsAnnounceEachWindowOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := validMaintenance()
	in.ScheduledStartTime, in.ScheduledEndTime = "09:45", "10:30"
	task, err := h.svc.CreateMaintenanceTask(ctx, testAdmin(), in)
	require.NoError(t, err)

	count, err := h.svc.AnnounceUpcomingMaintenance(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	published := len(*h.events)

	h.clock.Advance(15 * time.Minute)
	count, err = h.svc.AnnounceUpcomingMaintenance(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, *h.events, published)

	_, err = h.svc.Update(ctx, testAdmin(), domain.KindMaintenanceTask, task.ID, UpdateInput{ScheduledStartTime: ptr("09:55")})
	require.NoError(t, err)
	count, err = h.svc.AnnounceUpcomingMaintenance(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	last := (*h.events)[len(*h.events)-1]
	assert.Equal(t, events.EventMaintenanceDue, last.Type)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 55, 0, 0, time.UTC), last.Payload.(events.MaintenanceDuePayload).StartsAt)
}
