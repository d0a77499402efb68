package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

func TestCreateIncidentDefaults(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)

	assert.Equal(t, "INC0010001", ticket.ID)
	assert.Equal(t, domain.StateNew, ticket.State)
	assert.Equal(t, domain.PriorityHigh, ticket.Priority)
	assert.Equal(t, testEpoch, ticket.CreatedAt)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
	assert.Empty(t, ticket.WorkNotes)
	assert.Nil(t, ticket.AssignedTo)
	require.NotNil(t, ticket.Incident)
	assert.Equal(t, testEpoch.Add(24*time.Hour), ticket.Incident.SLADue)
	assert.False(t, ticket.Incident.IsEscalated)

	second := mustIncident(t, h)
	assert.Equal(t, "INC0010002", second.ID)
	assert.Less(t, ticket.ID, second.ID)

	require.Len(t, *h.events, 2)
	assert.Equal(t, events.EventTicketCreated, (*h.events)[0].Type)
	assert.Equal(t, "admin-1", (*h.events)[0].Actor.AdminID)
}

func TestCreateIncidentPrioritySLA(t *testing.T) {
	h := newHarness(t, func(c *config.TicketsConfig) { c.SLAPolicy = "priority" })
	in := validIncident()
	in.Priority = "1 - Critical"
	ticket, err := h.svc.CreateIncident(context.Background(), testAdmin(), in)
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(4*time.Hour), ticket.Incident.SLADue)
}

func TestCreateIncidentCollectsFieldErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateIncident(context.Background(), testAdmin(), IncidentInput{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, []string{
		"assignmentGroup", "caller", "callerEmail", "category", "description", "shortDescription", "subcategory",
	}, apperrors.FieldNames(err))
	assert.Equal(t, "Short description is required", apperrors.FieldErrors(err)["shortDescription"])
}

func TestCreateIncidentRejectsBadEmail(t *testing.T) {
	h := newHarness(t)
	in := validIncident()
	in.CallerEmail = "not-an-email"
	_, err := h.svc.CreateIncident(context.Background(), testAdmin(), in)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"callerEmail": "Please enter a valid email address"}, apperrors.FieldErrors(err))
}

func TestCreateChangeRequestEndBeforeStart(t *testing.T) {
	h := newHarness(t)
	in := validChange()
	end := in.ScheduledStart.Add(-time.Hour)
	in.ScheduledEnd = &end

	_, err := h.svc.CreateChangeRequest(context.Background(), testAdmin(), in)
	require.Error(t, err)
	assert.Equal(t, []string{"scheduledEnd"}, apperrors.FieldNames(err))
	assert.Equal(t, "End time must be after start time", apperrors.FieldErrors(err)["scheduledEnd"])

	result, err := h.svc.List(context.Background(), domain.KindChangeRequest, ListQuery{Filter: ListFilter{AssignedTo: "all"}})
	require.NoError(t, err)
	assert.Zero(t, result.Total)

	created, err := h.svc.CreateChangeRequest(context.Background(), testAdmin(), validChange())
	require.NoError(t, err)
	assert.Equal(t, "CHG0010001", created.ID)
	assert.Equal(t, domain.StateNew, created.State)
	assert.Equal(t, domain.ApprovalPending, created.Change.ApprovalStatus)
}

func TestCreateMaintenanceDefaults(t *testing.T) {
	h := newHarness(t)
	in := validMaintenance()
	in.IsRecurring = true
	in.RecurrencePattern = "monthly"

	ticket, err := h.svc.CreateMaintenanceTask(context.Background(), testAdmin(), in)
	require.NoError(t, err)
	assert.Equal(t, "MAINT001", ticket.ID)
	assert.Equal(t, domain.StateScheduled, ticket.State)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	d := ticket.Maintenance
	require.NotNil(t, d)
	assert.Equal(t, domain.MaintenanceScheduled, d.Type)
	assert.Equal(t, domain.LevelMedium, d.ImpactLevel)
	assert.Equal(t, domain.LevelMedium, d.RiskLevel)
	assert.Equal(t, domain.ApprovalPending, d.ApprovalStatus)
	assert.Equal(t, domain.RecurMonthly, d.RecurrencePattern)
	assert.Equal(t, 1, d.RecurrenceInterval)
	require.NotNil(t, d.NextScheduledDate)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), *d.NextScheduledDate)
}

func TestCreateMaintenanceWindowValidation(t *testing.T) {
	h := newHarness(t)
	in := validMaintenance()
	in.ScheduledEndTime = "09:30"
	in.EstimatedDuration = ""
	in.ScheduledDate = "10/03/2025"

	_, err := h.svc.CreateMaintenanceTask(context.Background(), testAdmin(), in)
	require.Error(t, err)
	fields := apperrors.FieldErrors(err)
	assert.Equal(t, "Scheduled date must be YYYY-MM-DD", fields["scheduledDate"])
	assert.Equal(t, "End time must be after start time", fields["scheduledEndTime"])
	assert.Equal(t, "Estimated duration is required", fields["estimatedDuration"])
}

func TestStrictCatalogRejectsUnknownSubcategory(t *testing.T) {
	h := newHarness(t, func(c *config.TicketsConfig) { c.StrictCatalog = true })
	in := validIncident()
	in.Subcategory = "Quantum"
	_, err := h.svc.CreateIncident(context.Background(), testAdmin(), in)
	require.Error(t, err)
	assert.Equal(t, []string{"subcategory"}, apperrors.FieldNames(err))

	in.Subcategory = "Performance"
	_, err = h.svc.CreateIncident(context.Background(), testAdmin(), in)
	assert.NoError(t, err)
}

func TestMutationsRequireAdmin(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)
	viewer := &domain.AdminIdentity{ID: "v1", Role: domain.AdminRole("viewer"), Status: domain.AdminStatusActive}

	_, err := h.svc.CreateIncident(context.Background(), nil, validIncident())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = h.svc.CreateIncident(context.Background(), viewer, validIncident())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.svc.Transition(context.Background(), viewer, domain.KindIncident, ticket.ID, TransitionInput{State: "In Progress"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.svc.AddWorkNote(context.Background(), nil, domain.KindIncident, ticket.ID, WorkNoteInput{Content: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	got, err := h.svc.Get(context.Background(), domain.KindIncident, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, got.State)
}

func TestIncidentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := testAdmin()
	ticket := mustIncident(t, h)

	moved, err := h.svc.Transition(ctx, admin, domain.KindIncident, ticket.ID, TransitionInput{State: "In Progress"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateInProgress, moved.State)

	_, err = h.svc.Transition(ctx, admin, domain.KindIncident, ticket.ID, TransitionInput{State: "Closed"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidTransition, de.Code)
	assert.Equal(t, "In Progress", de.Details["from"])
	assert.Equal(t, "Closed", de.Details["to"])

	got, err := h.svc.Get(ctx, domain.KindIncident, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInProgress, got.State)

	h.clock.Advance(time.Hour)
	resolved, err := h.svc.Transition(ctx, admin, domain.KindIncident, ticket.ID, TransitionInput{State: "resolved", Notes: "Index rebuilt"})
	require.NoError(t, err)
	require.NotNil(t, resolved.Incident.ResolvedAt)
	assert.Equal(t, testEpoch.Add(time.Hour), *resolved.Incident.ResolvedAt)
	assert.Equal(t, "Index rebuilt", resolved.Incident.ResolutionNotes)
	assert.Equal(t, testEpoch.Add(time.Hour), resolved.UpdatedAt)

	closed, err := h.svc.Transition(ctx, admin, domain.KindIncident, ticket.ID, TransitionInput{State: "Closed"})
	require.NoError(t, err)
	require.NotNil(t, closed.Incident.ClosedAt)

	_, err = h.svc.Transition(ctx, admin, domain.KindIncident, ticket.ID, TransitionInput{State: "New"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestTransitionUnknownTargetAndTicket(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)

	_, err := h.svc.Transition(context.Background(), testAdmin(), domain.KindIncident, ticket.ID, TransitionInput{State: "Teleported"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = h.svc.Transition(context.Background(), testAdmin(), domain.KindIncident, ticket.ID, TransitionInput{})
	assert.Equal(t, []string{"state"}, apperrors.FieldNames(err))

	_, err = h.svc.Transition(context.Background(), testAdmin(), domain.KindIncident, "INC9999999", TransitionInput{State: "In Progress"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestChangeRequestActualDuration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := testAdmin()
	chg, err := h.svc.CreateChangeRequest(ctx, admin, validChange())
	require.NoError(t, err)

	for _, state := range []string{"Scheduled", "In Progress"} {
		_, err = h.svc.Transition(ctx, admin, domain.KindChangeRequest, chg.ID, TransitionInput{State: state})
		require.NoError(t, err)
	}
	h.clock.Advance(90 * time.Minute)
	done, err := h.svc.Transition(ctx, admin, domain.KindChangeRequest, chg.ID, TransitionInput{State: "Completed"})
	require.NoError(t, err)
	require.NotNil(t, done.Change.ActualStart)
	require.NotNil(t, done.Change.ActualEnd)
	assert.Equal(t, "1h 30m", done.Change.ActualDuration)
}

func TestMaintenanceCancelledWhileRunningStampsEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := testAdmin()
	task, err := h.svc.CreateMaintenanceTask(ctx, admin, validMaintenance())
	require.NoError(t, err)

	_, err = h.svc.Transition(ctx, admin, domain.KindMaintenanceTask, task.ID, TransitionInput{State: "In Progress"})
	require.NoError(t, err)
	h.clock.Advance(45 * time.Minute)
	cancelled, err := h.svc.Transition(ctx, admin, domain.KindMaintenanceTask, task.ID, TransitionInput{State: "Cancelled"})
	require.NoError(t, err)
	require.NotNil(t, cancelled.Maintenance.ActualEndTime)
	assert.Equal(t, "0h 45m", cancelled.Maintenance.ActualDuration)
}

func TestFailedPersistenceLeavesTicketUnchanged(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)

	h.repo.failUpdate = true
	_, err := h.svc.Transition(context.Background(), testAdmin(), domain.KindIncident, ticket.ID, TransitionInput{State: "In Progress"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))

	h.repo.failUpdate = false
	got, err := h.svc.Get(context.Background(), domain.KindIncident, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, got.State)
	assert.Len(t, *h.events, 1)
}

func TestAssignAndUnassign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := mustIncident(t, h)

	assigned, err := h.svc.Assign(ctx, testAdmin(), domain.KindIncident, ticket.ID, ptr("admin-2"))
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "admin-2", *assigned.AssignedTo)

	cleared, err := h.svc.Assign(ctx, testAdmin(), domain.KindIncident, ticket.ID, ptr("  "))
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)

	last := (*h.events)[len(*h.events)-1]
	assert.Equal(t, events.EventTicketAssigned, last.Type)
	payload := last.Payload.(events.TicketAssignedPayload)
	assert.Equal(t, "admin-2", *payload.PreviousAssignee)
	assert.Nil(t, payload.Assignee)
}

func TestWorkNotesAppendOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := testAdmin()
	ticket := mustIncident(t, h)

	first, err := h.svc.AddWorkNote(ctx, admin, domain.KindIncident, ticket.ID, WorkNoteInput{Content: "Looking into it"})
	require.NoError(t, err)
	require.Len(t, first.WorkNotes, 1)
	original := first.WorkNotes[0]
	assert.Equal(t, "admin-1", original.AuthorID)
	assert.Equal(t, "Ada Admin", original.AuthorName)
	assert.NotEmpty(t, original.ID)

	h.clock.Advance(time.Minute)
	second, err := h.svc.AddWorkNote(ctx, admin, domain.KindIncident, ticket.ID, WorkNoteInput{Content: "Fixed", IsPublic: true})
	require.NoError(t, err)
	require.Len(t, second.WorkNotes, 2)
	assert.Equal(t, original, second.WorkNotes[0])
	assert.True(t, second.WorkNotes[1].IsPublic)
	assert.True(t, second.WorkNotes[1].Timestamp.After(original.Timestamp))

	_, err = h.svc.AddWorkNote(ctx, admin, domain.KindIncident, ticket.ID, WorkNoteInput{Content: "   "})
	assert.Equal(t, []string{"content"}, apperrors.FieldNames(err))

	long := make([]rune, MaxWorkNoteLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = h.svc.AddWorkNote(ctx, admin, domain.KindIncident, ticket.ID, WorkNoteInput{Content: string(long)})
	assert.Equal(t, []string{"content"}, apperrors.FieldNames(err))
}

func TestUpdatePartialFields(t *testing.T) {
	h := newHarness(t, func(c *config.TicketsConfig) { c.SLAPolicy = "priority" })
	ctx := context.Background()
	ticket := mustIncident(t, h)

	h.clock.Advance(time.Minute)
	updated, err := h.svc.Update(ctx, testAdmin(), domain.KindIncident, ticket.ID, UpdateInput{
		Priority:    ptr("1 - Critical"),
		IsEscalated: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, updated.Priority)
	assert.True(t, updated.Incident.IsEscalated)
	assert.Equal(t, testEpoch.Add(4*time.Hour), updated.Incident.SLADue)
	assert.Equal(t, ticket.ShortDescription, updated.ShortDescription)
	assert.Equal(t, testEpoch.Add(time.Minute), updated.UpdatedAt)

	_, err = h.svc.Update(ctx, testAdmin(), domain.KindIncident, ticket.ID, UpdateInput{RollbackPlan: ptr("n/a")})
	assert.Equal(t, []string{"rollbackPlan"}, apperrors.FieldNames(err))

	_, err = h.svc.Update(ctx, testAdmin(), domain.KindIncident, ticket.ID, UpdateInput{ShortDescription: ptr(" ")})
	assert.Equal(t, []string{"shortDescription"}, apperrors.FieldNames(err))

	_, err = h.svc.Update(ctx, testAdmin(), domain.KindIncident, ticket.ID, UpdateInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestUpdateChangeScheduleRevalidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chg, err := h.svc.CreateChangeRequest(ctx, testAdmin(), validChange())
	require.NoError(t, err)

	earlier := chg.Change.ScheduledStart.Add(-time.Minute)
	_, err = h.svc.Update(ctx, testAdmin(), domain.KindChangeRequest, chg.ID, UpdateInput{ScheduledEnd: &earlier})
	assert.Equal(t, []string{"scheduledEnd"}, apperrors.FieldNames(err))
}

func TestSetApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := testAdmin()
	chg, err := h.svc.CreateChangeRequest(ctx, admin, validChange())
	require.NoError(t, err)

	rejected, err := h.svc.SetApproval(ctx, admin, domain.KindChangeRequest, chg.ID, ApprovalInput{Status: "rejected", RejectionReason: "No rollback window"})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, rejected.Change.ApprovalStatus)
	assert.Equal(t, "admin-1", *rejected.Change.ApprovedBy)
	assert.Equal(t, "No rollback window", rejected.Change.RejectionReason)

	approved, err := h.svc.SetApproval(ctx, admin, domain.KindChangeRequest, chg.ID, ApprovalInput{Status: "Approved"})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, approved.Change.ApprovalStatus)
	assert.Empty(t, approved.Change.RejectionReason)

	_, err = h.svc.SetApproval(ctx, admin, domain.KindChangeRequest, chg.ID, ApprovalInput{Status: "Maybe"})
	assert.Equal(t, []string{"approvalStatus"}, apperrors.FieldNames(err))

	inc := mustIncident(t, h)
	_, err = h.svc.SetApproval(ctx, admin, domain.KindIncident, inc.ID, ApprovalInput{Status: "Approved"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestConcurrentCreatesAllocateUniqueIDs(t *testing.T) {
	h := newHarness(t)
	const n = 25
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := h.svc.CreateIncident(context.Background(), testAdmin(), validIncident())
			if assert.NoError(t, err) {
				ids <- ticket.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("INC%07d", 10000+n)])
}

func TestConcurrentWorkNotesAreAllKept(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.AddWorkNote(context.Background(), testAdmin(), domain.KindIncident, ticket.ID, WorkNoteInput{Content: fmt.Sprintf("note %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := h.svc.Get(context.Background(), domain.KindIncident, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, got.WorkNotes, n)
	assert.Zero(t, h.svc.locks.size())
}

func TestPaddedIDsShareTheTicketLock(t *testing.T) {
	h := newHarness(t)
	ticket := mustIncident(t, h)
	h.repo.getDelay = 2 * time.Millisecond

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := ticket.ID
		if i%2 == 0 {
			id = " " + ticket.ID + " "
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := h.svc.AddWorkNote(context.Background(), testAdmin(), domain.KindIncident, id, WorkNoteInput{Content: fmt.Sprintf("note %d", i)})
			assert.NoError(t, err)
		}(i, id)
	}
	wg.Wait()

	got, err := h.svc.Get(context.Background(), domain.KindIncident, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, got.WorkNotes, n)
	assert.Zero(t, h.svc.locks.size())
}
