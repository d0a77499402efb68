package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
)

var testEpoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyRepository fails writes on demand.
type flakyRepository struct {
	repository.TicketRepository
	failUpdate bool
	failFind   bool
	getDelay   time.Duration
}

var errBackendDown = errors.New("backend down")

func (r *flakyRepository) Update(ctx context.Context, t *domain.Ticket) error {
	if r.failUpdate {
		return errBackendDown
	}
	return r.TicketRepository.Update(ctx, t)
}

func (r *flakyRepository) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Ticket, error) {
	if r.getDelay > 0 {
		time.Sleep(r.getDelay)
	}
	return r.TicketRepository.Get(ctx, kind, id)
}

func (r *flakyRepository) Find(ctx context.Context, kind domain.Kind, f repository.TicketFilter) ([]*domain.Ticket, error) {
	if r.failFind {
		return nil, errBackendDown
	}
	return r.TicketRepository.Find(ctx, kind, f)
}

type harness struct {
	svc        *TicketService
	clock      *fakeClock
	repo       *flakyRepository
	dispatcher events.Dispatcher
	events     *[]events.Event
}

func testTicketsConfig() config.TicketsConfig {
	return config.TicketsConfig{
		Storage:              "memory",
		Sequences:            "memory",
		PageSize:             10,
		SLAPolicy:            "fixed",
		SLAFixedHours:        24,
		IncidentSequenceBase: 10000,
		ChangeSequenceBase:   10000,
		PersistenceTimeoutMS: 1000,
	}
}

func newHarness(t *testing.T, mutate ...func(*config.TicketsConfig)) *harness {
	t.Helper()
	cfg := testTicketsConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	clock := &fakeClock{now: testEpoch}
	repo := &flakyRepository{TicketRepository: repository.NewMemoryTicketRepository()}
	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	published := []events.Event{}
	record := func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventTicketCreated, events.EventTicketStateChanged, events.EventTicketUpdated,
		events.EventTicketAssigned, events.EventTicketWorkNoteAdded, events.EventTicketApproval,
		events.EventMaintenanceDue,
	} {
		dispatcher.Subscribe(et, record)
	}
	svc := NewTicketService(cfg, TicketDependencies{
		TicketRepo: repo,
		Sequences:  repository.NewMemorySequenceStore(),
		Dispatcher: dispatcher,
		Clock:      clock.Now,
	})
	return &harness{svc: svc, clock: clock, repo: repo, dispatcher: dispatcher, events: &published}
}

func testAdmin() *domain.AdminIdentity {
	return &domain.AdminIdentity{
		ID:     "admin-1",
		Name:   "Ada Admin",
		Email:  "ada@parliament.test",
		Role:   domain.AdminRoleAdmin,
		Status: domain.AdminStatusActive,
	}
}

func validIncident() IncidentInput {
	return IncidentInput{
		TicketBaseInput: TicketBaseInput{
			ShortDescription: "DB timeout",
			Description:      "Queries to the members database stall",
			Priority:         "2 - High",
			Category:         "Database",
			Subcategory:      "Performance",
			AssignmentGroup:  "DB Team",
		},
		Urgency:     "2 - High",
		Impact:      "3 - Medium",
		Caller:      "Jane Clerk",
		CallerEmail: "jane@parliament.test",
	}
}

func validChange() ChangeRequestInput {
	start := time.Date(2025, 4, 1, 22, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return ChangeRequestInput{
		TicketBaseInput: TicketBaseInput{
			ShortDescription: "Patch web servers",
			Description:      "Apply security patches to the public site",
			Priority:         "3 - Medium",
			Category:         "Infrastructure",
			Subcategory:      "Server",
			AssignmentGroup:  "Platform",
		},
		RequestedBy:           "Sam Ops",
		RequestedByEmail:      "sam@parliament.test",
		ScheduledStart:        &start,
		ScheduledEnd:          &end,
		BusinessJustification: "Security advisory",
		ImplementationPlan:    "Rolling restart",
		RollbackPlan:          "Restore snapshot",
		RiskAssessment:        "Medium",
	}
}

func validMaintenance() MaintenanceTaskInput {
	return MaintenanceTaskInput{
		TicketBaseInput: TicketBaseInput{
			ShortDescription: "Rotate DB backups",
			Description:      "Monthly backup rotation",
			Category:         "Database",
			AssignmentGroup:  "DB Team",
		},
		ScheduledDate:      "2025-03-10",
		ScheduledStartTime: "10:00",
		ScheduledEndTime:   "11:00",
		EstimatedDuration:  "1 hour",
	}
}

func mustIncident(t *testing.T, h *harness) *domain.Ticket {
	t.Helper()
	ticket, err := h.svc.CreateIncident(context.Background(), testAdmin(), validIncident())
	require.NoError(t, err)
	return ticket
}

func ptr[T any](v T) *T {
	return &v
}
