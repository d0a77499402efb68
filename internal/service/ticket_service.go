package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/catalog"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/workflow"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// TicketService is the lifecycle engine for incidents, change requests and
// maintenance tasks. Mutations on one ticket are serialized; reads work on
// copies returned by the repository.
type TicketService struct {
	tickets       repository.TicketRepository
	ids           *IDGenerator
	sla           SLAPolicy
	catalog       *catalog.Catalog
	strictCatalog bool
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	locks         *keyedLocks
	announced     *announcementLog
	now           func() time.Time
	pageSize      int
	timeout       time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Sequences  repository.SequenceStore
	Catalog    *catalog.Catalog
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketsConfig, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		ids:           NewIDGenerator(deps.Sequences, cfg),
		sla:           NewSLAPolicy(cfg),
		catalog:       cat,
		strictCatalog: cfg.StrictCatalog,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		locks:         newKeyedLocks(),
		announced:     newAnnouncementLog(),
		now:           clock,
		pageSize:      pageSize,
		timeout:       cfg.PersistenceTimeout(),
	}
}

// PageSize is the fixed number of items per list page.
func (s *TicketService) PageSize() int {
	return s.pageSize
}

// authorize is the admin gate repeated at the engine boundary.
func authorize(actor *domain.AdminIdentity) error {
	if actor == nil {
		return apperrors.NewUnauthorized("admin identity required")
	}
	if !actor.IsPrivileged() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// Get fetches one ticket.
func (s *TicketService) Get(ctx context.Context, kind domain.Kind, id string) (ticket *domain.Ticket, err error) {
	defer func() { s.record(kind, "get", err) }()
	pctx, cancel := s.persistCtx(ctx)
	defer cancel()
	return s.load(pctx, kind, id)
}

// List filters, sorts and pages a namespace. It never mutates.
func (s *TicketService) List(ctx context.Context, kind domain.Kind, q ListQuery) (result ListResult, err error) {
	defer func() { s.record(kind, "list", err) }()
	if !kind.Valid() {
		return ListResult{}, unknownKind(kind)
	}
	filter, err := repositoryFilter(kind, q.Filter)
	if err != nil {
		return ListResult{}, err
	}
	order, err := validateSort(kind, q.Sort)
	if err != nil {
		return ListResult{}, err
	}

	pctx, cancel := s.persistCtx(ctx)
	defer cancel()
	items, err := s.tickets.Find(pctx, kind, filter)
	if err != nil {
		return ListResult{}, storeError(kind, "", err)
	}
	sortTickets(items, order)
	return paginate(items, q.Page, s.pageSize), nil
}

// Transition moves a ticket along its kind's state table and stamps the
// matching timestamps.
func (s *TicketService) Transition(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id string, in TransitionInput) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, kind, id, "transition", func(t *domain.Ticket, now time.Time) (events.EventType, any, error) {
		if blank(in.State) {
			return "", nil, apperrors.NewFieldValidation(map[string]string{"state": "Target state is required"})
		}
		target, ok := workflow.ParseState(kind, in.State)
		if !ok {
			return "", nil, apperrors.NewInvalidTransition(string(t.State), strings.TrimSpace(in.State))
		}
		if err := workflow.ValidateTransition(kind, t.State, target); err != nil {
			return "", nil, err
		}
		previous := t.State
		t.State = target
		stampTransition(t, previous, target, strings.TrimSpace(in.Notes), now)
		return events.EventTicketStateChanged, events.TicketStateChangedPayload{
			OldState: previous,
			NewState: target,
			Notes:    strings.TrimSpace(in.Notes),
		}, nil
	})
}

func stampTransition(t *domain.Ticket, from, to domain.TicketState, notes string, now time.Time) {
	at := now
	switch {
	case t.Incident != nil:
		switch to {
		case domain.StateResolved:
			t.Incident.ResolvedAt = &at
			t.Incident.ResolutionNotes = notes
		case domain.StateClosed:
			t.Incident.ClosedAt = &at
		}
	case t.Change != nil:
		switch to {
		case domain.StateInProgress:
			t.Change.ActualStart = &at
		case domain.StateCompleted:
			t.Change.ActualEnd = &at
			if t.Change.ActualStart != nil {
				t.Change.ActualDuration = domain.FormatDuration(*t.Change.ActualStart, at)
			}
		}
	case t.Maintenance != nil:
		if to == domain.StateInProgress {
			t.Maintenance.ActualStartTime = &at
		}
		if from == domain.StateInProgress {
			t.Maintenance.ActualEndTime = &at
			if t.Maintenance.ActualStartTime != nil {
				t.Maintenance.ActualDuration = domain.FormatDuration(*t.Maintenance.ActualStartTime, at)
			}
		}
	}
}

// Assign sets or clears the assignee. The admin id is not resolved here.
func (s *TicketService) Assign(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id string, adminID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, kind, id, "assign", func(t *domain.Ticket, _ time.Time) (events.EventType, any, error) {
		previous := t.AssignedTo
		var next *string
		if adminID != nil {
			if v := strings.TrimSpace(*adminID); v != "" {
				next = &v
			}
		}
		t.AssignedTo = next
		return events.EventTicketAssigned, events.TicketAssignedPayload{
			PreviousAssignee: previous,
			Assignee:         next,
		}, nil
	})
}

// AddWorkNote appends a note authored by the actor. Existing notes are never touched.
func (s *TicketService) AddWorkNote(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id string, in WorkNoteInput) (*domain.Ticket, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := validateWorkNote(in.Content); err != nil {
		s.record(kind, "work_note", err)
		return nil, err
	}
	return s.mutate(ctx, actor, kind, id, "work_note", func(t *domain.Ticket, now time.Time) (events.EventType, any, error) {
		note := domain.WorkNote{
			ID:         uuid.NewString(),
			AuthorID:   actor.ID,
			AuthorName: actor.Name,
			Content:    strings.TrimSpace(in.Content),
			Timestamp:  now,
			IsPublic:   in.IsPublic,
		}
		t.WorkNotes = append(t.WorkNotes, note)
		return events.EventTicketWorkNoteAdded, events.TicketWorkNoteAddedPayload{
			NoteID:      note.ID,
			IsPublic:    note.IsPublic,
			BodyPreview: stringPreview(note.Content, 120),
		}, nil
	})
}

// SetApproval records a sign-off decision on a change request or maintenance task.
func (s *TicketService) SetApproval(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id string, in ApprovalInput) (*domain.Ticket, error) {
	if kind != domain.KindChangeRequest && kind != domain.KindMaintenanceTask {
		return nil, apperrors.NewValidationError("approval applies to change requests and maintenance tasks", map[string]any{"kind": kind})
	}
	status, ok := parseApproval(in.Status)
	if !ok {
		return nil, apperrors.NewFieldValidation(map[string]string{"approvalStatus": "Approval status must be Pending, Approved or Rejected"})
	}
	return s.mutate(ctx, actor, kind, id, "approval", func(t *domain.Ticket, now time.Time) (events.EventType, any, error) {
		var (
			approvedBy *string
			approvedAt *time.Time
			reason     string
		)
		if status != domain.ApprovalPending {
			by, at := actor.ID, now
			approvedBy, approvedAt = &by, &at
		}
		if status == domain.ApprovalRejected {
			reason = strings.TrimSpace(in.RejectionReason)
		}
		switch {
		case t.Change != nil:
			t.Change.ApprovalStatus = status
			t.Change.ApprovedBy, t.Change.ApprovedAt, t.Change.RejectionReason = approvedBy, approvedAt, reason
		case t.Maintenance != nil:
			t.Maintenance.ApprovalStatus = status
			t.Maintenance.ApprovedBy, t.Maintenance.ApprovedAt, t.Maintenance.RejectionReason = approvedBy, approvedAt, reason
		}
		return events.EventTicketApproval, events.TicketApprovalPayload{Status: status, RejectionReason: reason}, nil
	})
}

func parseApproval(raw string) (domain.ApprovalStatus, bool) {
	for _, status := range []domain.ApprovalStatus{domain.ApprovalPending, domain.ApprovalApproved, domain.ApprovalRejected} {
		if strings.EqualFold(strings.TrimSpace(raw), string(status)) {
			return status, true
		}
	}
	return "", false
}

// mutation edits a loaded ticket and names the event to publish.
type mutation func(t *domain.Ticket, now time.Time) (events.EventType, any, error)

// mutate runs authorize, lock, load, apply, persist, publish. A failing apply
// or persist leaves the stored ticket untouched.
func (s *TicketService) mutate(ctx context.Context, actor *domain.AdminIdentity, kind domain.Kind, id, op string, apply mutation) (ticket *domain.Ticket, err error) {
	defer func() { s.record(kind, op, err) }()
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}

	id = strings.TrimSpace(id)
	unlock := s.locks.Lock(kind.Namespace() + "/" + id)
	defer unlock()

	pctx, cancel := s.persistCtx(ctx)
	defer cancel()

	ticket, err = s.load(pctx, kind, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	eventType, payload, err := apply(ticket, now)
	if err != nil {
		return nil, err
	}
	ticket.UpdatedAt = now
	if err := s.tickets.Update(pctx, ticket); err != nil {
		return nil, storeError(kind, id, err)
	}
	s.publishEvent(ctx, actor, ticket, eventType, payload)
	return ticket, nil
}

func (s *TicketService) load(ctx context.Context, kind domain.Kind, id string) (*domain.Ticket, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	ticket, err := s.tickets.Get(ctx, kind, strings.TrimSpace(id))
	if err != nil {
		return nil, storeError(kind, id, err)
	}
	return ticket, nil
}

func (s *TicketService) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeError maps repository failures: a missing key is NOT_FOUND, anything
// else from the backend is UNAVAILABLE.
func storeError(kind domain.Kind, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(kindLabel(kind), map[string]any{"id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewUnavailable(err)
}

func unknownKind(kind domain.Kind) error {
	return apperrors.NewValidationError("unknown ticket kind", map[string]any{"kind": kind})
}

func kindLabel(kind domain.Kind) string {
	switch kind {
	case domain.KindIncident:
		return "incident"
	case domain.KindChangeRequest:
		return "change request"
	case domain.KindMaintenanceTask:
		return "maintenance task"
	default:
		return "ticket"
	}
}

func (s *TicketService) record(kind domain.Kind, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	s.metrics.RecordTicketOperation(string(kind), op, outcome)
}

func (s *TicketService) publishEvent(ctx context.Context, actor *domain.AdminIdentity, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if s.dispatcher == nil || eventType == "" {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Kind:      ticket.Kind,
		TicketID:  ticket.ID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{AdminID: actor.ID, Name: actor.Name}
	} else {
		event.Actor = events.Actor{System: true}
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
