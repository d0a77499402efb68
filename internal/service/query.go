package service

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/workflow"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// filterAll disables a filter dimension.
const filterAll = "all"

// Sort fields accepted by List.
const (
	SortCreatedAt      = "createdAt"
	SortUpdatedAt      = "updatedAt"
	SortPriority       = "priority"
	SortScheduledStart = "scheduledStart"
	SortScheduledDate  = "scheduledDate"
)

// SortFields lists every accepted sort field.
var SortFields = []string{SortCreatedAt, SortUpdatedAt, SortPriority, SortScheduledStart, SortScheduledDate}

// ListFilter is the conjunction of list predicates. "all" or empty disables
// State, Priority and Category. AssignedTo is "all" (no filter), "" or
// "unassigned" (explicitly unassigned), or an admin id.
type ListFilter struct {
	Search          string
	State           string
	Priority        string
	AssignedTo      string
	Category        string
	MaintenanceType string
	ScheduledFrom   *time.Time
	ScheduledTo     *time.Time
}

// ListSort orders results; ties always break by id ascending.
type ListSort struct {
	Field string
	Desc  bool
}

// ListQuery is the input of List. Page is 1-indexed.
type ListQuery struct {
	Filter ListFilter
	Sort   ListSort
	Page   int
}

// ListResult is one page of tickets.
type ListResult struct {
	Items      []*domain.Ticket `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	Total      int              `json:"total"`
}

// repositoryFilter translates list predicates; unknown enum values are validation errors.
func repositoryFilter(kind domain.Kind, f ListFilter) (repository.TicketFilter, error) {
	out := repository.TicketFilter{
		SearchTerm:    strings.TrimSpace(f.Search),
		ScheduledFrom: f.ScheduledFrom,
		ScheduledTo:   f.ScheduledTo,
	}
	bad := fieldErrors{}

	if v := strings.TrimSpace(f.State); v != "" && !strings.EqualFold(v, filterAll) {
		state, ok := workflow.ParseState(kind, v)
		if !ok {
			bad.add("state", "Unknown state")
		}
		out.State = &state
	}
	if v := strings.TrimSpace(f.Priority); v != "" && !strings.EqualFold(v, filterAll) {
		p, ok := domain.ParsePriority(v)
		if !ok {
			bad.add("priority", "Invalid priority")
		}
		out.Priority = &p
	}
	switch v := strings.TrimSpace(f.AssignedTo); {
	case strings.EqualFold(v, filterAll):
	case v == "" || strings.EqualFold(v, "unassigned"):
		out.Unassigned = true
	default:
		out.AssignedTo = &v
	}
	if v := strings.TrimSpace(f.Category); v != "" && !strings.EqualFold(v, filterAll) {
		out.Category = &v
	}
	if v := strings.TrimSpace(f.MaintenanceType); v != "" && !strings.EqualFold(v, filterAll) {
		mt := domain.MaintenanceType(v)
		if !mt.Valid() {
			bad.add("type", "Invalid maintenance type")
		}
		out.MaintenanceType = &mt
	}
	if f.ScheduledFrom != nil && f.ScheduledTo != nil && f.ScheduledTo.Before(*f.ScheduledFrom) {
		bad.add("scheduledTo", "Range end must not be before range start")
	}
	return out, bad.err()
}

// defaultSort is newest first, which is what the consoles show.
var defaultSort = ListSort{Field: SortCreatedAt, Desc: true}

func validateSort(kind domain.Kind, s ListSort) (ListSort, error) {
	if s.Field == "" {
		return defaultSort, nil
	}
	switch s.Field {
	case SortCreatedAt, SortUpdatedAt, SortPriority:
		return s, nil
	case SortScheduledStart:
		if kind == domain.KindChangeRequest {
			return s, nil
		}
	case SortScheduledDate:
		if kind == domain.KindMaintenanceTask {
			return s, nil
		}
	}
	return s, apperrors.NewFieldValidation(map[string]string{"sortBy": "Unsupported sort field for " + string(kind)})
}

// sortTickets orders in place; ties break by id ascending regardless of direction.
func sortTickets(items []*domain.Ticket, s ListSort) {
	sort.SliceStable(items, func(i, j int) bool {
		c := compareTickets(items[i], items[j], s.Field)
		if c == 0 {
			return items[i].ID < items[j].ID
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareTickets(a, b *domain.Ticket, field string) int {
	switch field {
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortScheduledStart:
		return scheduledInstant(a).Compare(scheduledInstant(b))
	case SortScheduledDate:
		return scheduledInstant(a).Compare(scheduledInstant(b))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// scheduledInstant is the planned start of change and maintenance work.
func scheduledInstant(t *domain.Ticket) time.Time {
	switch {
	case t.Change != nil:
		return t.Change.ScheduledStart
	case t.Maintenance != nil:
		if start, err := t.Maintenance.WindowStart(); err == nil {
			return start
		}
		return t.Maintenance.ScheduledDate
	default:
		return time.Time{}
	}
}

// paginate slices a sorted result. Pages past the end are empty.
func paginate(items []*domain.Ticket, page, size int) ListResult {
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	pageItems := make([]*domain.Ticket, end-start)
	copy(pageItems, items[start:end])
	return ListResult{
		Items:      pageItems,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
	}
}
