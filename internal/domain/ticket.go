package domain

import (
	"strings"
	"time"
)

// Kind identifies one of the three ticket families.
type Kind string

const (
	KindIncident        Kind = "incident"
	KindChangeRequest   Kind = "change_request"
	KindMaintenanceTask Kind = "maintenance_task"
)

// Kinds lists every supported ticket kind.
var Kinds = []Kind{KindIncident, KindChangeRequest, KindMaintenanceTask}

// Namespace returns the storage namespace for the kind.
func (k Kind) Namespace() string {
	switch k {
	case KindIncident:
		return "incidents"
	case KindChangeRequest:
		return "changeRequests"
	case KindMaintenanceTask:
		return "maintenanceTasks"
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k.Namespace() != ""
}

// TicketState is a kind-specific lifecycle state.
type TicketState string

const (
	StateNew        TicketState = "New"
	StatePending    TicketState = "Pending"
	StateScheduled  TicketState = "Scheduled"
	StateInProgress TicketState = "In Progress"
	StateResolved   TicketState = "Resolved"
	StateCompleted  TicketState = "Completed"
	StateClosed     TicketState = "Closed"
	StateCancelled  TicketState = "Cancelled"
)

// Priority is an ordinal urgency level.
type Priority string

const (
	PriorityCritical Priority = "1 - Critical"
	PriorityHigh     Priority = "2 - High"
	PriorityMedium   Priority = "3 - Medium"
	PriorityLow      Priority = "4 - Low"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank returns 1 (critical) through 4 (low); 0 for unknown values.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority accepts canonical values and compact forms such as "1-Critical" or "critical".
func ParsePriority(s string) (Priority, bool) {
	norm := compactPriority(s)
	for _, p := range Priorities {
		canonical := compactPriority(string(p))
		_, label, _ := strings.Cut(canonical, " ")
		if norm == canonical || norm == label {
			return p, true
		}
	}
	return "", false
}

// compactPriority lowercases and collapses "1 - Critical" style strings to "1 critical".
func compactPriority(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "-", " ")), " "))
}

// ApprovalStatus tracks sign-off for planned work.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// Ticket is the aggregate shared by incidents, change requests and maintenance tasks.
// Exactly one of the detail pointers is set, matching Kind.
type Ticket struct {
	ID               string      `json:"id"`
	Kind             Kind        `json:"kind"`
	ShortDescription string      `json:"shortDescription"`
	Description      string      `json:"description"`
	Priority         Priority    `json:"priority"`
	Category         string      `json:"category"`
	Subcategory      string      `json:"subcategory"`
	State            TicketState `json:"state"`
	AssignedTo       *string     `json:"assignedTo"`
	AssignmentGroup  string      `json:"assignmentGroup"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	WorkNotes        []WorkNote  `json:"workNotes"`

	Incident    *IncidentDetails    `json:"incident,omitempty"`
	Change      *ChangeDetails      `json:"change,omitempty"`
	Maintenance *MaintenanceDetails `json:"maintenance,omitempty"`
}

// WorkNote is an append-only timeline entry.
type WorkNote struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsPublic   bool      `json:"isPublic"`
}

// IsUnassigned reports whether nobody owns the ticket.
func (t *Ticket) IsUnassigned() bool {
	return t.AssignedTo == nil || *t.AssignedTo == ""
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.AssignedTo = cloneString(t.AssignedTo)
	if t.WorkNotes != nil {
		out.WorkNotes = make([]WorkNote, len(t.WorkNotes))
		copy(out.WorkNotes, t.WorkNotes)
	}
	if t.Incident != nil {
		inc := *t.Incident
		inc.ResolvedAt = cloneTime(t.Incident.ResolvedAt)
		inc.ClosedAt = cloneTime(t.Incident.ClosedAt)
		out.Incident = &inc
	}
	if t.Change != nil {
		chg := *t.Change
		chg.ApprovedBy = cloneString(t.Change.ApprovedBy)
		chg.ApprovedAt = cloneTime(t.Change.ApprovedAt)
		chg.ActualStart = cloneTime(t.Change.ActualStart)
		chg.ActualEnd = cloneTime(t.Change.ActualEnd)
		out.Change = &chg
	}
	if t.Maintenance != nil {
		mt := *t.Maintenance
		mt.NextScheduledDate = cloneTime(t.Maintenance.NextScheduledDate)
		mt.ActualStartTime = cloneTime(t.Maintenance.ActualStartTime)
		mt.ActualEndTime = cloneTime(t.Maintenance.ActualEndTime)
		mt.ApprovedBy = cloneString(t.Maintenance.ApprovedBy)
		mt.ApprovedAt = cloneTime(t.Maintenance.ApprovedAt)
		if t.Maintenance.Dependencies != nil {
			mt.Dependencies = make([]string, len(t.Maintenance.Dependencies))
			copy(mt.Dependencies, t.Maintenance.Dependencies)
		}
		out.Maintenance = &mt
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
