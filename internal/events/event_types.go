package events

import (
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStateChanged  EventType = "ticket_state_changed"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketWorkNoteAdded EventType = "ticket_work_note_added"
	EventTicketApproval      EventType = "ticket_approval_changed"
	EventMaintenanceDue      EventType = "maintenance_due"
)

// Actor identifies who triggered an event. System jobs leave AdminID empty.
type Actor struct {
	AdminID string `json:"admin_id,omitempty"`
	Name    string `json:"name,omitempty"`
	System  bool   `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Kind      domain.Kind `json:"kind"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority         domain.Priority    `json:"priority"`
	State            domain.TicketState `json:"state"`
	ShortDescription string             `json:"short_description"`
	AssignmentGroup  string             `json:"assignment_group"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
	Notes    string             `json:"notes,omitempty"`
}

// TicketUpdatedPayload lists the fields an update touched.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
	Assignee         *string `json:"assignee,omitempty"`
}

// TicketWorkNoteAddedPayload payload.
type TicketWorkNoteAddedPayload struct {
	NoteID      string `json:"note_id"`
	IsPublic    bool   `json:"is_public"`
	BodyPreview string `json:"body_preview"`
}

// TicketApprovalPayload payload.
type TicketApprovalPayload struct {
	Status          domain.ApprovalStatus `json:"status"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
}

// MaintenanceDuePayload payload.
type MaintenanceDuePayload struct {
	StartsAt         time.Time `json:"starts_at"`
	ShortDescription string    `json:"short_description"`
}
