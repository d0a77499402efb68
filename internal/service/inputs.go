package service

import (
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// TicketBaseInput holds the fields shared by every kind. Enumerations arrive
// as raw strings so bad values surface as field errors.
type TicketBaseInput struct {
	ShortDescription string
	Description      string
	Priority         string
	Category         string
	Subcategory      string
	AssignedTo       *string
	AssignmentGroup  string
}

// IncidentInput describes incident creation payload.
type IncidentInput struct {
	TicketBaseInput
	Urgency           string
	Impact            string
	Caller            string
	CallerEmail       string
	BusinessService   string
	ConfigurationItem string
}

// ChangeRequestInput describes change request creation payload.
type ChangeRequestInput struct {
	TicketBaseInput
	RequestedBy           string
	RequestedByEmail      string
	ScheduledStart        *time.Time
	ScheduledEnd          *time.Time
	EstimatedDuration     string
	BusinessJustification string
	ImplementationPlan    string
	RollbackPlan          string
	TestingPlan           string
	CommunicationPlan     string
	RiskAssessment        string
}

// MaintenanceTaskInput describes maintenance task creation payload.
// ScheduledDate is YYYY-MM-DD, the clock fields are HH:MM.
type MaintenanceTaskInput struct {
	TicketBaseInput
	Type               string
	ScheduledDate      string
	ScheduledStartTime string
	ScheduledEndTime   string
	EstimatedDuration  string
	IsRecurring        bool
	RecurrencePattern  string
	RecurrenceInterval int
	ImpactLevel        string
	RiskLevel          string
	Dependencies       []string
}

// TransitionInput moves a ticket to a new state. Notes become the incident
// resolution notes when resolving.
type TransitionInput struct {
	State string
	Notes string
}

// WorkNoteInput appends a timeline entry.
type WorkNoteInput struct {
	Content  string
	IsPublic bool
}

// ApprovalInput records a sign-off decision.
type ApprovalInput struct {
	Status          string
	RejectionReason string
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	ShortDescription *string
	Description      *string
	Priority         *string
	Category         *string
	Subcategory      *string
	AssignmentGroup  *string

	Urgency           *string
	Impact            *string
	Caller            *string
	CallerEmail       *string
	BusinessService   *string
	ConfigurationItem *string
	IsEscalated       *bool

	RequestedBy           *string
	RequestedByEmail      *string
	ScheduledStart        *time.Time
	ScheduledEnd          *time.Time
	BusinessJustification *string
	ImplementationPlan    *string
	RollbackPlan          *string
	TestingPlan           *string
	CommunicationPlan     *string
	RiskAssessment        *string

	MaintenanceType    *string
	ScheduledDate      *string
	ScheduledStartTime *string
	ScheduledEndTime   *string
	EstimatedDuration  *string
	IsRecurring        *bool
	RecurrencePattern  *string
	RecurrenceInterval *int
	ImpactLevel        *string
	RiskLevel          *string
	Dependencies       []string
}

// Stats summarizes a namespace.
type Stats struct {
	Kind           domain.Kind                   `json:"kind"`
	Total          int                           `json:"total"`
	ByState        map[domain.TicketState]int    `json:"byState"`
	ByPriority     map[domain.Priority]int       `json:"byPriority"`
	ByApproval     map[domain.ApprovalStatus]int `json:"byApproval,omitempty"`
	EscalatedCount int                           `json:"escalatedCount,omitempty"`
	SLABreached    int                           `json:"slaBreached,omitempty"`
}
