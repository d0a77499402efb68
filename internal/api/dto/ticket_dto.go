package dto

import (
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// TicketBaseRequest carries the fields shared by every kind.
type TicketBaseRequest struct {
	ShortDescription string  `json:"shortDescription"`
	Description      string  `json:"description"`
	Priority         string  `json:"priority"`
	Category         string  `json:"category"`
	Subcategory      string  `json:"subcategory"`
	AssignedTo       *string `json:"assignedTo"`
	AssignmentGroup  string  `json:"assignmentGroup"`
}

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	TicketBaseRequest
	Urgency           string `json:"urgency"`
	Impact            string `json:"impact"`
	Caller            string `json:"caller"`
	CallerEmail       string `json:"callerEmail"`
	BusinessService   string `json:"businessService"`
	ConfigurationItem string `json:"configurationItem"`
}

// CreateChangeRequestRequest payload. Times are RFC 3339.
type CreateChangeRequestRequest struct {
	TicketBaseRequest
	RequestedBy           string     `json:"requestedBy"`
	RequestedByEmail      string     `json:"requestedByEmail"`
	ScheduledStart        *time.Time `json:"scheduledStart"`
	ScheduledEnd          *time.Time `json:"scheduledEnd"`
	EstimatedDuration     string     `json:"estimatedDuration"`
	BusinessJustification string     `json:"businessJustification"`
	ImplementationPlan    string     `json:"implementationPlan"`
	RollbackPlan          string     `json:"rollbackPlan"`
	TestingPlan           string     `json:"testingPlan"`
	CommunicationPlan     string     `json:"communicationPlan"`
	RiskAssessment        string     `json:"riskAssessment"`
}

// CreateMaintenanceTaskRequest payload. scheduledDate is YYYY-MM-DD, clock fields HH:MM.
type CreateMaintenanceTaskRequest struct {
	TicketBaseRequest
	Type               string   `json:"type"`
	ScheduledDate      string   `json:"scheduledDate"`
	ScheduledStartTime string   `json:"scheduledStartTime"`
	ScheduledEndTime   string   `json:"scheduledEndTime"`
	EstimatedDuration  string   `json:"estimatedDuration"`
	IsRecurring        bool     `json:"isRecurring"`
	RecurrencePattern  string   `json:"recurrencePattern"`
	RecurrenceInterval int      `json:"recurrenceInterval"`
	ImpactLevel        string   `json:"impactLevel"`
	RiskLevel          string   `json:"riskLevel"`
	Dependencies       []string `json:"dependencies"`
}

// UpdateTicketRequest is a partial update; absent fields stay untouched.
type UpdateTicketRequest struct {
	ShortDescription *string `json:"shortDescription"`
	Description      *string `json:"description"`
	Priority         *string `json:"priority"`
	Category         *string `json:"category"`
	Subcategory      *string `json:"subcategory"`
	AssignmentGroup  *string `json:"assignmentGroup"`

	Urgency           *string `json:"urgency"`
	Impact            *string `json:"impact"`
	Caller            *string `json:"caller"`
	CallerEmail       *string `json:"callerEmail"`
	BusinessService   *string `json:"businessService"`
	ConfigurationItem *string `json:"configurationItem"`
	IsEscalated       *bool   `json:"isEscalated"`

	RequestedBy           *string    `json:"requestedBy"`
	RequestedByEmail      *string    `json:"requestedByEmail"`
	ScheduledStart        *time.Time `json:"scheduledStart"`
	ScheduledEnd          *time.Time `json:"scheduledEnd"`
	BusinessJustification *string    `json:"businessJustification"`
	ImplementationPlan    *string    `json:"implementationPlan"`
	RollbackPlan          *string    `json:"rollbackPlan"`
	TestingPlan           *string    `json:"testingPlan"`
	CommunicationPlan     *string    `json:"communicationPlan"`
	RiskAssessment        *string    `json:"riskAssessment"`

	Type               *string  `json:"type"`
	ScheduledDate      *string  `json:"scheduledDate"`
	ScheduledStartTime *string  `json:"scheduledStartTime"`
	ScheduledEndTime   *string  `json:"scheduledEndTime"`
	EstimatedDuration  *string  `json:"estimatedDuration"`
	IsRecurring        *bool    `json:"isRecurring"`
	RecurrencePattern  *string  `json:"recurrencePattern"`
	RecurrenceInterval *int     `json:"recurrenceInterval"`
	ImpactLevel        *string  `json:"impactLevel"`
	RiskLevel          *string  `json:"riskLevel"`
	Dependencies       []string `json:"dependencies"`
}

// TransitionRequest moves a ticket. Maintenance clients may send status instead of state.
type TransitionRequest struct {
	State  string `json:"state"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// AssignRequest sets or clears (null or "") the assignee.
type AssignRequest struct {
	AssignedTo *string `json:"assignedTo"`
}

// WorkNoteRequest payload.
type WorkNoteRequest struct {
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// ApprovalRequest payload.
type ApprovalRequest struct {
	ApprovalStatus  string `json:"approvalStatus"`
	RejectionReason string `json:"rejectionReason"`
}

// TicketBase is the response shape shared by every kind.
type TicketBase struct {
	ID               string             `json:"id"`
	Kind             domain.Kind        `json:"kind"`
	ShortDescription string             `json:"shortDescription"`
	Description      string             `json:"description"`
	Priority         domain.Priority    `json:"priority"`
	Category         string             `json:"category"`
	Subcategory      string             `json:"subcategory"`
	State            domain.TicketState `json:"state"`
	AssignedTo       *string            `json:"assignedTo"`
	AssignmentGroup  string             `json:"assignmentGroup"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	WorkNotes        []domain.WorkNote  `json:"workNotes"`
}

// IncidentResponse flattens incident details into the ticket.
type IncidentResponse struct {
	TicketBase
	*domain.IncidentDetails
	SLABreached bool `json:"slaBreached"`
}

// ChangeRequestResponse flattens change details into the ticket.
type ChangeRequestResponse struct {
	TicketBase
	*domain.ChangeDetails
}

// MaintenanceTaskResponse flattens maintenance details into the ticket and
// mirrors state as status.
type MaintenanceTaskResponse struct {
	TicketBase
	*domain.MaintenanceDetails
	Status domain.TicketState `json:"status"`
}

// ListResponse is one page of tickets.
type ListResponse struct {
	Items      []any `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
	Total      int   `json:"total"`
}
