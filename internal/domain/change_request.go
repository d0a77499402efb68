package domain

import "time"

// RiskAssessment grades planned change risk.
type RiskAssessment string

const (
	RiskLow      RiskAssessment = "Low"
	RiskMedium   RiskAssessment = "Medium"
	RiskHigh     RiskAssessment = "High"
	RiskCritical RiskAssessment = "Critical"
)

// Valid reports whether r is a known risk grade.
func (r RiskAssessment) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// EstimatedDurations are the accepted planning estimates.
var EstimatedDurations = []string{
	"30 minutes", "1 hour", "2 hours", "4 hours", "8 hours", "1 day", "2 days", "1 week",
}

// ChangeDetails carries change-request-only fields.
type ChangeDetails struct {
	RequestedBy           string         `json:"requestedBy"`
	RequestedByEmail      string         `json:"requestedByEmail"`
	ScheduledStart        time.Time      `json:"scheduledStart"`
	ScheduledEnd          time.Time      `json:"scheduledEnd"`
	EstimatedDuration     string         `json:"estimatedDuration,omitempty"`
	BusinessJustification string         `json:"businessJustification"`
	ImplementationPlan    string         `json:"implementationPlan"`
	RollbackPlan          string         `json:"rollbackPlan"`
	TestingPlan           string         `json:"testingPlan,omitempty"`
	CommunicationPlan     string         `json:"communicationPlan,omitempty"`
	RiskAssessment        RiskAssessment `json:"riskAssessment"`
	ApprovalStatus        ApprovalStatus `json:"approvalStatus"`
	ApprovedBy            *string        `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason       string         `json:"rejectionReason,omitempty"`
	ActualStart           *time.Time     `json:"actualStart,omitempty"`
	ActualEnd             *time.Time     `json:"actualEnd,omitempty"`
	ActualDuration        string         `json:"actualDuration,omitempty"`
}
