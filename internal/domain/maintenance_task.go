package domain

import (
	"fmt"
	"time"
)

// MaintenanceType classifies upkeep work.
type MaintenanceType string

const (
	MaintenanceScheduled  MaintenanceType = "Scheduled"
	MaintenanceEmergency  MaintenanceType = "Emergency"
	MaintenancePreventive MaintenanceType = "Preventive"
	MaintenanceCorrective MaintenanceType = "Corrective"
	MaintenanceUpgrade    MaintenanceType = "Upgrade"
	MaintenanceSecurity   MaintenanceType = "Security"
)

// Valid reports whether t is a known maintenance type.
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceScheduled, MaintenanceEmergency, MaintenancePreventive,
		MaintenanceCorrective, MaintenanceUpgrade, MaintenanceSecurity:
		return true
	}
	return false
}

// RecurrencePattern controls how often a recurring task repeats.
type RecurrencePattern string

const (
	RecurDaily     RecurrencePattern = "Daily"
	RecurWeekly    RecurrencePattern = "Weekly"
	RecurMonthly   RecurrencePattern = "Monthly"
	RecurQuarterly RecurrencePattern = "Quarterly"
	RecurYearly    RecurrencePattern = "Yearly"
)

// Valid reports whether p is a known recurrence pattern.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurQuarterly, RecurYearly:
		return true
	}
	return false
}

// Next advances date by interval periods of the pattern.
func (p RecurrencePattern) Next(date time.Time, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("recurrence interval must be positive, got %d", interval)
	}
	switch p {
	case RecurDaily:
		return date.AddDate(0, 0, interval), nil
	case RecurWeekly:
		return date.AddDate(0, 0, 7*interval), nil
	case RecurMonthly:
		return date.AddDate(0, interval, 0), nil
	case RecurQuarterly:
		return date.AddDate(0, 3*interval, 0), nil
	case RecurYearly:
		return date.AddDate(interval, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence pattern %q", p)
	}
}

// Level is a three-step impact or risk grade.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// DateLayout and ClockLayout are the wire formats for maintenance scheduling.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// MaintenanceDetails carries maintenance-task-only fields. The task status lives in Ticket.State.
type MaintenanceDetails struct {
	Type               MaintenanceType   `json:"type"`
	ScheduledDate      time.Time         `json:"scheduledDate"`
	ScheduledStartTime string            `json:"scheduledStartTime"`
	ScheduledEndTime   string            `json:"scheduledEndTime"`
	EstimatedDuration  string            `json:"estimatedDuration,omitempty"`
	IsRecurring        bool              `json:"isRecurring"`
	RecurrencePattern  RecurrencePattern `json:"recurrencePattern,omitempty"`
	RecurrenceInterval int               `json:"recurrenceInterval,omitempty"`
	NextScheduledDate  *time.Time        `json:"nextScheduledDate,omitempty"`
	ImpactLevel        Level             `json:"impactLevel"`
	RiskLevel          Level             `json:"riskLevel"`
	Dependencies       []string          `json:"dependencies"`
	ApprovalStatus     ApprovalStatus    `json:"approvalStatus"`
	ApprovedBy         *string           `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time        `json:"approvedAt,omitempty"`
	RejectionReason    string            `json:"rejectionReason,omitempty"`
	ActualStartTime    *time.Time        `json:"actualStartTime,omitempty"`
	ActualEndTime      *time.Time        `json:"actualEndTime,omitempty"`
	ActualDuration     string            `json:"actualDuration,omitempty"`
}

// WindowStart returns the scheduled start instant in the location of ScheduledDate.
func (d *MaintenanceDetails) WindowStart() (time.Time, error) {
	return combineDateClock(d.ScheduledDate, d.ScheduledStartTime)
}

// WindowEnd returns the scheduled end instant in the location of ScheduledDate.
func (d *MaintenanceDetails) WindowEnd() (time.Time, error) {
	return combineDateClock(d.ScheduledDate, d.ScheduledEndTime)
}

func combineDateClock(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, day := date.Date()
	return time.Date(y, m, day, parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}

// FormatDuration renders an elapsed span as "Xh Ym".
func FormatDuration(start, end time.Time) string {
	diff := end.Sub(start)
	if diff < 0 {
		diff = 0
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
