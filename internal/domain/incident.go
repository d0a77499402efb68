package domain

import "time"

// IncidentDetails carries incident-only fields.
type IncidentDetails struct {
	Urgency           Priority   `json:"urgency"`
	Impact            Priority   `json:"impact"`
	Caller            string     `json:"caller"`
	CallerEmail       string     `json:"callerEmail"`
	BusinessService   string     `json:"businessService,omitempty"`
	ConfigurationItem string     `json:"configurationItem,omitempty"`
	SLADue            time.Time  `json:"slaDue"`
	IsEscalated       bool       `json:"isEscalated"`
	ResolutionNotes   string     `json:"resolutionNotes,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
}

// SLABreached reports whether an open incident is past its SLA deadline.
func (d *IncidentDetails) SLABreached(state TicketState, now time.Time) bool {
	if d == nil || d.SLADue.IsZero() {
		return false
	}
	switch state {
	case StateResolved, StateClosed, StateCancelled:
		return false
	}
	return now.After(d.SLADue)
}
