package service

import (
	"time"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
)

// SLAPolicy computes incident resolution deadlines.
type SLAPolicy interface {
	Due(openedAt time.Time, priority domain.Priority) time.Time
	// PriorityBound reports whether the deadline depends on priority.
	PriorityBound() bool
}

type fixedSLA struct {
	window time.Duration
}

func (p fixedSLA) Due(openedAt time.Time, _ domain.Priority) time.Time {
	return openedAt.Add(p.window)
}

func (fixedSLA) PriorityBound() bool { return false }

type prioritySLA struct {
	windows  map[domain.Priority]time.Duration
	fallback time.Duration
}

func (p prioritySLA) Due(openedAt time.Time, priority domain.Priority) time.Time {
	window, ok := p.windows[priority]
	if !ok {
		window = p.fallback
	}
	return openedAt.Add(window)
}

func (prioritySLA) PriorityBound() bool { return true }

// NewSLAPolicy returns the configured policy: "fixed" (one window for every
// incident) or "priority" (4h/8h/24h/72h by priority).
func NewSLAPolicy(cfg config.TicketsConfig) SLAPolicy {
	fixed := time.Duration(cfg.SLAFixedHours) * time.Hour
	if fixed <= 0 {
		fixed = 24 * time.Hour
	}
	if cfg.SLAPolicy != "priority" {
		return fixedSLA{window: fixed}
	}
	return prioritySLA{
		windows: map[domain.Priority]time.Duration{
			domain.PriorityCritical: 4 * time.Hour,
			domain.PriorityHigh:     8 * time.Hour,
			domain.PriorityMedium:   24 * time.Hour,
			domain.PriorityLow:      72 * time.Hour,
		},
		fallback: fixed,
	}
}
