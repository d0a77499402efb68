package workflow

import (
	"slices"
	"strings"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// Machine is the transition table of one ticket kind.
type Machine struct {
	Initial     domain.TicketState
	States      []domain.TicketState
	Transitions map[domain.TicketState][]domain.TicketState
}

// Forward steps are single-step only; Cancelled is the one side exit.
var machines = map[domain.Kind]Machine{
	domain.KindIncident: {
		Initial: domain.StateNew,
		States: []domain.TicketState{
			domain.StateNew, domain.StateInProgress, domain.StateResolved, domain.StateClosed, domain.StateCancelled,
		},
		Transitions: map[domain.TicketState][]domain.TicketState{
			domain.StateNew:        {domain.StateInProgress, domain.StateCancelled},
			domain.StateInProgress: {domain.StateResolved, domain.StateCancelled},
			domain.StateResolved:   {domain.StateClosed},
			domain.StateClosed:     {},
			domain.StateCancelled:  {},
		},
	},
	domain.KindChangeRequest: {
		Initial: domain.StateNew,
		States: []domain.TicketState{
			domain.StateNew, domain.StateScheduled, domain.StateInProgress, domain.StateCompleted,
			domain.StateClosed, domain.StateCancelled,
		},
		Transitions: map[domain.TicketState][]domain.TicketState{
			domain.StateNew:        {domain.StateScheduled, domain.StateCancelled},
			domain.StateScheduled:  {domain.StateInProgress, domain.StateCancelled},
			domain.StateInProgress: {domain.StateCompleted, domain.StateCancelled},
			domain.StateCompleted:  {domain.StateClosed, domain.StateCancelled},
			domain.StateClosed:     {},
			domain.StateCancelled:  {},
		},
	},
	domain.KindMaintenanceTask: {
		Initial: domain.StateScheduled,
		States: []domain.TicketState{
			domain.StatePending, domain.StateScheduled, domain.StateInProgress, domain.StateCompleted, domain.StateCancelled,
		},
		Transitions: map[domain.TicketState][]domain.TicketState{
			domain.StatePending:    {domain.StateScheduled, domain.StateCancelled},
			domain.StateScheduled:  {domain.StateInProgress, domain.StatePending, domain.StateCancelled},
			domain.StateInProgress: {domain.StateCompleted, domain.StateCancelled},
			domain.StateCompleted:  {},
			domain.StateCancelled:  {},
		},
	},
}

// For returns the machine of a kind.
func For(kind domain.Kind) (Machine, bool) {
	m, ok := machines[kind]
	return m, ok
}

// InitialState returns the state new tickets of the kind start in.
func InitialState(kind domain.Kind) domain.TicketState {
	return machines[kind].Initial
}

// CanTransition returns true if from → to is in the kind's table.
func CanTransition(kind domain.Kind, from, to domain.TicketState) bool {
	m, ok := machines[kind]
	if !ok {
		return false
	}
	return slices.Contains(m.Transitions[from], to)
}

// ValidateTransition returns an INVALID_TRANSITION error when the move is not allowed.
func ValidateTransition(kind domain.Kind, from, to domain.TicketState) error {
	if !CanTransition(kind, from, to) {
		return apperrors.NewInvalidTransition(string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether no transition leaves the state.
func IsTerminal(kind domain.Kind, state domain.TicketState) bool {
	m, ok := machines[kind]
	if !ok {
		return false
	}
	next, known := m.Transitions[state]
	return known && len(next) == 0
}

// NextStates lists the states reachable from the current one.
func NextStates(kind domain.Kind, from domain.TicketState) []domain.TicketState {
	return slices.Clone(machines[kind].Transitions[from])
}

// ParseState resolves a state name for the kind, accepting case and separator variants
// ("in-progress", "in_progress", "IN PROGRESS").
func ParseState(kind domain.Kind, s string) (domain.TicketState, bool) {
	m, ok := machines[kind]
	if !ok {
		return "", false
	}
	norm := normalize(s)
	for _, state := range m.States {
		if normalize(string(state)) == norm {
			return state, true
		}
	}
	return "", false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
