package complaints

import (
	"fmt"
	"strings"
)

// Status is a position in the complaint lifecycle.
type Status string

const (
	StatusRaised        Status = "raised"
	StatusInProgress    Status = "in_progress"
	StatusWaitingOnUser Status = "waiting_on_user"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// transitions is the adjacency list of the lifecycle. Anything not listed, including
// self transitions, is illegal. Closed is terminal.
var transitions = map[Status][]Status{
	StatusRaised:        {StatusInProgress, StatusWaitingOnUser},
	StatusInProgress:    {StatusWaitingOnUser, StatusResolved},
	StatusWaitingOnUser: {StatusInProgress, StatusResolved},
	StatusResolved:      {StatusClosed},
	StatusClosed:        {},
}

// Statuses returns every lifecycle status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusRaised, StatusInProgress, StatusWaitingOnUser, StatusResolved, StatusClosed}
}

// ParseStatus normalises raw input into a known Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("complaints: unknown status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is part of the enum.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// InitialStatus returns the status a new complaint of type t starts in. Live demos are
// immediately actionable.
func InitialStatus(t Type) Status {
	if t == TypeLiveDemo {
		return StatusInProgress
	}
	return StatusRaised
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	next := transitions[s]
	if len(next) == 0 {
		return []Status{}
	}
	return append([]Status(nil), next...)
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

// CheckTransition returns a *TransitionError when from -> to is illegal.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
