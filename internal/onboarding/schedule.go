// Package onboarding defines the onboarding stages and the escalating reminder schedule
// attached to each stage.
package onboarding

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StageComplete is the terminal stage; users at or above it get no reminders.
	StageComplete = 3
	// MaxAssignableStage is the highest stage the manual stage-advance operation accepts.
	MaxAssignableStage = 2
)

// Schedule maps a stage to the elapsed-hour threshold of each reminder level. Index 0 is
// level 1. Stage 2 intentionally repeats 24h for levels 1 and 2, so both fire in the same
// tick once a day has passed.
type Schedule map[int][]float64

// DefaultSchedule returns the production reminder thresholds.
func DefaultSchedule() Schedule {
	return Schedule{
		0: {24, 72, 120},
		1: {12, 24},
		2: {24, 24, 72, 120},
	}
}

// Levels returns the thresholds for stage and whether the stage has a schedule at all.
func (s Schedule) Levels(stage int) ([]float64, bool) {
	levels, ok := s[stage]
	if !ok || len(levels) == 0 {
		return nil, false
	}
	return levels, true
}

// Due returns the 1-based reminder levels of stage whose threshold has been reached after
// elapsed and which are not in sent. Levels come back in ascending order.
func (s Schedule) Due(stage int, elapsed time.Duration, sent map[int]bool) []int {
	levels, ok := s.Levels(stage)
	if !ok {
		return nil
	}

	hours := elapsed.Hours()
	var due []int
	for i, threshold := range levels {
		level := i + 1
		if sent[level] {
			continue
		}
		if hours >= threshold {
			due = append(due, level)
		}
	}
	return due
}

// AnchorPolicy selects the timestamp elapsed time is measured from.
type AnchorPolicy string

const (
	// AnchorSignup measures every stage from the user's creation time.
	AnchorSignup AnchorPolicy = "signup"
	// AnchorStage measures from the moment the user entered the current stage, falling
	// back to the creation time when that is unknown.
	AnchorStage AnchorPolicy = "stage"
)

// ParseAnchorPolicy converts configuration input into an AnchorPolicy. Empty input selects
// AnchorSignup.
func ParseAnchorPolicy(raw string) (AnchorPolicy, error) {
	switch p := AnchorPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return AnchorSignup, nil
	case AnchorSignup, AnchorStage:
		return p, nil
	default:
		return "", fmt.Errorf("onboarding: unknown anchor policy %q", raw)
	}
}

// Anchor picks the reference timestamp for elapsed-time computation.
func (p AnchorPolicy) Anchor(createdAt time.Time, stageStartedAt *time.Time) time.Time {
	if p == AnchorStage && stageStartedAt != nil && !stageStartedAt.IsZero() {
		return *stageStartedAt
	}
	return createdAt
}

// ValidateAssignableStage checks input to the manual stage-advance operation.
func ValidateAssignableStage(stage int) error {
	if stage < 0 || stage > MaxAssignableStage {
		return fmt.Errorf("invalid stage %d: must be between 0 and %d", stage, MaxAssignableStage)
	}
	return nil
}
