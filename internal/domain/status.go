package domain

import (
	"fmt"
	"strings"
)

// Status enumerates the analysis lifecycle of a review.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus accepts any casing and rejects unknown values.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown analysis status %q", raw)
	}
}

// CanTransitionTo reports whether s may move to next.
// PENDING -> COMPLETED is the only edge; COMPLETED is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next == StatusCompleted
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}
