package domain

import "strings"

// EventKind names the change that produced an event.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventModify EventKind = "MODIFY"
	EventRemove EventKind = "REMOVE"
)

// NormalizeEventKind upper-cases the raw kind; unknown kinds are kept as-is.
func NormalizeEventKind(raw string) EventKind {
	return EventKind(strings.ToUpper(strings.TrimSpace(raw)))
}

// TriggersEnrichment reports whether the kind is an insert or a modify.
func (k EventKind) TriggersEnrichment() bool {
	return k == EventInsert || k == EventModify
}

// RecordImage is the post-change snapshot of a review carried by an event.
type RecordImage struct {
	ReviewID       string `json:"review_id"`
	AppName        string `json:"app_name,omitempty"`
	ReviewText     string `json:"review_text"`
	Rating         string `json:"rating,omitempty"`
	AnalysisStatus Status `json:"analysis_status"`
}

// ChangeEvent is one notification from the change feed.
type ChangeEvent struct {
	ID       string
	Kind     EventKind
	NewImage *RecordImage
}

// OutcomeKind tags what happened to a single row or event.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeIgnored   OutcomeKind = "ignored"
	OutcomeFailed    OutcomeKind = "failed"
)

// EventOutcome is the per-event result of an enrichment dispatch.
type EventOutcome struct {
	EventID  string
	ReviewID string
	Kind     OutcomeKind
	Err      error
}

// Failed reports whether the event needs attention or redelivery.
func (o EventOutcome) Failed() bool {
	return o.Err != nil
}
