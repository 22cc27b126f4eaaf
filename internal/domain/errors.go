package domain

import "errors"

var (
	ErrNotFound          = errors.New("review not found")
	ErrAlreadyCompleted  = errors.New("review already completed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMalformedEvent    = errors.New("malformed change event")
	ErrClassification    = errors.New("sentiment classification failed")
	ErrArtifactWrite     = errors.New("artifact write failed")
	ErrInvalidScores     = errors.New("invalid sentiment scores")
)
