package domain

import (
	"fmt"
	"math"
	"strings"
)

// Label is the sentiment class returned by the classifier.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
	LabelMixed    Label = "MIXED"
)

// ParseLabel normalizes casing and rejects labels outside the fixed set.
func ParseLabel(raw string) (Label, error) {
	switch l := Label(strings.ToUpper(strings.TrimSpace(raw))); l {
	case LabelPositive, LabelNegative, LabelNeutral, LabelMixed:
		return l, nil
	default:
		return "", fmt.Errorf("%w: unknown label %q", ErrInvalidScores, raw)
	}
}

// ScoreTolerance bounds how far a normalized score vector may drift from 1.0.
const ScoreTolerance = 1e-6

// Scores holds one probability per sentiment category.
type Scores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// NewScores validates raw classifier output and rescales it to sum to 1.
func NewScores(positive, negative, neutral, mixed float64) (Scores, error) {
	raw := [4]float64{positive, negative, neutral, mixed}
	var sum float64
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Scores{}, fmt.Errorf("%w: %v", ErrInvalidScores, raw)
		}
		sum += v
	}
	if sum == 0 {
		return Scores{}, fmt.Errorf("%w: all scores are zero", ErrInvalidScores)
	}
	return Scores{
		Positive: positive / sum,
		Negative: negative / sum,
		Neutral:  neutral / sum,
		Mixed:    mixed / sum,
	}, nil
}

// Sum returns the total of the four scores.
func (s Scores) Sum() float64 {
	return s.Positive + s.Negative + s.Neutral + s.Mixed
}

// Valid reports whether the vector is non-negative and sums to 1 within tolerance.
func (s Scores) Valid() bool {
	for _, v := range []float64{s.Positive, s.Negative, s.Neutral, s.Mixed} {
		if math.IsNaN(v) || v < 0 {
			return false
		}
	}
	return math.Abs(s.Sum()-1) <= ScoreTolerance
}

// Sentiment is a validated classification result.
type Sentiment struct {
	Label  Label
	Scores Scores
}

// NewSentiment combines a raw label with raw scores.
func NewSentiment(label string, positive, negative, neutral, mixed float64) (Sentiment, error) {
	l, err := ParseLabel(label)
	if err != nil {
		return Sentiment{}, err
	}
	scores, err := NewScores(positive, negative, neutral, mixed)
	if err != nil {
		return Sentiment{}, err
	}
	return Sentiment{Label: l, Scores: scores}, nil
}
