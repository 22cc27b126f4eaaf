package domain

import (
	"strings"
	"time"
)

// DefaultArtifactKeyTemplate places artifacts under processed/.
const DefaultArtifactKeyTemplate = "processed/review_{review_id}.json"

const artifactIDPlaceholder = "{review_id}"

// ArtifactKey derives the object key for a review's artifact.
func ArtifactKey(template, reviewID string) string {
	if template == "" {
		template = DefaultArtifactKeyTemplate
	}
	return strings.ReplaceAll(template, artifactIDPlaceholder, reviewID)
}

// Artifact is the flattened JSON document written after enrichment.
type Artifact struct {
	ReviewID   string  `json:"review_id"`
	ReviewText string  `json:"review_text"`
	Sentiment  Label   `json:"sentiment"`
	Positive   float64 `json:"sentiment_score.positive"`
	Negative   float64 `json:"sentiment_score.negative"`
	Neutral    float64 `json:"sentiment_score.neutral"`
	Mixed      float64 `json:"sentiment_score.mixed"`
	Timestamp  int64   `json:"timestamp"`
}

// NewArtifact flattens a sentiment into the artifact layout.
func NewArtifact(reviewID, text string, s Sentiment, at time.Time) Artifact {
	return Artifact{
		ReviewID:   reviewID,
		ReviewText: text,
		Sentiment:  s.Label,
		Positive:   s.Scores.Positive,
		Negative:   s.Scores.Negative,
		Neutral:    s.Scores.Neutral,
		Mixed:      s.Scores.Mixed,
		Timestamp:  at.Unix(),
	}
}
