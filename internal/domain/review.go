package domain

import "time"

// Defaults applied to ingested rows when a column is absent or blank.
const (
	DefaultAppName = "Unknown"
	DefaultRating  = "0"
)

// ReviewRecord is the central entity stored in the record store.
type ReviewRecord struct {
	ID        string
	AppName   string
	Text      string
	Rating    string
	Status    Status
	Sentiment *Sentiment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPendingRecord normalizes ingested fields into a fresh PENDING record.
// The id must already be resolved.
func NewPendingRecord(id, appName, text, rating string) ReviewRecord {
	return ReviewRecord{
		ID:      id,
		AppName: orDefault(appName, DefaultAppName),
		Text:    orDefault(text, ""),
		Rating:  orDefault(rating, DefaultRating),
		Status:  StatusPending,
	}
}

// Complete moves the record to COMPLETED with the given sentiment.
func (r *ReviewRecord) Complete(s Sentiment) error {
	if !r.Status.CanTransitionTo(StatusCompleted) {
		if r.Status == StatusCompleted {
			return ErrAlreadyCompleted
		}
		return ErrInvalidTransition
	}
	r.Status = StatusCompleted
	r.Sentiment = &s
	return nil
}

// Image returns the change-feed projection of the record.
func (r ReviewRecord) Image() RecordImage {
	return RecordImage{
		ReviewID:       r.ID,
		AppName:        r.AppName,
		ReviewText:     r.Text,
		Rating:         r.Rating,
		AnalysisStatus: r.Status,
	}
}

// BatchLocator points at a batch file inside the object store.
type BatchLocator struct {
	Bucket string
	Key    string
}

func (b BatchLocator) String() string {
	if b.Bucket == "" {
		return b.Key
	}
	return "gs://" + b.Bucket + "/" + b.Key
}
