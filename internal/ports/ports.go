package ports

import (
	"context"
	"io"
	"time"

	"ReviewMind/internal/domain"
)

// ReviewRepository is the keyed record store for reviews.
type ReviewRepository interface {
	// Upsert writes a PENDING record. Existing records keep their status and
	// sentiment. It returns the record as stored and whether the key was new.
	Upsert(ctx context.Context, record domain.ReviewRecord) (stored domain.ReviewRecord, inserted bool, err error)
	// CompletePending flips a non-COMPLETED record to COMPLETED together with
	// its sentiment in one conditional write.
	CompletePending(ctx context.Context, id string, s domain.Sentiment) (domain.ReviewRecord, error)
	Get(ctx context.Context, id string) (domain.ReviewRecord, error)
	// ListCompleted pages through COMPLETED records ordered by id, after the given id.
	ListCompleted(ctx context.Context, afterID string, limit int) ([]domain.ReviewRecord, error)
	// ListPending pages through PENDING records last written before the cutoff.
	ListPending(ctx context.Context, afterID string, updatedBefore time.Time, limit int) ([]domain.ReviewRecord, error)
}

// ArtifactStore reads batch files and writes derived artifacts.
type ArtifactStore interface {
	Open(ctx context.Context, loc domain.BatchLocator) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Classifier maps text to a sentiment label and four-way score vector.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Sentiment, error)
}

// ChangePublisher emits change events for records written to the store.
type ChangePublisher interface {
	Publish(ctx context.Context, kind domain.EventKind, image domain.RecordImage) error
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
