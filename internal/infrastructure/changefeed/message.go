package changefeed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"ReviewMind/internal/domain"
)

// Stream field names.
const (
	FieldEventKind = "event_kind"
	FieldNewImage  = "new_image"
	FieldAttempt   = "attempt"
	FieldBucket    = "bucket"
	FieldKey       = "key"
	FieldLastError = "last_error"
	FieldError     = "error"
)

// Message is one stream entry with its delivery attempt.
type Message struct {
	ID      string
	Attempt int
	Values  map[string]any
}

// ParseMessage extracts the attempt counter from a raw stream entry.
func ParseMessage(raw redis.XMessage) (Message, error) {
	attempt, err := parseOptionalInt(raw.Values, FieldAttempt)
	if err != nil {
		return Message{}, err
	}
	if attempt <= 0 {
		attempt = 1
	}
	return Message{ID: raw.ID, Attempt: attempt, Values: raw.Values}, nil
}

// DecodeChangeEvent builds a typed change event. A missing image is allowed
// here and rejected later by the dispatcher for the kinds that need one.
func DecodeChangeEvent(msg Message) (domain.ChangeEvent, error) {
	kind := domain.NormalizeEventKind(optionalString(msg.Values, FieldEventKind))
	if kind == "" {
		return domain.ChangeEvent{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedEvent, FieldEventKind)
	}

	event := domain.ChangeEvent{ID: msg.ID, Kind: kind}

	rawImage := strings.TrimSpace(optionalString(msg.Values, FieldNewImage))
	if rawImage == "" || rawImage == "null" {
		return event, nil
	}

	var image domain.RecordImage
	if err := json.Unmarshal([]byte(rawImage), &image); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: decode %s: %v", domain.ErrMalformedEvent, FieldNewImage, err)
	}
	image.ReviewID = strings.TrimSpace(image.ReviewID)
	image.AnalysisStatus = domain.Status(strings.ToUpper(strings.TrimSpace(string(image.AnalysisStatus))))
	event.NewImage = &image

	return event, nil
}

// DecodeBatchLocator reads the bucket and key of a batch trigger.
func DecodeBatchLocator(msg Message) (domain.BatchLocator, error) {
	loc := domain.BatchLocator{
		Bucket: strings.TrimSpace(optionalString(msg.Values, FieldBucket)),
		Key:    strings.TrimSpace(optionalString(msg.Values, FieldKey)),
	}
	if loc.Key == "" {
		return domain.BatchLocator{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedEvent, FieldKey)
	}
	return loc, nil
}

func optionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return ""
	}
	return fmt.Sprint(raw)
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}
