package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ReviewMind/internal/classifier"
	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
)

// ProviderName identifies the HTTP inference backend in the classifier registry.
const ProviderName = "http"

// Client talks to an external inference service for sentiment detection.
type Client struct {
	endpoint string
	apiKey   string
	language string
	http     *http.Client
}

var _ classifier.Provider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.ClassifierConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		language: language,
		http:     &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider inside the registry.
func (c *Client) Name() string {
	return ProviderName
}

type sentimentResponse struct {
	Sentiment      string        `json:"sentiment"`
	Label          string        `json:"label"`
	SentimentScore *scorePayload `json:"sentiment_score"`
	Scores         *scorePayload `json:"scores"`
}

type scorePayload struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// Classify posts the review text and validates the returned label and scores.
func (c *Client) Classify(ctx context.Context, text string) (domain.Sentiment, error) {
	if c.endpoint == "" {
		return domain.Sentiment{}, fmt.Errorf("sentiment endpoint is not configured")
	}

	payload := map[string]any{
		"text":          classifier.PlainText(text),
		"language_code": c.language,
	}

	var resp sentimentResponse
	if err := c.post(ctx, "/sentiment", payload, &resp); err != nil {
		return domain.Sentiment{}, err
	}

	label := resp.Sentiment
	if label == "" {
		label = resp.Label
	}
	scores := resp.SentimentScore
	if scores == nil {
		scores = resp.Scores
	}
	if scores == nil {
		return domain.Sentiment{}, fmt.Errorf("%w: response has no scores", domain.ErrInvalidScores)
	}

	return domain.NewSentiment(label, scores.Positive, scores.Negative, scores.Neutral, scores.Mixed)
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
