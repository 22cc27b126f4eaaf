package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ReviewMind/internal/classifier"
	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
)

// ProviderName identifies the chat-completion backend in the classifier registry.
const ProviderName = "openai"

const systemPrompt = `You are a sentiment classifier for app store reviews.
Reply with a single JSON object of the form
{"sentiment":"POSITIVE|NEGATIVE|NEUTRAL|MIXED","scores":{"positive":0,"negative":0,"neutral":0,"mixed":0}}
where the four scores are probabilities that sum to 1.`

// OpenAIClassifier asks a chat model to label review sentiment.
type OpenAIClassifier struct {
	client   *openai.Client
	model    string
	language string
}

var _ classifier.Provider = (*OpenAIClassifier)(nil)

// NewOpenAIClassifier builds a classifier from configuration. Endpoint, when
// set, overrides the API base URL.
func NewOpenAIClassifier(cfg config.ClassifierConfig) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai classifier misconfigured: api key is empty")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClassifier{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}, nil
}

func (c *OpenAIClassifier) Name() string {
	return ProviderName
}

type completionPayload struct {
	Sentiment string `json:"sentiment"`
	Scores    struct {
		Positive float64 `json:"positive"`
		Negative float64 `json:"negative"`
		Neutral  float64 `json:"neutral"`
		Mixed    float64 `json:"mixed"`
	} `json:"scores"`
}

// Classify sends the plain review text and parses the model's JSON answer.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (domain.Sentiment, error) {
	user := classifier.PlainText(text)
	if c.language != "" {
		user = fmt.Sprintf("Language: %s\nReview: %s", c.language, user)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Sentiment{}, errors.New("no response from OpenAI")
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return domain.Sentiment{}, fmt.Errorf("decode completion: %w", err)
	}

	return domain.NewSentiment(
		payload.Sentiment,
		payload.Scores.Positive,
		payload.Scores.Negative,
		payload.Scores.Neutral,
		payload.Scores.Mixed,
	)
}
