package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/translive/translive/internal/resilience"
)

const openAISystemPrompt = "You are a translation engine. Translate the user's text from %s to %s. " +
	"Reply with the translation only. If you cannot translate between these languages, reply exactly: " + UnavailableText

// OpenAITranslator translates with a chat completion model
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAITranslator creates a chat-completion translator. baseURL selects an OpenAI-compatible server.
func NewOpenAITranslator(apiKey, baseURL, model string) *OpenAITranslator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name returns the backend name
func (o *OpenAITranslator) Name() string {
	return "openai"
}

// Translate asks the model for a translation
func (o *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(openAISystemPrompt, source, target)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", translationError(o.Name(), classifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", translationError(o.Name(), errors.New("empty completion"))
	}
	return CheckSentinel(resp.Choices[0].Message.Content)
}

// Ping lists models to verify credentials and reachability
func (o *OpenAITranslator) Ping(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return err
}

// classifyOpenAIError marks rate limiting and server errors as retryable
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return resilience.NewRetryableError(err)
		}
		return err
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && (reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500) {
		return resilience.NewRetryableError(err)
	}
	return err
}
