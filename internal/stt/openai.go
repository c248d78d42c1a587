package stt

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/translive/translive/internal/resilience"
)

// OpenAIRecognizer transcribes with the OpenAI audio transcription endpoint.
// Any OpenAI-compatible server works through baseURL.
type OpenAIRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIRecognizer creates an OpenAI transcription recognizer
func NewOpenAIRecognizer(apiKey, baseURL, model, language string) *OpenAIRecognizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIRecognizer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

// Name returns the backend name
func (o *OpenAIRecognizer) Name() string {
	return "openai"
}

// Recognize uploads the WAV file for transcription
func (o *OpenAIRecognizer) Recognize(ctx context.Context, wavPath string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Language: o.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", recognitionError(o.Name(), classifyOpenAIError(err))
	}
	return strings.TrimSpace(resp.Text), nil
}

// Ping lists models to verify credentials and reachability
func (o *OpenAIRecognizer) Ping(ctx context.Context) error {
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
