// Package stt turns a recorded utterance into source-language text.
//
// Backends receive the path of a mono 16-bit WAV file written by the pipeline
// and return the raw transcript. Every backend failure is a *RecognitionError.
package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/resilience"
)

// Recognizer transcribes a WAV file
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) (string, error)
	Name() string
}

// HealthChecker is implemented by recognizers that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RecognitionError reports a failed transcription for one utterance
type RecognitionError struct {
	Backend string
	Err     error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed (%s): %v", e.Backend, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

func recognitionError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &RecognitionError{Backend: backend, Err: err}
}

// New builds the recognizer selected by RECOGNIZER_BACKEND
func New(cfg *config.Config) (Recognizer, error) {
	switch cfg.RecognizerBackend {
	case config.RecognizerWhisper:
		return NewWhisperRecognizer(cfg.WhisperURL, cfg.WhisperModel, cfg.SourceLanguage), nil
	case config.RecognizerOpenAI:
		return NewOpenAIRecognizer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITranscribeModel, cfg.SourceLanguage), nil
	case config.RecognizerDeepgram:
		return NewDeepgramRecognizer(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.SourceLanguage), nil
	}
	return nil, fmt.Errorf("unknown recognizer backend %q", cfg.RecognizerBackend)
}

// NewGuardedFromConfig wraps r with the circuit breaker and retry settings from cfg
func NewGuardedFromConfig(r Recognizer, cfg *config.Config) Recognizer {
	breaker := resilience.NewCircuitBreaker(
		"recognizer_"+r.Name(),
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond
	return NewGuarded(r, resilience.NewGuard(breaker, retry))
}

// Guarded runs an inner recognizer through a resilience guard
type Guarded struct {
	inner Recognizer
	guard *resilience.Guard
}

// NewGuarded wraps r with guard
func NewGuarded(r Recognizer, guard *resilience.Guard) *Guarded {
	return &Guarded{inner: r, guard: guard}
}

// Recognize calls the inner recognizer under the guard
func (g *Guarded) Recognize(ctx context.Context, wavPath string) (string, error) {
	var text string
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = g.inner.Recognize(ctx, wavPath)
		return err
	})
	if err != nil {
		if _, ok := err.(*RecognitionError); !ok {
			err = recognitionError(g.inner.Name(), err)
		}
		return "", err
	}
	return text, nil
}

// Name returns the inner recognizer name
func (g *Guarded) Name() string {
	return g.inner.Name()
}

// Ping forwards to the inner recognizer when it supports health checks
func (g *Guarded) Ping(ctx context.Context) error {
	if hc, ok := g.inner.(HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}
