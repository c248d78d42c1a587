// Package translate converts recognized text from the source to the target language.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/resilience"
)

// UnavailableText is returned in place of a translation by backends that lack the language pair
const UnavailableText = "Translation model not available."

// ErrUnavailable reports that the requested language pair is not installed
var ErrUnavailable = errors.New("translation unavailable")

// Translator translates text between two language codes
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	Name() string
}

// PairChecker is implemented by translators that can list their installed language pairs
type PairChecker interface {
	CheckPair(ctx context.Context, source, target string) error
}

// HealthChecker is implemented by translators that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TranslationError reports a failed translation for one utterance
type TranslationError struct {
	Backend string
	Err     error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed (%s): %v", e.Backend, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func translationError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &TranslationError{Backend: backend, Err: err}
}

// CheckSentinel converts the in-band "not available" reply into ErrUnavailable
func CheckSentinel(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == UnavailableText {
		return "", ErrUnavailable
	}
	return text, nil
}

// Language is one installed source language and the targets it can translate to
type Language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name,omitempty"`
	Targets []string `json:"targets"`
}

// pairAvailable reports whether languages contain source -> target
func pairAvailable(languages []Language, source, target string) bool {
	for _, l := range languages {
		if l.Code != source {
			continue
		}
		for _, t := range l.Targets {
			if t == target {
				return true
			}
		}
	}
	return false
}

// Preflight verifies the configured pair before the pipeline starts.
// A missing pair is a *config.MissingResourceError.
func Preflight(ctx context.Context, t Translator, source, target string) error {
	pc, ok := t.(PairChecker)
	if !ok {
		return nil
	}
	if err := pc.CheckPair(ctx, source, target); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return &config.MissingResourceError{Resource: fmt.Sprintf("translation pair %s->%s", source, target), Err: err}
		}
		return err
	}
	return nil
}

// New builds the translator selected by TRANSLATOR_BACKEND
func New(cfg *config.Config) (Translator, error) {
	switch cfg.TranslatorBackend {
	case config.TranslatorLibre:
		return NewLibreTranslator(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey), nil
	case config.TranslatorGRPC:
		return NewGRPCTranslator(cfg.TranslatorGRPCAddr, cfg.TranslatorGRPCTLS)
	case config.TranslatorOpenAI:
		return NewOpenAITranslator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITranslateModel), nil
	}
	return nil, fmt.Errorf("unknown translator backend %q", cfg.TranslatorBackend)
}

// NewGuardedFromConfig wraps t with the circuit breaker and retry settings from cfg
func NewGuardedFromConfig(t Translator, cfg *config.Config) Translator {
	breaker := resilience.NewCircuitBreaker(
		"translator_"+t.Name(),
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond
	return NewGuarded(t, resilience.NewGuard(breaker, retry))
}

// Guarded runs an inner translator through a resilience guard
type Guarded struct {
	inner Translator
	guard *resilience.Guard
}

// NewGuarded wraps t with guard
func NewGuarded(t Translator, guard *resilience.Guard) *Guarded {
	return &Guarded{inner: t, guard: guard}
}

// Translate calls the inner translator under the guard
func (g *Guarded) Translate(ctx context.Context, text, source, target string) (string, error) {
	var out string
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Translate(ctx, text, source, target)
		return err
	})
	if err != nil {
		var tErr *TranslationError
		if !errors.As(err, &tErr) && !errors.Is(err, ErrUnavailable) {
			err = translationError(g.inner.Name(), err)
		}
		return "", err
	}
	return out, nil
}

// Name returns the inner translator name
func (g *Guarded) Name() string {
	return g.inner.Name()
}

// CheckPair forwards to the inner translator when supported
func (g *Guarded) CheckPair(ctx context.Context, source, target string) error {
	if pc, ok := g.inner.(PairChecker); ok {
		return pc.CheckPair(ctx, source, target)
	}
	return nil
}

// Ping forwards to the inner translator when supported
func (g *Guarded) Ping(ctx context.Context) error {
	if hc, ok := g.inner.(HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close releases the inner translator's connection when it holds one
func (g *Guarded) Close() error {
	if c, ok := g.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
