// Package tts speaks translated text: synthesis to a WAV file, playback of
// that file, and the single-consumer worker that runs both off the capture path.
package tts

import (
	"context"
	"fmt"

	"github.com/translive/translive/internal/config"
)

// Synthesizer renders text with a voice into a WAV file at outPath
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
	Name() string
}

// HealthChecker is implemented by synthesizers that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SynthesisError reports a failed synthesis for one job
type SynthesisError struct {
	Backend string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (%s): %v", e.Backend, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func synthesisError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &SynthesisError{Backend: backend, Err: err}
}

// New builds the synthesizer selected by SYNTHESIZER_BACKEND
func New(cfg *config.Config) (Synthesizer, error) {
	switch cfg.SynthesizerBackend {
	case config.SynthesizerCoqui:
		return NewCoquiSynthesizer(cfg.CoquiURL, cfg.TargetLanguage), nil
	case config.SynthesizerCartesia:
		return NewCartesiaSynthesizer(cfg.CartesiaAPIKey, cfg.CartesiaModelID, cfg.TargetLanguage), nil
	}
	return nil, fmt.Errorf("unknown synthesizer backend %q", cfg.SynthesizerBackend)
}
