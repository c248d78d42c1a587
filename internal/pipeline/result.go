package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/resilience"
	"github.com/translive/translive/internal/stt"
	"github.com/translive/translive/internal/translate"
	"github.com/translive/translive/internal/tts"
)

// Outcome is the final state of one utterance
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeSkippedEmptyAudio Outcome = "skipped_empty_audio"
	OutcomeSkippedEmptyText  Outcome = "skipped_empty_text"
	OutcomeFailed            Outcome = "failed"
)

// Stage names, also used as metric labels
const (
	StagePersist    = "persist"
	StageRecognize  = "recognize"
	StageNormalize  = "normalize"
	StageTranslate  = "translate"
	StageTranscript = "transcript"
	StageSpeak      = "speak"
)

// Result is the per-utterance record of how far the pipeline got.
// Stage is the last stage attempted; Err is set only when Outcome is OutcomeFailed.
type Result struct {
	UtteranceID string
	Outcome     Outcome
	Stage       string
	Err         error
	SourceText  string
	TargetText  string
	Elapsed     time.Duration
}

// OK reports whether the utterance produced a translation
func (r Result) OK() bool {
	return r.Outcome == OutcomeCompleted
}

// PanicError is a panic recovered while processing one utterance
type PanicError struct {
	Stage string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s stage: %v", e.Stage, e.Value)
}

// Error kinds returned by Classify
const (
	KindRecognition            = "recognition"
	KindTranslationUnavailable = "translation_unavailable"
	KindTranslation            = "translation"
	KindSynthesis              = "synthesis"
	KindMissingResource        = "missing_resource"
	KindSpeechQueueFull        = "speech_queue_full"
	KindCircuitOpen            = "circuit_open"
	KindPanic                  = "panic"
	KindTimeout                = "timeout"
	KindCanceled               = "canceled"
	KindUnknown                = "unknown"
)

// Classify maps an error to a short kind label for logs and metrics
func Classify(err error) string {
	var (
		recErr      *stt.RecognitionError
		transErr    *translate.TranslationError
		synthErr    *tts.SynthesisError
		resourceErr *config.MissingResourceError
		panicErr    *PanicError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &panicErr):
		return KindPanic
	case errors.As(err, &resourceErr):
		return KindMissingResource
	case errors.Is(err, translate.ErrUnavailable):
		return KindTranslationUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, resilience.ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, tts.ErrQueueFull):
		return KindSpeechQueueFull
	case errors.As(err, &recErr):
		return KindRecognition
	case errors.As(err, &transErr):
		return KindTranslation
	case errors.As(err, &synthErr):
		return KindSynthesis
	}
	return KindUnknown
}
