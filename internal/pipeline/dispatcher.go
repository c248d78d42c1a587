// Package pipeline turns emitted utterances into translations and drives the
// capture queue consumer loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/observability"
	"github.com/translive/translive/internal/stt"
	"github.com/translive/translive/internal/text"
	"github.com/translive/translive/internal/transcript"
	"github.com/translive/translive/internal/translate"
	"github.com/translive/translive/internal/tts"
)

// SpeechSubmitter accepts speech jobs without waiting for them to be spoken
type SpeechSubmitter interface {
	Submit(job tts.Job) error
}

// DispatcherConfig holds the per-utterance settings
type DispatcherConfig struct {
	SourceLanguage string
	TargetLanguage string
	Voice          string
	ScratchPath    string        // WAV handed to the recognizer
	OutputPath     string        // WAV written by the synthesizer
	StageTimeout   time.Duration // Per recognizer/translator call; 0 disables
}

// NewDispatcherConfig extracts the dispatcher settings from cfg
func NewDispatcherConfig(cfg *config.Config) DispatcherConfig {
	return DispatcherConfig{
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		Voice:          cfg.VoiceID,
		ScratchPath:    cfg.ScratchAudioPath,
		OutputPath:     cfg.OutputAudioPath,
		StageTimeout:   cfg.StageTimeoutDuration(),
	}
}

// Dispatcher runs one utterance through recognition, normalization, translation,
// the transcript and the speech queue. It is called from a single goroutine.
type Dispatcher struct {
	config     DispatcherConfig
	recognizer stt.Recognizer
	translator translate.Translator
	normalizer *text.Normalizer
	store      transcript.Store
	speech     SpeechSubmitter
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDispatcher creates a dispatcher. A nil normalizer only deduplicates.
func NewDispatcher(
	cfg DispatcherConfig,
	recognizer stt.Recognizer,
	translator translate.Translator,
	normalizer *text.Normalizer,
	store transcript.Store,
	speech SpeechSubmitter,
) *Dispatcher {
	if normalizer == nil {
		normalizer = text.NewNormalizer(nil)
	}
	return &Dispatcher{
		config:     cfg,
		recognizer: recognizer,
		translator: translator,
		normalizer: normalizer,
		store:      store,
		speech:     speech,
		logger:     observability.WithComponent("dispatcher"),
		now:        time.Now,
	}
}

// Process runs the utterance through every stage and reports how far it got.
// Failures never escape as panics or errors; they are returned in the Result.
func (d *Dispatcher) Process(ctx context.Context, u *audio.Utterance) Result {
	started := time.Now()
	var res Result
	d.processSafely(ctx, u, &res)
	res.Elapsed = time.Since(started)

	logger := d.logger.With().Str("utterance_id", res.UtteranceID).Logger()
	switch res.Outcome {
	case OutcomeCompleted:
		logger.Info().
			Str("source_text", res.SourceText).
			Str("target_text", res.TargetText).
			Dur("elapsed", res.Elapsed).
			Msg("Utterance translated")
	case OutcomeSkippedEmptyAudio:
		logger.Warn().Msg("Empty audio, skipping utterance")
	case OutcomeSkippedEmptyText:
		logger.Warn().Msg("No recognizable text, skipping utterance")
	case OutcomeFailed:
		kind := Classify(res.Err)
		event := logger.Error().Err(res.Err).Str("stage", res.Stage).Str("kind", kind)
		var panicErr *PanicError
		if errors.As(res.Err, &panicErr) {
			event = event.Bytes("stack", panicErr.Stack)
		}
		event.Msg("Utterance failed")
		observability.RecordError(kind, res.Stage)
	}
	observability.RecordOutcome(string(res.Outcome))
	return res
}

// processSafely turns a panic in any stage into a failed result for that stage
func (d *Dispatcher) processSafely(ctx context.Context, u *audio.Utterance, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = &PanicError{Stage: res.Stage, Value: r, Stack: debug.Stack()}
		}
	}()
	d.process(ctx, u, res)
}

func (d *Dispatcher) process(ctx context.Context, u *audio.Utterance, res *Result) {
	if u.IsEmpty() {
		res.Outcome = OutcomeSkippedEmptyAudio
		res.Stage = StagePersist
		if u != nil {
			res.UtteranceID = u.ID
		}
		return
	}
	res.UtteranceID = u.ID

	fail := func(err error) {
		res.Outcome = OutcomeFailed
		res.Err = err
	}

	res.Stage = StagePersist
	if err := audio.WriteWAVFile(d.config.ScratchPath, u.Samples, u.SampleRate); err != nil {
		fail(fmt.Errorf("failed to write utterance audio: %w", err))
		return
	}

	res.Stage = StageRecognize
	raw, err := d.recognize(ctx)
	if err != nil {
		fail(err)
		return
	}

	res.Stage = StageNormalize
	res.SourceText = d.normalizer.Normalize(raw)
	if strings.TrimSpace(res.SourceText) == "" {
		res.Outcome = OutcomeSkippedEmptyText
		return
	}

	res.Stage = StageTranslate
	clean := text.Sanitize(res.SourceText)
	if clean == "" {
		res.Outcome = OutcomeSkippedEmptyText
		return
	}
	translated, err := d.translate(ctx, clean)
	if err != nil {
		fail(err)
		return
	}
	res.TargetText = translated

	res.Stage = StageTranscript
	rec := transcript.Record{
		Timestamp:   d.now(),
		UtteranceID: u.ID,
		SourceLang:  d.config.SourceLanguage,
		TargetLang:  d.config.TargetLanguage,
		SourceText:  res.SourceText,
		TargetText:  res.TargetText,
	}
	if err := d.store.Append(rec); err != nil {
		fail(err)
		return
	}

	res.Stage = StageSpeak
	job := tts.Job{
		ID:         u.ID,
		Text:       res.TargetText,
		Voice:      d.config.Voice,
		OutputPath: d.config.OutputPath,
	}
	if err := d.speech.Submit(job); err != nil {
		fail(err)
		return
	}

	res.Outcome = OutcomeCompleted
}

func (d *Dispatcher) recognize(ctx context.Context) (string, error) {
	ctx, cancel := d.stageContext(ctx)
	defer cancel()

	started := time.Now()
	raw, err := d.recognizer.Recognize(ctx, d.config.ScratchPath)
	observability.ObserveStage(StageRecognize, started, err)
	return raw, err
}

func (d *Dispatcher) translate(ctx context.Context, s string) (string, error) {
	ctx, cancel := d.stageContext(ctx)
	defer cancel()

	started := time.Now()
	out, err := d.translator.Translate(ctx, s, d.config.SourceLanguage, d.config.TargetLanguage)
	if err == nil {
		out, err = translate.CheckSentinel(out)
	}
	observability.ObserveStage(StageTranslate, started, err)
	return out, err
}

func (d *Dispatcher) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.config.StageTimeout)
}
