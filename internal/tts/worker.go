package tts

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/translive/translive/internal/observability"
)

var (
	// ErrQueueFull is returned by Submit when the speech queue has no free slot
	ErrQueueFull = errors.New("speech queue full")
	// ErrWorkerClosed is returned by Submit after Close
	ErrWorkerClosed = errors.New("speech worker closed")
)

// Job is a request to speak one translated utterance
type Job struct {
	ID         string
	Text       string
	Voice      string
	OutputPath string
}

// SpeechWorker synthesizes and plays jobs one at a time on its own goroutine.
// A single consumer owns the output path, so a job's file is never overwritten
// while it is being played.
type SpeechWorker struct {
	synth  Synthesizer
	player Player
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan Job
}

// NewSpeechWorker creates a worker with room for queueSize pending jobs
func NewSpeechWorker(synth Synthesizer, player Player, queueSize int) *SpeechWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	if player == nil {
		player = NopPlayer{}
	}
	return &SpeechWorker{
		synth:  synth,
		player: player,
		logger: observability.WithComponent("speech"),
		jobs:   make(chan Job, queueSize),
	}
}

// Submit enqueues a job without blocking
func (w *SpeechWorker) Submit(job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- job:
		observability.RecordSpeechJob("queued")
		return nil
	default:
		observability.RecordSpeechJob("rejected")
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs
func (w *SpeechWorker) Pending() int {
	return len(w.jobs)
}

// Close stops accepting jobs. Run returns once the queued jobs are processed.
func (w *SpeechWorker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
}

// Run consumes jobs until Close has been called and the queue is empty, or ctx is done
func (w *SpeechWorker) Run(ctx context.Context) error {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			w.processSafely(ctx, job)
		case <-ctx.Done():
			if n := len(w.jobs); n > 0 {
				w.logger.Warn().Int("pending", n).Msg("Speech worker stopped with pending jobs")
			}
			return nil
		}
	}
}

// processSafely keeps a panicking synthesizer or player from stopping the worker
func (w *SpeechWorker) processSafely(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Str("utterance_id", job.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Speech job panicked")
			observability.RecordError("panic", "speech")
			observability.RecordSpeechJob("panicked")
		}
	}()
	w.process(ctx, job)
}

func (w *SpeechWorker) process(ctx context.Context, job Job) {
	logger := w.logger.With().Str("utterance_id", job.ID).Logger()
	logger.Info().Str("text", job.Text).Msg("Speaking")

	started := time.Now()
	err := w.synth.Synthesize(ctx, job.Text, job.Voice, job.OutputPath)
	observability.ObserveStage("synthesize", started, err)
	if err != nil {
		logger.Error().Err(err).Str("backend", w.synth.Name()).Msg("Speech synthesis failed")
		observability.RecordError("synthesis", "speech")
		observability.RecordSpeechJob("synthesis_failed")
		return
	}

	started = time.Now()
	err = w.player.Play(ctx, job.OutputPath)
	observability.ObserveStage("playback", started, err)
	if err != nil {
		logger.Error().Err(err).Str("path", job.OutputPath).Msg("Playback failed")
		observability.RecordError("playback", "speech")
		observability.RecordSpeechJob("playback_failed")
		return
	}

	observability.RecordSpeechJob("completed")
}
