package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/observability"
)

// Processor handles one emitted utterance
type Processor interface {
	Process(ctx context.Context, u *audio.Utterance) Result
}

// RunnerConfig holds the consumer loop settings
type RunnerConfig struct {
	ShutdownPolicy  string        // config.ShutdownDrain or config.ShutdownDiscard
	ShutdownTimeout time.Duration // Budget for draining pending audio
}

// Runner is the single consumer of the capture queue. It feeds frames to the
// segmenter in capture order and processes each emitted utterance inline.
type Runner struct {
	config    RunnerConfig
	queue     *audio.FrameQueue
	segmenter *audio.Segmenter
	processor Processor
	logger    zerolog.Logger

	// OnResult, when set, receives every utterance result
	OnResult func(Result)
}

// NewRunner creates a runner
func NewRunner(cfg RunnerConfig, queue *audio.FrameQueue, segmenter *audio.Segmenter, processor Processor) *Runner {
	if cfg.ShutdownPolicy == "" {
		cfg.ShutdownPolicy = config.ShutdownDrain
	}
	return &Runner{
		config:    cfg,
		queue:     queue,
		segmenter: segmenter,
		processor: processor,
		logger:    observability.WithComponent("runner"),
	}
}

// Run consumes frames until the queue is closed or ctx is done. A closed queue
// flushes the pending utterance; a canceled ctx applies the shutdown policy.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Int("queue_capacity", r.queue.Cap()).Msg("Pipeline runner started")

	for {
		if ctx.Err() != nil {
			r.shutdown(ctx)
			return nil
		}

		frame, err := r.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, audio.ErrQueueClosed) {
				r.logger.Info().Msg("Capture ended, flushing pending audio")
				r.flush(ctx)
				return nil
			}
			r.shutdown(ctx)
			return nil
		}

		r.consume(ctx, frame)
	}
}

func (r *Runner) consume(ctx context.Context, frame audio.Frame) {
	observability.SetQueueDepth(r.queue.Len())

	u, event := r.segmenter.Push(frame)
	switch event {
	case audio.EventEmitted, audio.EventForcedFlush:
		if event == audio.EventForcedFlush {
			r.logger.Debug().Dur("duration", u.Duration()).Msg("Maximum utterance length reached")
		}
		r.dispatch(ctx, u)
	case audio.EventSilenceDiscarded:
		observability.RecordSilenceDiscarded()
	}
}

func (r *Runner) flush(ctx context.Context) {
	if u := r.segmenter.Flush(); u != nil {
		r.dispatch(ctx, u)
	}
}

func (r *Runner) dispatch(ctx context.Context, u *audio.Utterance) {
	observability.RecordUtterance(u.Duration())
	r.logger.Debug().
		Str("utterance_id", u.ID).
		Int("frames", u.Frames).
		Dur("duration", u.Duration()).
		Msg("Utterance emitted")

	res := r.processor.Process(ctx, u)
	if r.OnResult != nil {
		r.OnResult(res)
	}
}

// shutdown applies the shutdown policy after ctx has been canceled
func (r *Runner) shutdown(parent context.Context) {
	if r.config.ShutdownPolicy == config.ShutdownDiscard {
		pending := r.queue.Drain()
		buffered := r.segmenter.Buffered()
		r.segmenter.Reset()
		r.logger.Info().
			Int("pending_frames", len(pending)).
			Int("buffered_frames", buffered).
			Msg("Shutdown: discarded pending audio")
		return
	}

	ctx := context.WithoutCancel(parent)
	var cancel context.CancelFunc
	if r.config.ShutdownTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	pending := r.queue.Drain()
	r.logger.Info().Int("pending_frames", len(pending)).Msg("Shutdown: draining pending audio")

	for i, frame := range pending {
		if ctx.Err() != nil {
			r.logger.Warn().Int("discarded_frames", len(pending)-i).Msg("Shutdown timeout reached while draining")
			r.segmenter.Reset()
			return
		}
		r.consume(ctx, frame)
	}
	if ctx.Err() == nil {
		r.flush(ctx)
	}
}
