package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/observability"
)

// ReaderSource replays raw mono s16le PCM from a reader as captured frames.
// Frame timestamps start at Start and advance by each frame's duration.
type ReaderSource struct {
	r            io.Reader
	sampleRate   int
	frameSamples int

	// Start is the capture time of the first frame; zero means time.Now() at Run
	Start time.Time
	// Realtime paces frames at capture speed instead of pushing as fast as possible
	Realtime bool
}

// NewReaderSource creates a source reading frames of frameSamples samples
func NewReaderSource(r io.Reader, sampleRate, frameSamples int) *ReaderSource {
	return &ReaderSource{r: r, sampleRate: sampleRate, frameSamples: frameSamples}
}

// SampleRate returns the sample rate the PCM stream is declared to have
func (s *ReaderSource) SampleRate() int {
	return s.sampleRate
}

// Run pushes frames until the reader is exhausted (returning nil) or ctx is done.
// A trailing partial frame is pushed as a shorter frame.
func (s *ReaderSource) Run(ctx context.Context, queue *audio.FrameQueue) error {
	if s.frameSamples <= 0 || s.sampleRate <= 0 {
		return fmt.Errorf("invalid reader source geometry: %d samples at %d Hz", s.frameSamples, s.sampleRate)
	}

	at := s.Start
	if at.IsZero() {
		at = time.Now()
	}

	var ticker *time.Ticker
	if s.Realtime {
		ticker = time.NewTicker(audio.SamplesDuration(s.frameSamples, s.sampleRate))
		defer ticker.Stop()
	}

	buf := make([]byte, s.frameSamples*2)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := io.ReadFull(s.r, buf)
		if n >= 2 {
			samples, convErr := audio.BytesToSamples(buf[:n-n%2])
			if convErr != nil {
				return convErr
			}
			frame := audio.Frame{Samples: samples, SampleRate: s.sampleRate, CapturedAt: at}
			at = frame.End()
			if queue.Push(frame) {
				observability.RecordFrameCaptured()
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read PCM input: %w", err)
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
