package audio

import (
	"time"
)

// SegmenterState is the state of the utterance segmenter
type SegmenterState int

const (
	StateIdle            SegmenterState = iota // No buffered audio, no silence timer
	StateAccumulating                          // Buffering frames, last frame was speech
	StateTrailingSilence                       // Buffering frames while timing a silence run
)

func (s SegmenterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateTrailingSilence:
		return "trailing_silence"
	}
	return "unknown"
}

// SegmenterConfig holds configuration for utterance segmentation
type SegmenterConfig struct {
	PauseTime    time.Duration // Continuous silence that closes an utterance
	MaxUtterance time.Duration // Forced flush of buffered speech; 0 disables
}

// DefaultSegmenterConfig returns the default segmentation configuration
func DefaultSegmenterConfig() *SegmenterConfig {
	return &SegmenterConfig{
		PauseTime:    1500 * time.Millisecond,
		MaxUtterance: 30 * time.Second,
	}
}

// SegmentEvent describes what a pushed frame caused
type SegmentEvent int

const (
	EventNone             SegmentEvent = iota
	EventEmitted                       // An utterance was closed by a pause
	EventForcedFlush                   // An utterance was closed by the maximum duration
	EventSilenceDiscarded              // A silence-only buffer reached the pause and was dropped
)

// Segmenter turns an unbounded frame stream into utterances. Frames are buffered
// through short pauses; an utterance is emitted once a silence run lasts PauseTime.
// Elapsed silence is measured on the frames' capture clock.
// A Segmenter is not safe for concurrent use; it is owned by the consumer loop.
type Segmenter struct {
	config   *SegmenterConfig
	detector *SilenceDetector
	newID    func() string

	state        SegmenterState
	frames       []Frame
	samples      int
	hasSpeech    bool
	silenceSince time.Time
	timerRunning bool
}

// NewSegmenter creates a segmenter. newID supplies utterance IDs and may be nil.
func NewSegmenter(config *SegmenterConfig, detector *SilenceDetector, newID func() string) *Segmenter {
	if config == nil {
		config = DefaultSegmenterConfig()
	}
	if detector == nil {
		detector = NewSilenceDetector(DefaultSilenceThreshold)
	}
	if newID == nil {
		newID = func() string { return "" }
	}
	return &Segmenter{
		config:   config,
		detector: detector,
		newID:    newID,
		state:    StateIdle,
	}
}

// Push feeds one frame. It returns the completed utterance (or nil) and the event the frame caused.
func (s *Segmenter) Push(frame Frame) (*Utterance, SegmentEvent) {
	s.frames = append(s.frames, frame)
	s.samples += len(frame.Samples)

	if !s.detector.IsSilent(frame) {
		s.hasSpeech = true
		s.timerRunning = false
		s.state = StateAccumulating

		if s.config.MaxUtterance > 0 && s.bufferedDuration() >= s.config.MaxUtterance {
			return s.emit(), EventForcedFlush
		}
		return nil, EventNone
	}

	if !s.timerRunning {
		s.silenceSince = frame.CapturedAt
		s.timerRunning = true
		s.state = StateTrailingSilence
	}

	if frame.End().Sub(s.silenceSince) >= s.config.PauseTime {
		if !s.hasSpeech {
			s.reset()
			return nil, EventSilenceDiscarded
		}
		return s.emit(), EventEmitted
	}

	if s.config.MaxUtterance > 0 && s.hasSpeech && s.bufferedDuration() >= s.config.MaxUtterance {
		return s.emit(), EventForcedFlush
	}
	return nil, EventNone
}

// Flush returns the buffered audio as an utterance if it contains speech and resets to idle.
// Used when the consumer loop shuts down with a drain policy.
func (s *Segmenter) Flush() *Utterance {
	if !s.hasSpeech {
		s.reset()
		return nil
	}
	return s.emit()
}

// State returns the current segmenter state
func (s *Segmenter) State() SegmenterState {
	return s.state
}

// Buffered returns the number of buffered frames
func (s *Segmenter) Buffered() int {
	return len(s.frames)
}

// SilenceSince returns the start of the running silence timer, if any
func (s *Segmenter) SilenceSince() (time.Time, bool) {
	return s.silenceSince, s.timerRunning
}

// Reset discards buffered frames and returns to idle
func (s *Segmenter) Reset() {
	s.reset()
}

func (s *Segmenter) emit() *Utterance {
	samples := make([]int16, 0, s.samples)
	for _, f := range s.frames {
		samples = append(samples, f.Samples...)
	}

	u := &Utterance{
		ID:         s.newID(),
		Samples:    samples,
		SampleRate: s.frames[0].SampleRate,
		CapturedAt: s.frames[0].CapturedAt,
		Frames:     len(s.frames),
	}
	s.reset()
	return u
}

func (s *Segmenter) reset() {
	s.frames = nil
	s.samples = 0
	s.hasSpeech = false
	s.timerRunning = false
	s.silenceSince = time.Time{}
	s.state = StateIdle
}

func (s *Segmenter) bufferedDuration() time.Duration {
	if len(s.frames) == 0 {
		return 0
	}
	return SamplesDuration(s.samples, s.frames[0].SampleRate)
}
