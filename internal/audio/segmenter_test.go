package audio

import (
	"fmt"
	"testing"
	"time"
)

const (
	testRate        = 16000
	testFrameLength = 100 * time.Millisecond
)

// frameClock produces contiguous 100ms frames on a synthetic capture clock
type frameClock struct {
	next time.Time
}

func newFrameClock() *frameClock {
	return &frameClock{next: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *frameClock) frame(amplitude int16) Frame {
	samples := make([]int16, testRate/10)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	f := Frame{Samples: samples, SampleRate: testRate, CapturedAt: c.next}
	c.next = c.next.Add(testFrameLength)
	return f
}

func (c *frameClock) speech() Frame  { return c.frame(1000) }
func (c *frameClock) silence() Frame { return c.frame(0) }

func newTestSegmenter(pause, max time.Duration) *Segmenter {
	n := 0
	return NewSegmenter(
		&SegmenterConfig{PauseTime: pause, MaxUtterance: max},
		NewSilenceDetector(DefaultSilenceThreshold),
		func() string { n++; return fmt.Sprintf("utt-%d", n) },
	)
}

func TestSegmenter_EmitsAfterPause(t *testing.T) {
	tests := []struct {
		name        string
		speech      int
		silence     int
		expectEmit  bool
		emitOnFrame int
	}{
		{"pause reached exactly", 20, 15, true, 35},
		{"pause exceeded", 5, 20, true, 20},
		{"pause not reached", 20, 14, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := newTestSegmenter(1500*time.Millisecond, 0)
			clock := newFrameClock()

			var utt *Utterance
			emittedAt := 0
			n := 0
			push := func(f Frame) {
				n++
				u, ev := seg.Push(f)
				if u != nil {
					if utt != nil {
						t.Fatalf("Unexpected second utterance at frame %d", n)
					}
					if ev != EventEmitted {
						t.Errorf("Expected EventEmitted, got %v", ev)
					}
					utt = u
					emittedAt = n
				}
			}
			for i := 0; i < tt.speech; i++ {
				push(clock.speech())
			}
			for i := 0; i < tt.silence; i++ {
				push(clock.silence())
			}

			if !tt.expectEmit {
				if utt != nil {
					t.Fatalf("Expected no utterance, got %d frames", utt.Frames)
				}
				if seg.State() != StateTrailingSilence {
					t.Errorf("Expected trailing_silence, got %s", seg.State())
				}
				if seg.Buffered() != tt.speech+tt.silence {
					t.Errorf("Expected %d buffered frames, got %d", tt.speech+tt.silence, seg.Buffered())
				}
				return
			}

			if utt == nil {
				t.Fatal("Expected an utterance")
			}
			if emittedAt != tt.emitOnFrame {
				t.Errorf("Expected emission on frame %d, got %d", tt.emitOnFrame, emittedAt)
			}
			wantFrames := tt.speech + 15
			if utt.Frames != wantFrames {
				t.Errorf("Expected %d frames, got %d", wantFrames, utt.Frames)
			}
			if len(utt.Samples) != wantFrames*testRate/10 {
				t.Errorf("Expected %d samples, got %d", wantFrames*testRate/10, len(utt.Samples))
			}
			if utt.ID != "utt-1" {
				t.Errorf("Expected ID utt-1, got %s", utt.ID)
			}
		})
	}
}

func TestSegmenter_TwoSecondsSpeechTwoSecondsSilence(t *testing.T) {
	seg := newTestSegmenter(1500*time.Millisecond, 30*time.Second)
	clock := newFrameClock()
	start := clock.next

	var utterances []*Utterance
	for i := 0; i < 20; i++ {
		if u, _ := seg.Push(clock.speech()); u != nil {
			utterances = append(utterances, u)
		}
	}
	for i := 0; i < 20; i++ {
		if u, _ := seg.Push(clock.silence()); u != nil {
			utterances = append(utterances, u)
		}
	}

	if len(utterances) != 1 {
		t.Fatalf("Expected 1 utterance, got %d", len(utterances))
	}
	u := utterances[0]
	if u.Duration() != 3500*time.Millisecond {
		t.Errorf("Expected 3.5s utterance, got %v", u.Duration())
	}
	if !u.CapturedAt.Equal(start) {
		t.Errorf("Expected utterance to start at first frame")
	}
	// The remaining 0.5s of silence is buffered but cannot form an utterance
	if seg.Flush() != nil {
		t.Error("Expected silence-only flush to return nil")
	}
}

func TestSegmenter_ShortPauseKeepsBuffering(t *testing.T) {
	seg := newTestSegmenter(1500*time.Millisecond, 0)
	clock := newFrameClock()

	for i := 0; i < 5; i++ {
		seg.Push(clock.speech())
	}
	for i := 0; i < 10; i++ {
		if u, _ := seg.Push(clock.silence()); u != nil {
			t.Fatal("Unexpected utterance during short pause")
		}
	}
	if _, running := seg.SilenceSince(); !running {
		t.Error("Expected silence timer to be running")
	}

	for i := 0; i < 5; i++ {
		seg.Push(clock.speech())
	}
	if seg.State() != StateAccumulating {
		t.Errorf("Expected accumulating, got %s", seg.State())
	}
	if _, running := seg.SilenceSince(); running {
		t.Error("Expected speech to clear the silence timer")
	}
	if seg.Buffered() != 20 {
		t.Fatalf("Expected 20 buffered frames, got %d", seg.Buffered())
	}

	var utt *Utterance
	for i := 0; i < 15; i++ {
		if u, _ := seg.Push(clock.silence()); u != nil {
			utt = u
		}
	}
	if utt == nil {
		t.Fatal("Expected utterance after full pause")
	}
	if utt.Frames != 35 {
		t.Errorf("Expected 35 frames with no loss, got %d", utt.Frames)
	}
}

func TestSegmenter_SilenceOnlyNeverEmits(t *testing.T) {
	seg := newTestSegmenter(1500*time.Millisecond, 0)
	clock := newFrameClock()

	discards := 0
	for i := 0; i < 45; i++ {
		u, ev := seg.Push(clock.silence())
		if u != nil {
			t.Fatalf("Unexpected utterance at frame %d", i)
		}
		if ev == EventSilenceDiscarded {
			discards++
			if seg.State() != StateIdle || seg.Buffered() != 0 {
				t.Errorf("Expected idle and empty after discard, got %s with %d frames", seg.State(), seg.Buffered())
			}
		}
	}
	if discards != 3 {
		t.Errorf("Expected 3 discards, got %d", discards)
	}
}

func TestSegmenter_ForcedFlushAtMaxDuration(t *testing.T) {
	seg := newTestSegmenter(1500*time.Millisecond, time.Second)
	clock := newFrameClock()

	for i := 1; i <= 25; i++ {
		u, ev := seg.Push(clock.speech())
		if i%10 == 0 {
			if u == nil || ev != EventForcedFlush {
				t.Fatalf("Expected forced flush at frame %d, got %v", i, ev)
			}
			if u.Frames != 10 {
				t.Errorf("Expected 10 frames, got %d", u.Frames)
			}
			continue
		}
		if u != nil {
			t.Fatalf("Unexpected utterance at frame %d", i)
		}
	}

	if seg.Buffered() != 5 {
		t.Errorf("Expected 5 buffered frames, got %d", seg.Buffered())
	}
}

func TestSegmenter_Flush(t *testing.T) {
	seg := newTestSegmenter(1500*time.Millisecond, 0)
	clock := newFrameClock()

	if seg.Flush() != nil {
		t.Error("Expected nil flush on idle segmenter")
	}

	seg.Push(clock.speech())
	seg.Push(clock.silence())
	u := seg.Flush()
	if u == nil {
		t.Fatal("Expected flushed utterance")
	}
	if u.Frames != 2 {
		t.Errorf("Expected 2 frames, got %d", u.Frames)
	}
	if seg.State() != StateIdle || seg.Buffered() != 0 {
		t.Errorf("Expected idle after flush")
	}
}
