package audio

import "time"

// Frame is a fixed-duration block of mono signed 16-bit PCM captured from an input device.
// A Frame must not be modified after it has been pushed to a queue.
type Frame struct {
	Samples    []int16
	SampleRate int
	// CapturedAt is the capture time of the first sample in the frame
	CapturedAt time.Time
}

// Duration returns the audio duration covered by the frame
func (f Frame) Duration() time.Duration {
	return SamplesDuration(len(f.Samples), f.SampleRate)
}

// End returns the capture time just after the last sample
func (f Frame) End() time.Time {
	return f.CapturedAt.Add(f.Duration())
}

// Utterance is a contiguous span of captured audio closed by a qualifying pause
type Utterance struct {
	ID         string
	Samples    []int16
	SampleRate int
	CapturedAt time.Time
	Frames     int
}

// Duration returns the audio duration of the utterance
func (u *Utterance) Duration() time.Duration {
	return SamplesDuration(len(u.Samples), u.SampleRate)
}

// IsEmpty reports whether the utterance carries no audio samples
func (u *Utterance) IsEmpty() bool {
	return u == nil || len(u.Samples) == 0
}

// SamplesDuration converts a mono sample count to a duration
func SamplesDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
