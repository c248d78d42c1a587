package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/transcript"
	"github.com/translive/translive/internal/tts"
)

const testRate = 16000

type fakeRecognizer struct {
	mu        sync.Mutex
	calls     int
	samples   []int // sample count of each recognized WAV
	recognize func(call int) (string, error)
}

func (f *fakeRecognizer) Recognize(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", err
	}
	samples, _, err := audio.DecodeWAV(data)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.samples = append(f.samples, len(samples))
	f.mu.Unlock()

	if f.recognize == nil {
		return "hello world", nil
	}
	return f.recognize(call)
}

func (f *fakeRecognizer) Name() string { return "fake" }

type fakeTranslator struct {
	calls int
	reply string
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "bonjour le monde", nil
}

func (f *fakeTranslator) Name() string { return "fake" }

type memStore struct {
	records []transcript.Record
}

func (m *memStore) Append(rec transcript.Record) error {
	m.records = append(m.records, rec)
	return nil
}

type fakeSpeech struct {
	jobs []tts.Job
	err  error
}

func (f *fakeSpeech) Submit(job tts.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// frames returns n 100ms frames at the given amplitude, starting at frame index first
func frames(first, n int, amplitude int16) []audio.Frame {
	out := make([]audio.Frame, n)
	for i := range out {
		samples := make([]int16, testRate/10)
		for j := range samples {
			if j%2 == 0 {
				samples[j] = amplitude
			} else {
				samples[j] = -amplitude
			}
		}
		out[i] = audio.Frame{
			Samples:    samples,
			SampleRate: testRate,
			CapturedAt: testStart.Add(time.Duration(first+i) * 100 * time.Millisecond),
		}
	}
	return out
}

// sequence builds consecutive frames from (count, amplitude) pairs
func sequence(parts ...[2]int) []audio.Frame {
	var out []audio.Frame
	for _, p := range parts {
		out = append(out, frames(len(out), p[0], int16(p[1]))...)
	}
	return out
}
