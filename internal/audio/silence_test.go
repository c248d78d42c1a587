package audio

import "testing"

func TestDetectSilence(t *testing.T) {
	tests := []struct {
		name      string
		samples   []int16
		threshold float64
		expected  bool
	}{
		{"empty", nil, 50, true},
		{"zeros", make([]int16, 160), 50, true},
		{"quiet noise", []int16{10, -20, 30, -40}, 50, true},
		{"loud", []int16{1000, -1000, 1000, -1000}, 50, false},
		{"negative only", []int16{-100, -100}, 50, false},
		{"exactly at threshold", []int16{50, -50}, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSilence(tt.samples, tt.threshold); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMeanAbsAmplitude(t *testing.T) {
	if got := MeanAbsAmplitude([]int16{-32768, 32767}); got != 32767.5 {
		t.Errorf("Expected 32767.5, got %f", got)
	}
	if got := MeanAbsAmplitude(nil); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
}

func TestNewSilenceDetector(t *testing.T) {
	d := NewSilenceDetector(-1)
	if d.Threshold != DefaultSilenceThreshold {
		t.Errorf("Expected default threshold, got %f", d.Threshold)
	}

	d = NewSilenceDetector(200)
	if !d.IsSilent(Frame{Samples: []int16{150, -150}, SampleRate: 16000}) {
		t.Error("Expected frame below 200 to be silent")
	}
}
