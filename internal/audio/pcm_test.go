package audio

import (
	"testing"
)

func TestBytesToSamples(t *testing.T) {
	data := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}

	samples, err := BytesToSamples(data)
	if err != nil {
		t.Fatalf("BytesToSamples failed: %v", err)
	}

	expected := []int16{0, 32767, -32768}
	if len(samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(samples))
	}
	for i, exp := range expected {
		if samples[i] != exp {
			t.Errorf("Expected sample %d at index %d, got %d", exp, i, samples[i])
		}
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	if _, err := BytesToSamples([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("Expected error for odd PCM length")
	}
}

func TestSamplesToBytes(t *testing.T) {
	data := SamplesToBytes([]int16{0, 32767, -32768})

	expected := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	if len(data) != len(expected) {
		t.Fatalf("Expected %d bytes, got %d", len(expected), len(data))
	}
	for i, exp := range expected {
		if data[i] != exp {
			t.Errorf("Expected byte %d at index %d, got %d", exp, i, data[i])
		}
	}
}

func TestResample(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	// Resample from 8kHz to 16kHz (should double)
	resampled := Resample(samples, 8000, 16000)
	if len(resampled) < 180 || len(resampled) > 220 {
		t.Errorf("Expected resampled length around 200, got %d", len(resampled))
	}

	// Resample from 44.1kHz to 16kHz
	resampled2 := Resample(make([]int16, 44100), 44100, 16000)
	if len(resampled2) != 16000 {
		t.Errorf("Expected 16000 samples, got %d", len(resampled2))
	}

	// Same rate should return unchanged
	resampled3 := Resample(samples, 8000, 8000)
	if len(resampled3) != len(samples) {
		t.Errorf("Expected unchanged length %d, got %d", len(samples), len(resampled3))
	}
}
