package stt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/resilience"
)

func writeTestWAV(t *testing.T, sampleRate int, seconds float64) string {
	t.Helper()
	samples := make([]int16, int(float64(sampleRate)*seconds))
	for i := range samples {
		samples[i] = int16((i % 100) * 100)
	}
	path := filepath.Join(t.TempDir(), "input_audio.wav")
	if err := audio.WriteWAVFile(path, samples, sampleRate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestWhisperRecognizer_Recognize(t *testing.T) {
	var gotRate int
	var gotLanguage, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if _, rate, err := audio.DecodeWAV(data); err == nil {
			gotRate = rate
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	defer srv.Close()

	r := NewWhisperRecognizer(srv.URL+"/", "tiny", "en")
	text, err := r.Recognize(context.Background(), writeTestWAV(t, 44100, 0.5))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected trimmed text, got %q", text)
	}
	if gotRate != 16000 {
		t.Errorf("Expected upload resampled to 16000 Hz, got %d", gotRate)
	}
	if gotLanguage != "en" || gotModel != "tiny" {
		t.Errorf("Unexpected form fields language=%q model=%q", gotLanguage, gotModel)
	}
}

func TestWhisperRecognizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewWhisperRecognizer(srv.URL, "tiny", "en")
	_, err := r.Recognize(context.Background(), writeTestWAV(t, 16000, 0.1))

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Expected RecognitionError, got %v", err)
	}
	if recErr.Backend != "whisper" {
		t.Errorf("Expected backend whisper, got %s", recErr.Backend)
	}
	if !resilience.IsRetryable(err) {
		t.Error("Expected 503 to be retryable")
	}
}

func TestWhisperRecognizer_BadRequestNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewWhisperRecognizer(srv.URL, "", "")
	_, err := r.Recognize(context.Background(), writeTestWAV(t, 16000, 0.1))
	if err == nil {
		t.Fatal("Expected error")
	}
	if resilience.IsRetryable(err) {
		t.Error("Expected 400 to be permanent")
	}
}

func TestWhisperRecognizer_MissingFile(t *testing.T) {
	r := NewWhisperRecognizer("http://127.0.0.1:1", "tiny", "en")
	_, err := r.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Expected RecognitionError, got %v", err)
	}
}

func TestWhisperRecognizer_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewWhisperRecognizer(srv.URL, "", "").Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
}

func TestGuarded_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "bonjour"})
	}))
	defer srv.Close()

	guard := resilience.NewGuard(
		resilience.NewCircuitBreaker("recognizer_test", 5, time.Second),
		&resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2},
	)
	r := NewGuarded(NewWhisperRecognizer(srv.URL, "", "fr"), guard)

	text, err := r.Recognize(context.Background(), writeTestWAV(t, 16000, 0.1))
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if text != "bonjour" || calls.Load() != 2 {
		t.Errorf("Unexpected result %q after %d calls", text, calls.Load())
	}
}

func TestGuarded_WrapsCircuitOpen(t *testing.T) {
	breaker := resilience.NewCircuitBreaker("recognizer_open", 1, time.Minute)
	breaker.RecordResult(false)

	r := NewGuarded(NewWhisperRecognizer("http://127.0.0.1:1", "", ""), resilience.NewGuard(breaker, nil))
	_, err := r.Recognize(context.Background(), "unused.wav")

	var recErr *RecognitionError
	if !errors.As(err, &recErr) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected RecognitionError wrapping ErrCircuitOpen, got %v", err)
	}
}
