package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/translive/translive/internal/resilience"
)

func TestOpenAIRecognizer_Recognize(t *testing.T) {
	var gotModel, gotLanguage, gotAuth string
	var gotFile bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		gotAuth = r.Header.Get("Authorization")
		_, _, err := r.FormFile("file")
		gotFile = err == nil

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": " hello there \n"})
	}))
	defer srv.Close()

	r := NewOpenAIRecognizer("sk-test", srv.URL+"/v1", "", "en")
	text, err := r.Recognize(context.Background(), writeTestWAV(t, 16000, 0.25))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "hello there" {
		t.Errorf("Expected trimmed text, got %q", text)
	}
	if gotModel != "whisper-1" || gotLanguage != "en" {
		t.Errorf("Unexpected form model=%q language=%q", gotModel, gotLanguage)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Unexpected Authorization header %q", gotAuth)
	}
	if !gotFile {
		t.Error("Expected the WAV file in the upload")
	}
}

func TestOpenAIRecognizer_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_error"}}`, true},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`, true},
		{"plain gateway error", http.StatusBadGateway, `upstream unavailable`, true},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"invalid file","type":"invalid_request_error"}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			r := NewOpenAIRecognizer("sk-test", srv.URL+"/v1", "whisper-1", "en")
			_, err := r.Recognize(context.Background(), writeTestWAV(t, 16000, 0.1))

			var recErr *RecognitionError
			if !errors.As(err, &recErr) {
				t.Fatalf("Expected RecognitionError, got %v", err)
			}
			if resilience.IsRetryable(err) != tt.retryable {
				t.Errorf("Expected retryable=%v, got %v", tt.retryable, err)
			}
		})
	}
}

func TestOpenAIRecognizer_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	}))
	defer srv.Close()

	r := NewOpenAIRecognizer("sk-test", srv.URL+"/v1", "", "en")
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
