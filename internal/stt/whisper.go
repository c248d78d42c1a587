package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/resilience"
)

// whisperSampleRate is the input rate whisper models are trained on
const whisperSampleRate = 16000

// WhisperRecognizer sends utterances to a whisper.cpp server (POST /inference)
type WhisperRecognizer struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// NewWhisperRecognizer creates a recognizer for the whisper.cpp server at serverURL
func NewWhisperRecognizer(serverURL, model, language string) *WhisperRecognizer {
	return &WhisperRecognizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		model:      model,
		language:   language,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the backend name
func (w *WhisperRecognizer) Name() string {
	return "whisper"
}

// Recognize resamples the WAV to 16 kHz and uploads it as multipart/form-data
func (w *WhisperRecognizer) Recognize(ctx context.Context, wavPath string) (string, error) {
	wav, err := w.loadWAV(wavPath)
	if err != nil {
		return "", recognitionError(w.Name(), err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("create form file: %w", err))
	}
	if _, err := fw.Write(wav); err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("write wav data: %w", err))
	}
	if w.language != "" {
		if err := mw.WriteField("language", w.language); err != nil {
			return "", recognitionError(w.Name(), fmt.Errorf("write language field: %w", err))
		}
	}
	if w.model != "" {
		if err := mw.WriteField("model", w.model); err != nil {
			return "", recognitionError(w.Name(), fmt.Errorf("write model field: %w", err))
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("write response_format field: %w", err))
	}
	if err := mw.Close(); err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.serverURL+"/inference", &body)
	if err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			err = resilience.NewRetryableError(err)
		}
		return "", recognitionError(w.Name(), err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", recognitionError(w.Name(), fmt.Errorf("parse JSON response: %w", err))
	}
	return strings.TrimSpace(result.Text), nil
}

// Ping checks that the server answers HTTP
func (w *WhisperRecognizer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.serverURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("whisper server returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (w *WhisperRecognizer) loadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	if rate == whisperSampleRate {
		return data, nil
	}
	return audio.EncodeWAV(audio.Resample(samples, rate, whisperSampleRate), whisperSampleRate)
}
