package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/translive/translive/internal/resilience"
)

// LibreTranslator calls a LibreTranslate server, which runs Argos Translate models offline
type LibreTranslator struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewLibreTranslator creates a translator for the LibreTranslate server at serverURL
func NewLibreTranslator(serverURL, apiKey string) *LibreTranslator {
	return &LibreTranslator{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the backend name
func (l *LibreTranslator) Name() string {
	return "libretranslate"
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate posts text to /translate
func (l *LibreTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	payload, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: l.apiKey})
	if err != nil {
		return "", translationError(l.Name(), fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.serverURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", translationError(l.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", translationError(l.Name(), fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", translationError(l.Name(), fmt.Errorf("read response body: %w", err))
	}

	var result libreResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "not supported") {
			return "", fmt.Errorf("%s: %w", msg, ErrUnavailable)
		}
		err := fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, msg)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			err = resilience.NewRetryableError(err)
		}
		return "", translationError(l.Name(), err)
	}

	return CheckSentinel(result.TranslatedText)
}

// Languages lists the installed languages from /languages
func (l *LibreTranslator) Languages(ctx context.Context) ([]Language, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.serverURL+"/languages", nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("libretranslate: list languages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("libretranslate: list languages returned HTTP %d", resp.StatusCode)
	}

	var languages []Language
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("libretranslate: parse languages: %w", err)
	}
	return languages, nil
}

// CheckPair returns ErrUnavailable unless source -> target is installed
func (l *LibreTranslator) CheckPair(ctx context.Context, source, target string) error {
	languages, err := l.Languages(ctx)
	if err != nil {
		return err
	}
	if !pairAvailable(languages, source, target) {
		return ErrUnavailable
	}
	return nil
}

// Ping checks that /languages answers
func (l *LibreTranslator) Ping(ctx context.Context) error {
	_, err := l.Languages(ctx)
	return err
}
