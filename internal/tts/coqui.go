package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/translive/translive/internal/audio"
)

// CoquiSynthesizer uses the standard Coqui TTS server (GET /api/tts), which returns a WAV file
type CoquiSynthesizer struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// NewCoquiSynthesizer creates a synthesizer for the Coqui server at serverURL.
// language is sent as language_id for multilingual models and may be empty.
func NewCoquiSynthesizer(serverURL, language string) *CoquiSynthesizer {
	return &CoquiSynthesizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the backend name
func (c *CoquiSynthesizer) Name() string {
	return "coqui"
}

// Synthesize requests speech for text with speaker voice and writes the WAV to outPath
func (c *CoquiSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) error {
	params := url.Values{}
	params.Set("text", text)
	if voice != "" {
		params.Set("speaker_id", voice)
	}
	if c.language != "" {
		params.Set("language_id", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/tts?"+params.Encode(), nil)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return synthesisError(c.Name(), fmt.Errorf("GET /api/tts returned status %d", resp.StatusCode))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("read response body: %w", err))
	}
	if _, err := audio.ParseWAV(wav); err != nil {
		return synthesisError(c.Name(), err)
	}

	if err := audio.WriteFileAtomic(outPath, wav); err != nil {
		return synthesisError(c.Name(), err)
	}
	return nil
}

// Ping checks that the server answers HTTP
func (c *CoquiSynthesizer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("coqui server returned HTTP %d", resp.StatusCode)
	}
	return nil
}
