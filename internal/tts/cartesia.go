package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/translive/translive/internal/audio"
)

const (
	cartesiaAPIURL     = "https://api.cartesia.ai/tts/bytes"
	cartesiaVersion    = "2024-06-10"
	cartesiaSampleRate = 24000
)

// CartesiaSynthesizer uses Cartesia's batch TTS endpoint and stores the raw PCM reply as WAV
type CartesiaSynthesizer struct {
	apiKey     string
	apiURL     string
	modelID    string
	language   string
	httpClient *http.Client
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// CartesiaRequest is the request payload for the Cartesia TTS API
type CartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language,omitempty"`
}

// NewCartesiaSynthesizer creates a new Cartesia synthesizer
func NewCartesiaSynthesizer(apiKey, modelID, language string) *CartesiaSynthesizer {
	return &CartesiaSynthesizer{
		apiKey:     apiKey,
		apiURL:     cartesiaAPIURL,
		modelID:    modelID,
		language:   language,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the backend name
func (c *CartesiaSynthesizer) Name() string {
	return "cartesia"
}

// Synthesize renders text with the Cartesia voice id and writes a 24 kHz mono WAV to outPath
func (c *CartesiaSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) error {
	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: voice},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: cartesiaSampleRate,
		},
		Language: c.language,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return synthesisError(c.Name(), fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthesisError(c.Name(), fmt.Errorf("failed to read audio: %w", err))
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	samples, err := audio.BytesToSamples(pcm)
	if err != nil {
		return synthesisError(c.Name(), err)
	}
	if len(samples) == 0 {
		return synthesisError(c.Name(), fmt.Errorf("cartesia returned empty audio"))
	}

	if err := audio.WriteWAVFile(outPath, samples, cartesiaSampleRate); err != nil {
		return synthesisError(c.Name(), err)
	}
	return nil
}
