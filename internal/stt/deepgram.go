package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	interfacesv1 "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces/v1"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/translive/translive/internal/resilience"
)

var deepgramInit sync.Once

// DeepgramRecognizer transcribes utterances with Deepgram's pre-recorded REST API
type DeepgramRecognizer struct {
	apiKey   string
	model    string
	language string
	host     string // Overrides the Deepgram API host, e.g. "http://127.0.0.1:8080"
}

// NewDeepgramRecognizer creates a Deepgram recognizer
func NewDeepgramRecognizer(apiKey, model, language string) *DeepgramRecognizer {
	deepgramInit.Do(func() {
		listenClient.InitWithDefault()
	})
	return &DeepgramRecognizer{
		apiKey:   apiKey,
		model:    model,
		language: language,
	}
}

// Name returns the backend name
func (d *DeepgramRecognizer) Name() string {
	return "deepgram"
}

// Recognize streams the WAV file to Deepgram and returns the best alternative of the first channel
func (d *DeepgramRecognizer) Recognize(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", recognitionError(d.Name(), fmt.Errorf("open %s: %w", wavPath, err))
	}
	defer f.Close()

	tOptions := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    d.language,
		Punctuate:   true,
		SmartFormat: true,
	}

	client := listenClient.NewREST(d.apiKey, &interfaces.ClientOptions{Host: d.host})
	if client == nil {
		return "", recognitionError(d.Name(), errors.New("failed to create client: missing API key"))
	}
	dg := api.New(client)

	res, err := dg.FromStream(ctx, f, tOptions)
	if err != nil {
		return "", recognitionError(d.Name(), classifyDeepgramError(err))
	}

	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 ||
		len(res.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript), nil
}

// classifyDeepgramError marks rate limiting and server errors as retryable
func classifyDeepgramError(err error) error {
	var statusErr *interfacesv1.StatusError
	if errors.As(err, &statusErr) && statusErr.Resp != nil {
		code := statusErr.Resp.StatusCode
		if code == http.StatusTooManyRequests || code >= 500 {
			return resilience.NewRetryableError(err)
		}
		return err
	}
	if resilience.IsRetryableNetworkError(err) {
		return resilience.NewRetryableError(err)
	}
	return err
}
