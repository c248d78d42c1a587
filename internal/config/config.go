package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by the *_BACKEND settings
const (
	RecognizerWhisper  = "whisper"
	RecognizerOpenAI   = "openai"
	RecognizerDeepgram = "deepgram"

	TranslatorLibre  = "libretranslate"
	TranslatorGRPC   = "grpc"
	TranslatorOpenAI = "openai"

	SynthesizerCoqui    = "coqui"
	SynthesizerCartesia = "cartesia"

	ShutdownDrain   = "drain"
	ShutdownDiscard = "discard"
)

// Config holds all configuration for the translation pipeline
type Config struct {
	// Audio devices
	InputDevice  int    `envconfig:"INPUT_DEVICE" default:"1"`  // PortAudio input device index
	OutputDevice int    `envconfig:"OUTPUT_DEVICE" default:"2"` // Playback device index (ALSA card on Linux)
	InputFile    string `envconfig:"INPUT_FILE" default:""`     // Raw s16le mono PCM file replayed instead of a device

	// Segmentation
	SilenceThreshold    int     `envconfig:"SILENCE_THRESHOLD" default:"50"`     // Mean absolute amplitude below which a frame is silent
	PauseTime           float64 `envconfig:"PAUSE_TIME" default:"1.5"`           // Seconds of silence that close an utterance
	SampleRate          int     `envconfig:"SAMPLE_RATE" default:"44100"`        // Capture sample rate in Hz
	FrameDurationMs     int     `envconfig:"FRAME_DURATION_MS" default:"100"`    // Duration of one captured frame
	MaxUtteranceSeconds float64 `envconfig:"MAX_UTTERANCE_SECONDS" default:"30"` // Forced flush of long speech, 0 disables
	QueueCapacity       int     `envconfig:"QUEUE_CAPACITY" default:"600"`       // Frames buffered between capture and segmenter

	// Languages
	SourceLanguage string `envconfig:"SOURCE_LANGUAGE" default:"en"`
	TargetLanguage string `envconfig:"TARGET_LANGUAGE" default:"fr"`

	// Speech recognition
	RecognizerBackend     string `envconfig:"RECOGNIZER_BACKEND" default:"whisper"` // whisper, openai, deepgram
	WhisperURL            string `envconfig:"WHISPER_URL" default:"http://localhost:8080"`
	WhisperModel          string `envconfig:"WHISPER_MODEL" default:"tiny"`
	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL         string `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAITranscribeModel string `envconfig:"OPENAI_TRANSCRIBE_MODEL" default:"whisper-1"`
	DeepgramAPIKey        string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel         string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// Translation
	TranslatorBackend    string `envconfig:"TRANSLATOR_BACKEND" default:"libretranslate"` // libretranslate, grpc, openai
	LibreTranslateURL    string `envconfig:"LIBRETRANSLATE_URL" default:"http://localhost:5000"`
	LibreTranslateAPIKey string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	TranslatorGRPCAddr   string `envconfig:"TRANSLATOR_GRPC_ADDR" default:"localhost:50051"`
	TranslatorGRPCTLS    bool   `envconfig:"TRANSLATOR_GRPC_TLS" default:"false"`
	OpenAITranslateModel string `envconfig:"OPENAI_TRANSLATE_MODEL" default:"gpt-4o-mini"`
	TranslationModelPath string `envconfig:"TRANSLATION_MODEL_PATH" default:""` // Must exist when set

	// Speech synthesis and playback
	SynthesizerBackend string `envconfig:"SYNTHESIZER_BACKEND" default:"coqui"` // coqui, cartesia
	CoquiURL           string `envconfig:"COQUI_URL" default:"http://localhost:5002"`
	VoiceID            string `envconfig:"VOICE_ID" default:"p229"`
	CartesiaAPIKey     string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaModelID    string `envconfig:"CARTESIA_MODEL_ID" default:"sonic"`
	PlaybackEnabled    bool   `envconfig:"PLAYBACK_ENABLED" default:"true"`
	SpeechQueueSize    int    `envconfig:"SPEECH_QUEUE_SIZE" default:"8"`

	// Files
	ScratchAudioPath string `envconfig:"SCRATCH_AUDIO_PATH" default:"input_audio.wav"`
	OutputAudioPath  string `envconfig:"OUTPUT_AUDIO_PATH" default:"output.wav"`
	TranscriptPath   string `envconfig:"TRANSCRIPT_PATH" default:"translation_transcript.txt"`
	VocabularyPath   string `envconfig:"VOCABULARY_PATH" default:""` // One word per line; empty disables the filter

	// Lifecycle
	StageTimeout    int    `envconfig:"STAGE_TIMEOUT" default:"30"`       // Seconds per recognizer/translator call
	ShutdownPolicy  string `envconfig:"SHUTDOWN_POLICY" default:"drain"`  // drain or discard pending audio
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`    // Seconds allowed for draining

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"2"`             // Attempts per external call
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"200"`        // Initial backoff in milliseconds

	// Observability configuration
	HTTPEnabled    bool   `envconfig:"HTTP_ENABLED" default:"true"`    // Serve /health, /ready, /metrics, /ws/transcript
	Port           string `envconfig:"PORT" default:"8090"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// MissingResourceError reports a startup resource (model file, language pair) that is absent.
// It is fatal: the process exits with status 1.
type MissingResourceError struct {
	Resource string
	Err      error
}

func (e *MissingResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing resource %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("missing resource %s", e.Resource)
}

func (e *MissingResourceError) Unwrap() error {
	return e.Err
}

// Load reads configuration from an optional YAML file, an optional .env file and the environment.
// Precedence: environment > .env > CONFIG_FILE.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyYAMLFile(path); err != nil {
			return nil, err
		}
	}

	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load any file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyYAMLFile sets environment variables from a flat YAML mapping whose keys are the
// environment variable names. Variables already present in the environment are left untouched.
func applyYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for key, value := range values {
		key = strings.ToUpper(key)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("failed to apply %s from %s: %w", key, path, err)
		}
	}
	return nil
}

// Validate checks ranges and the settings required by the selected backends
func (c *Config) Validate() error {
	var errs []error

	if c.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("SILENCE_THRESHOLD must not be negative, got %d", c.SilenceThreshold))
	}
	if c.PauseTime <= 0 {
		errs = append(errs, fmt.Errorf("PAUSE_TIME must be positive, got %f", c.PauseTime))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate))
	}
	if c.FrameDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("FRAME_DURATION_MS must be positive, got %d", c.FrameDurationMs))
	}
	if c.SampleRate > 0 && c.FrameDurationMs > 0 && c.FrameSamples() < 1 {
		errs = append(errs, fmt.Errorf("SAMPLE_RATE x FRAME_DURATION_MS must give at least one sample per frame, got %d Hz x %d ms", c.SampleRate, c.FrameDurationMs))
	}
	if c.MaxUtteranceSeconds < 0 {
		errs = append(errs, fmt.Errorf("MAX_UTTERANCE_SECONDS must not be negative, got %f", c.MaxUtteranceSeconds))
	}
	if c.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_CAPACITY must be at least 1, got %d", c.QueueCapacity))
	}
	if c.SpeechQueueSize < 1 {
		errs = append(errs, fmt.Errorf("SPEECH_QUEUE_SIZE must be at least 1, got %d", c.SpeechQueueSize))
	}
	if c.SourceLanguage == "" || c.TargetLanguage == "" {
		errs = append(errs, errors.New("SOURCE_LANGUAGE and TARGET_LANGUAGE are required"))
	}

	switch c.RecognizerBackend {
	case RecognizerWhisper:
		if c.WhisperURL == "" {
			errs = append(errs, errors.New("WHISPER_URL is required for the whisper recognizer"))
		}
	case RecognizerOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai recognizer"))
		}
	case RecognizerDeepgram:
		if c.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required for the deepgram recognizer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RECOGNIZER_BACKEND %q", c.RecognizerBackend))
	}

	switch c.TranslatorBackend {
	case TranslatorLibre:
		if c.LibreTranslateURL == "" {
			errs = append(errs, errors.New("LIBRETRANSLATE_URL is required for the libretranslate translator"))
		}
	case TranslatorGRPC:
		if c.TranslatorGRPCAddr == "" {
			errs = append(errs, errors.New("TRANSLATOR_GRPC_ADDR is required for the grpc translator"))
		}
	case TranslatorOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai translator"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSLATOR_BACKEND %q", c.TranslatorBackend))
	}

	switch c.SynthesizerBackend {
	case SynthesizerCoqui:
		if c.CoquiURL == "" {
			errs = append(errs, errors.New("COQUI_URL is required for the coqui synthesizer"))
		}
	case SynthesizerCartesia:
		if c.CartesiaAPIKey == "" {
			errs = append(errs, errors.New("CARTESIA_API_KEY is required for the cartesia synthesizer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SYNTHESIZER_BACKEND %q", c.SynthesizerBackend))
	}

	if c.ShutdownPolicy != ShutdownDrain && c.ShutdownPolicy != ShutdownDiscard {
		errs = append(errs, fmt.Errorf("SHUTDOWN_POLICY must be %q or %q, got %q", ShutdownDrain, ShutdownDiscard, c.ShutdownPolicy))
	}

	return errors.Join(errs...)
}

// CheckResources verifies file resources that must exist before the pipeline starts
func (c *Config) CheckResources() error {
	if c.TranslationModelPath != "" {
		if _, err := os.Stat(c.TranslationModelPath); err != nil {
			return &MissingResourceError{Resource: "translation model " + c.TranslationModelPath, Err: err}
		}
	}
	if c.VocabularyPath != "" {
		if _, err := os.Stat(c.VocabularyPath); err != nil {
			return &MissingResourceError{Resource: "vocabulary " + c.VocabularyPath, Err: err}
		}
	}
	return nil
}

// PauseDuration returns PAUSE_TIME as a time.Duration
func (c *Config) PauseDuration() time.Duration {
	return time.Duration(c.PauseTime * float64(time.Second))
}

// FrameDuration returns the capture frame duration
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameDurationMs) * time.Millisecond
}

// FrameSamples returns the number of samples in one captured frame
func (c *Config) FrameSamples() int {
	return c.SampleRate * c.FrameDurationMs / 1000
}

// MaxUtteranceDuration returns the forced-flush limit; zero disables it
func (c *Config) MaxUtteranceDuration() time.Duration {
	return time.Duration(c.MaxUtteranceSeconds * float64(time.Second))
}

// StageTimeoutDuration returns the per-call timeout for recognizer and translator calls
func (c *Config) StageTimeoutDuration() time.Duration {
	return time.Duration(c.StageTimeout) * time.Second
}

// ShutdownTimeoutDuration returns the time allowed for draining on shutdown
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
