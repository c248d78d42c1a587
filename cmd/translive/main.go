package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/capture"
	"github.com/translive/translive/internal/config"
	"github.com/translive/translive/internal/observability"
	"github.com/translive/translive/internal/pipeline"
	"github.com/translive/translive/internal/stt"
	"github.com/translive/translive/internal/text"
	"github.com/translive/translive/internal/transcript"
	"github.com/translive/translive/internal/translate"
	"github.com/translive/translive/internal/tts"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run())
}

// run starts the pipeline and returns the process exit code once it has stopped
// and every deferred resource has been released.
func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("source_language", cfg.SourceLanguage).
		Str("target_language", cfg.TargetLanguage).
		Str("recognizer", cfg.RecognizerBackend).
		Str("translator", cfg.TranslatorBackend).
		Str("synthesizer", cfg.SynthesizerBackend).
		Int("sample_rate", cfg.SampleRate).
		Float64("pause_time", cfg.PauseTime).
		Int("silence_threshold", cfg.SilenceThreshold).
		Msg("TransLive starting")

	if err := cfg.CheckResources(); err != nil {
		return fail(logger, "Required resource is missing", err)
	}

	var vocab text.Vocabulary
	if cfg.VocabularyPath != "" {
		vocab, err = text.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return fail(logger, "Failed to load vocabulary", err)
		}
		logger.Info().Int("words", len(vocab)).Str("path", cfg.VocabularyPath).Msg("Vocabulary loaded")
	}

	// External backends
	rawRecognizer, err := stt.New(cfg)
	if err != nil {
		return fail(logger, "Failed to create recognizer", err)
	}
	recognizer := stt.NewGuardedFromConfig(rawRecognizer, cfg)

	rawTranslator, err := translate.New(cfg)
	if err != nil {
		return fail(logger, "Failed to create translator", err)
	}
	translator := translate.NewGuardedFromConfig(rawTranslator, cfg)
	defer closeTranslator(logger, translator)

	synthesizer, err := tts.New(cfg)
	if err != nil {
		return fail(logger, "Failed to create synthesizer", err)
	}

	preflightCtx, cancelPreflight := context.WithTimeout(context.Background(), cfg.StageTimeoutDuration())
	err = translate.Preflight(preflightCtx, translator, cfg.SourceLanguage, cfg.TargetLanguage)
	cancelPreflight()
	if err != nil {
		var missing *config.MissingResourceError
		if errors.As(err, &missing) {
			return fail(logger, "Translation model not available", err)
		}
		// Backend may still be starting; per-utterance failures are tolerated
		logger.Warn().Err(err).Msg("Translation preflight failed, continuing")
	}

	// Transcript
	fileStore, err := transcript.NewFileStore(cfg.TranscriptPath)
	if err != nil {
		return fail(logger, "Failed to open transcript", err)
	}
	defer fileStore.Close()
	hub := transcript.NewHub()
	store := transcript.Tee(fileStore, hub)

	// Capture
	source, err := newSource(cfg, logger)
	if err != nil {
		return fail(logger, "Failed to open audio input", err)
	}

	queue := audio.NewFrameQueue(cfg.QueueCapacity)
	queue.OnDrop = observability.RecordFrameDropped

	segmenter := audio.NewSegmenter(&audio.SegmenterConfig{
		PauseTime:    cfg.PauseDuration(),
		MaxUtterance: cfg.MaxUtteranceDuration(),
	}, audio.NewSilenceDetector(cfg.SilenceThreshold), observability.NewUtteranceID)

	// Speech output
	var player tts.Player = tts.NopPlayer{}
	if cfg.PlaybackEnabled {
		player = tts.NewCommandPlayer(cfg.OutputDevice)
	}
	worker := tts.NewSpeechWorker(synthesizer, player, cfg.SpeechQueueSize)

	dispatcher := pipeline.NewDispatcher(
		pipeline.NewDispatcherConfig(cfg),
		recognizer,
		translator,
		text.NewNormalizer(vocab),
		store,
		worker,
	)
	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		ShutdownPolicy:  cfg.ShutdownPolicy,
		ShutdownTimeout: cfg.ShutdownTimeoutDuration(),
	}, queue, segmenter, dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Producer: capture never blocks on the queue; closing it lets the runner flush
	g.Go(func() error {
		defer queue.Close()
		return source.Run(gctx, queue)
	})

	// Consumer
	g.Go(func() error {
		defer worker.Close()
		return runner.Run(gctx)
	})

	// Speech worker outlives the group context by the shutdown budget
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	speechDone := make(chan struct{})
	g.Go(func() error {
		defer close(speechDone)
		stopAfter := context.AfterFunc(gctx, func() {
			if cfg.ShutdownPolicy == config.ShutdownDiscard {
				cancelWorker()
				return
			}
			time.AfterFunc(cfg.ShutdownTimeoutDuration(), cancelWorker)
		})
		defer stopAfter()
		return worker.Run(workerCtx)
	})

	if cfg.HTTPEnabled {
		server := newHTTPServer(cfg, logger, hub, map[string]observability.HealthCheckFunc{
			"recognizer":  pingFunc(recognizer),
			"translator":  pingFunc(translator),
			"synthesizer": pingFunc(synthesizer),
		})
		g.Go(func() error {
			return serveHTTP(gctx, speechDone, server, hub, logger)
		})
	}

	logger.Info().Msg("Listening... press Ctrl+C to stop")

	err = g.Wait()
	var deviceErr *capture.DeviceError
	switch {
	case errors.As(err, &deviceErr):
		return fail(logger, "Audio device unavailable", err)
	case err != nil:
		return fail(logger, "Pipeline stopped with error", err)
	}

	logger.Info().
		Int64("frames_dropped", queue.Dropped()).
		Msg("TransLive stopped")
	return 0
}

// newSource returns the replay source when INPUT_FILE is set, the PortAudio device otherwise
func newSource(cfg *config.Config, logger zerolog.Logger) (capture.Source, error) {
	if cfg.InputFile != "" {
		f, err := os.Open(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("file", cfg.InputFile).Msg("Replaying audio from file")
		src := capture.NewReaderSource(f, cfg.SampleRate, cfg.FrameSamples())
		src.Realtime = true
		return src, nil
	}

	devices, err := capture.ListDevices()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list audio devices")
	}
	for _, d := range devices {
		logger.Info().
			Int("index", d.Index).
			Str("name", d.Name).
			Str("host_api", d.HostAPI).
			Int("max_input_channels", d.MaxInputChannels).
			Int("max_output_channels", d.MaxOutputChannels).
			Float64("default_sample_rate", d.DefaultSampleRate).
			Bool("selected_input", d.Index == cfg.InputDevice).
			Msg("Audio device")
	}
	return capture.NewPortAudioSource(cfg.InputDevice, cfg.SampleRate, cfg.FrameSamples()), nil
}

func newHTTPServer(cfg *config.Config, logger zerolog.Logger, hub *transcript.Hub, checks map[string]observability.HealthCheckFunc) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))
	mux.Handle("/ws/transcript", hub)

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	return &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// serveHTTP runs the server until the pipeline stops or speech output has finished
func serveHTTP(ctx context.Context, done <-chan struct{}, server *http.Server, hub *transcript.Hub, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("transcript_feed", fmt.Sprintf("ws://localhost%s/ws/transcript", server.Addr)).
			Msg("Server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	case <-done:
	}

	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Server forced to shutdown")
	}
	return nil
}

// pingFunc adapts a backend to a readiness check; backends without Ping are always ready
func pingFunc(backend any) observability.HealthCheckFunc {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	return func(ctx context.Context) error {
		if p, ok := backend.(pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}

func closeTranslator(logger zerolog.Logger, t translate.Translator) {
	if c, ok := t.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close translator")
		}
	}
}

// fail reports a startup or device failure on stderr and returns exit status 1
func fail(logger zerolog.Logger, msg string, err error) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	logger.Error().Err(err).Str("kind", errorKind(err)).Msg(msg)
	return 1
}

func errorKind(err error) string {
	var deviceErr *capture.DeviceError
	if errors.As(err, &deviceErr) {
		return "device"
	}
	return pipeline.Classify(err)
}
