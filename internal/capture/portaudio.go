package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
	"github.com/translive/translive/internal/audio"
	"github.com/translive/translive/internal/observability"
)

// DeviceInfo describes an audio device as reported by PortAudio
type DeviceInfo struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// ListDevices returns every audio device known to PortAudio
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		info := DeviceInfo{
			Index:             d.Index,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		out = append(out, info)
	}
	return out, nil
}

// PortAudioSource captures mono 16-bit frames from an input device through a
// PortAudio callback stream. The callback only copies samples and pushes them.
type PortAudioSource struct {
	device       int
	sampleRate   int
	frameSamples int
	logger       zerolog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioSource creates a source for the device with the given PortAudio index
func NewPortAudioSource(device, sampleRate, frameSamples int) *PortAudioSource {
	return &PortAudioSource{
		device:       device,
		sampleRate:   sampleRate,
		frameSamples: frameSamples,
		logger:       observability.WithComponent("capture").With().Int("device", device).Logger(),
	}
}

// SampleRate returns the capture sample rate in Hz
func (s *PortAudioSource) SampleRate() int {
	return s.sampleRate
}

// Run opens the device, streams frames to queue until ctx is done and then closes the stream.
// Open and start failures are returned as *DeviceError.
func (s *PortAudioSource) Run(ctx context.Context, queue *audio.FrameQueue) error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Device: s.device, Op: "initialize", Err: err}
	}
	defer portaudio.Terminate()

	dev, err := s.lookupDevice()
	if err != nil {
		return err
	}

	var (
		started  time.Time
		captured int64
	)
	callback := func(in []int16) {
		// Timestamps follow the sample clock so segmentation is independent of callback jitter
		at := started.Add(audio.SamplesDuration(int(captured), s.sampleRate))
		captured += int64(len(in))

		samples := make([]int16, len(in))
		copy(samples, in)
		if queue.Push(audio.Frame{Samples: samples, SampleRate: s.sampleRate, CapturedAt: at}) {
			observability.RecordFrameCaptured()
		}
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(s.sampleRate)
	params.FramesPerBuffer = s.frameSamples

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return &DeviceError{Device: s.device, Op: "open stream", Err: err}
	}
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close input stream")
		}
	}()

	started = time.Now()
	if err := stream.Start(); err != nil {
		return &DeviceError{Device: s.device, Op: "start stream", Err: err}
	}

	s.logger.Info().
		Str("name", dev.Name).
		Int("sample_rate", s.sampleRate).
		Int("frame_samples", s.frameSamples).
		Msg("Recording started")

	<-ctx.Done()

	if err := stream.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop input stream")
	}
	s.logger.Info().Int64("samples", captured).Msg("Recording stopped")
	return nil
}

func (s *PortAudioSource) lookupDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &DeviceError{Device: s.device, Op: "list devices", Err: err}
	}
	if s.device < 0 || s.device >= len(devices) {
		return nil, &DeviceError{
			Device: s.device,
			Op:     "select",
			Err:    fmt.Errorf("index out of range, %d devices available", len(devices)),
		}
	}

	dev := devices[s.device]
	// Mono capture needs min(max_input_channels, 1) == 1
	if min(dev.MaxInputChannels, 1) < 1 {
		return nil, &DeviceError{Device: s.device, Op: "select", Err: errors.New(dev.Name + " has no input channels")}
	}
	return dev, nil
}
