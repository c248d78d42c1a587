package capture

import (
	"context"
	"fmt"

	"github.com/translive/translive/internal/audio"
)

// Source produces captured frames onto a queue until ctx is done or the input ends.
// Implementations must never block on the queue.
type Source interface {
	Run(ctx context.Context, queue *audio.FrameQueue) error
	SampleRate() int
}

// DeviceError reports an input device that is unavailable or misconfigured.
// It is fatal at startup and never retried.
type DeviceError struct {
	Device int
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %d: %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
