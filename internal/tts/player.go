package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Player plays a WAV file and returns when playback has finished
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandRunner runs an external program; replaced in tests
type CommandRunner func(ctx context.Context, name string, args ...string) error

// CommandPlayer plays files with the host's command-line player
type CommandPlayer struct {
	GOOS         string
	OutputDevice int
	Run          CommandRunner
}

// NewCommandPlayer creates a player for the current OS. outputDevice selects the ALSA card on Linux.
func NewCommandPlayer(outputDevice int) *CommandPlayer {
	return &CommandPlayer{
		GOOS:         runtime.GOOS,
		OutputDevice: outputDevice,
		Run:          runCommand,
	}
}

// PlaybackCommand returns the program and arguments that play path on goos
func PlaybackCommand(goos string, outputDevice int, path string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "error", path}, nil
	case "linux":
		return "aplay", []string{"-q", "-D", fmt.Sprintf("plughw:%d", outputDevice), path}, nil
	case "windows":
		return "cmd", []string{"/C", "start", "", path}, nil
	}
	return "", nil, fmt.Errorf("playback not supported on %s", goos)
}

// Play runs the platform playback command for path
func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	name, args, err := PlaybackCommand(p.GOOS, p.OutputDevice, path)
	if err != nil {
		return err
	}
	run := p.Run
	if run == nil {
		run = runCommand
	}
	if err := run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// NopPlayer skips playback; used when PLAYBACK_ENABLED=false
type NopPlayer struct{}

// Play does nothing
func (NopPlayer) Play(ctx context.Context, path string) error {
	return nil
}
