package tts

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestPlaybackCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		args []string
	}{
		{"darwin", "ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "error", "output.wav"}},
		{"linux", "aplay", []string{"-q", "-D", "plughw:2", "output.wav"}},
		{"windows", "cmd", []string{"/C", "start", "", "output.wav"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := PlaybackCommand(tt.goos, 2, "output.wav")
			if err != nil {
				t.Fatalf("PlaybackCommand failed: %v", err)
			}
			if name != tt.name || !reflect.DeepEqual(args, tt.args) {
				t.Errorf("Got %s %v, want %s %v", name, args, tt.name, tt.args)
			}
		})
	}

	if _, _, err := PlaybackCommand("plan9", 0, "output.wav"); err == nil {
		t.Error("Expected error for unsupported OS")
	}
}

func TestCommandPlayer_Play(t *testing.T) {
	var gotName string
	var gotArgs []string
	p := &CommandPlayer{
		GOOS:         "linux",
		OutputDevice: 1,
		Run: func(ctx context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	}

	if err := p.Play(context.Background(), "/tmp/output.wav"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if gotName != "aplay" || gotArgs[len(gotArgs)-1] != "/tmp/output.wav" {
		t.Errorf("Unexpected command %s %v", gotName, gotArgs)
	}

	p.Run = func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}
	if err := p.Play(context.Background(), "/tmp/output.wav"); err == nil {
		t.Error("Expected playback error")
	}
}
