package midifm

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestPlayerMainVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MainVolume(); got != 1 {
		t.Fatalf("default main volume = %v, want 1", got)
	}
	pl.SetMainVolume(0.35)
	if got := pl.MainVolume(); got != 0.35 {
		t.Fatalf("main volume = %v, want 0.35", got)
	}
	pl.SetMainVolume(-2)
	if got := pl.MainVolume(); got != 0 {
		t.Fatalf("main volume should clamp to 0, got %v", got)
	}
}

func TestNewPlayerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestSendWithoutPlayback(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatal(err)
	}
	if err := pl.Send(midi.NoteOn(0, 60, 100)); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Send = %v, want ErrNoSource", err)
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop on idle player: %v", err)
	}
	pl.Wait()
}

func TestParseSystemMode(t *testing.T) {
	tests := []struct {
		in   string
		want SystemMode
	}{
		{"gs", ModeGS},
		{"xg", ModeXG},
		{"gm2", ModeGM2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSystemMode(tt.in)
			if err != nil || got != tt.want {
				t.Fatalf("ParseSystemMode(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
	if _, err := ParseSystemMode("mt32"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestWithMainVolumeSetsInitialGain(t *testing.T) {
	pl, err := NewPlayer(48000, WithMainVolume(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if got := pl.MainVolume(); got != 0.5 {
		t.Fatalf("main volume = %v, want 0.5", got)
	}
	quiet := peak(RenderEvents(phrase(), 48000, WithMainVolume(0.25)))
	loud := peak(RenderEvents(phrase(), 48000))
	if quiet == 0 || quiet >= loud {
		t.Fatalf("quiet peak %d should be below loud peak %d", quiet, loud)
	}
}
