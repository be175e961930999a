package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/cbegin/midifm-go"
	"github.com/cbegin/midifm-go/internal/midifile"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		path       = flag.String("file", "", "path to a Standard MIDI File")
		out        = flag.String("out", "", "render to this WAV file instead of playing")
		bankPath   = flag.String("bank", "", "patch definition file loaded over the built-in bank")
		modeName   = flag.String("mode", "default", "system mode: default|gm|gm2|gs|xg")
		volume     = flag.Float64("volume", 1.0, "main volume scalar")
		loop       = flag.Bool("loop", false, "loop playback until interrupted")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("missing -file")
	}
	mode, err := midifm.ParseSystemMode(*modeName)
	if err != nil {
		log.Fatal(err)
	}
	opts := []midifm.PlayerOption{
		midifm.WithSystemMode(mode),
		midifm.WithLoop(*loop),
		midifm.WithMainVolume(*volume),
	}
	if *bankPath != "" {
		b, err := midifm.LoadBank(*bankPath)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, midifm.WithBank(b))
	}
	events, err := midifile.LoadFile(*path)
	if err != nil {
		log.Fatal(err)
	}

	if *out != "" {
		samples := midifm.RenderEvents(events, *sampleRate, opts...)
		if err := os.WriteFile(*out, midifm.EncodeWAV16LE(samples, *sampleRate, 2), 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs)\n", *out, float64(len(samples)/2)/float64(*sampleRate))
		return
	}

	pl, err := midifm.NewPlayer(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	ch := pl.Watch()
	if err := pl.PlayEvents(events); err != nil {
		log.Fatal(err)
	}
	stop := make(chan struct{})
	if term.IsTerminal(int(os.Stdout.Fd())) {
		go progress(pl, midifile.Duration(events), stop)
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case midifm.EventPlaybackEnded:
			close(stop)
			fmt.Println("\nplayback completed")
			pl.Wait()
			return
		case midifm.EventLoopCompleted:
			loopCount++
			fmt.Printf("\nloop %d completed\n", loopCount)
		}
	}
}

// progress redraws the position line until stop is closed.
func progress(pl *midifm.Player, total time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			fmt.Printf("\r%s / %s ", pl.Position().Truncate(time.Second), total.Truncate(time.Second))
		}
	}
}
