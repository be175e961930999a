// Package midifile flattens Standard MIDI Files into a timed event list.
package midifile

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is one MIDI message at an absolute time. Data is a complete
// channel message or a system exclusive message framed by F0 ... F7.
type Event struct {
	At   time.Duration
	Data []byte
}

// LoadFile reads the SMF at path.
func LoadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()
	events, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// Load reads an SMF and merges its tracks into one list ordered by time.
// Tempo changes are applied; meta events are dropped. Events at the same
// time keep track order.
func Load(r io.Reader) ([]Event, error) {
	var events []Event
	rd := smf.ReadTracksFrom(r)
	rd.Do(func(te smf.TrackEvent) {
		msg := []byte(te.Message)
		if len(msg) == 0 || msg[0] == 0xFF || msg[0] == 0xF7 {
			return
		}
		data := append([]byte(nil), msg...)
		if data[0] == 0xF0 && data[len(data)-1] != 0xF7 {
			data = append(data, 0xF7)
		}
		events = append(events, Event{
			At:   time.Duration(te.AbsMicroSeconds) * time.Microsecond,
			Data: data,
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	slices.SortStableFunc(events, func(a, b Event) int { return cmp.Compare(a.At, b.At) })
	return events, nil
}

// Duration returns the time of the last event.
func Duration(events []Event) time.Duration {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].At
}
