// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/ptprobe/internal/board"
	"github.com/tamzrod/ptprobe/internal/frame"
)

// ChannelReadings holds the one-shot values of a single channel.
// A device-side failure shows up as a Failed reading, not as an error.
type ChannelReadings struct {
	Temperature    board.Reading
	RefTemperature board.Reading
	Pressure       board.Reading
}

// Snapshot is the board state captured by one poll cycle.
type Snapshot struct {
	BoardID  uint32
	Channels [frame.Channels]ChannelReadings
}

// Failed counts readings the board reported as failed.
func (s Snapshot) Failed() int {
	n := 0
	for _, ch := range s.Channels {
		for _, r := range []board.Reading{ch.Temperature, ch.RefTemperature, ch.Pressure} {
			if r.Failed {
				n++
			}
		}
	}
	return n
}

// PollResult is produced by one poll cycle.
type PollResult struct {
	Port string
	At   time.Time

	Snapshot Snapshot
	Err      error // non-nil means the cycle failed and Snapshot is empty
}
