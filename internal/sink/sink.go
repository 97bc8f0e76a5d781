// internal/sink/sink.go
package sink

import (
	"errors"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/status"
)

// Sink consumes decoded samples of one port.
//
// Open is called exactly once before the first Write and Close exactly once
// after the last. Writes come from a single goroutine, so implementations
// need no locking on the write path. A Write after Close returns ErrClosed.
type Sink interface {
	Name() string
	Open() error
	Write(s frame.Sample) error
	Close() error
}

// StatusWriter is implemented by sinks that also publish the session
// status block when a session terminates.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

var (
	ErrClosed  = errors.New("sink: closed")
	ErrNotOpen = errors.New("sink: not open")
)

// Record is the JSON shape of one sample on message sinks.
type Record struct {
	Port           string                  `json:"port"`
	Timestamp      uint32                  `json:"timestamp_ms"`
	Active         [frame.Channels]bool    `json:"active"`
	Fault          [frame.Channels]uint32  `json:"fault"`
	Temperature    [frame.Channels]float32 `json:"temperature"`
	RefTemperature [frame.Channels]float32 `json:"ref_temperature"`
	Pressure       [frame.Channels]float32 `json:"pressure"`
}

func NewRecord(port string, s frame.Sample) Record {
	r := Record{
		Port:           port,
		Timestamp:      s.Timestamp,
		Active:         s.ActiveT,
		Temperature:    s.Temperature,
		RefTemperature: s.RefTemperature,
		Pressure:       s.Pressure,
	}
	for ch, f := range s.FaultT {
		r.Fault[ch] = uint32(f)
	}
	return r
}
