// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/tamzrod/ptprobe/internal/board"
	"github.com/tamzrod/ptprobe/internal/frame"
)

// Client is the part of the board client the poller uses.
type Client interface {
	BoardID() (uint32, error)
	Temperature(ch int) (board.Reading, error)
	RefTemperature(ch int) (board.Reading, error)
	Pressure(ch int) (board.Reading, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Port     string
	Interval time.Duration
}

// Poller is a clock-driven reader of one board in one-shot mode.
// It must not share a board with a streaming session.
type Poller struct {
	cfg    Config
	client Client
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.Port == "" {
		return nil, errors.New("poller: port required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	return &Poller{cfg: cfg, client: client}, nil
}

func (p *Poller) Port() string { return p.cfg.Port }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any transport or framing failure aborts the cycle.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		Port: p.cfg.Port,
		At:   time.Now(),
	}

	var snap Snapshot

	id, err := p.client.BoardID()
	if err != nil {
		res.Err = err
		return res
	}
	snap.BoardID = id

	for ch := 0; ch < frame.Channels; ch++ {
		c := &snap.Channels[ch]

		if c.Temperature, err = p.client.Temperature(ch); err != nil {
			res.Err = err
			return res
		}
		if c.RefTemperature, err = p.client.RefTemperature(ch); err != nil {
			res.Err = err
			return res
		}
		if c.Pressure, err = p.client.Pressure(ch); err != nil {
			res.Err = err
			return res
		}
	}

	// Commit only if every query succeeded
	res.Snapshot = snap
	return res
}
