// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/tamzrod/ptprobe/internal/acquire"
	"github.com/tamzrod/ptprobe/internal/config"
)

// Build constructs one Poller per opened board.
// Boards stay owned by the caller; the poller never closes them.
func Build(cfg config.PollConfig, boards []acquire.Board) ([]*Poller, error) {
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond

	out := make([]*Poller, 0, len(boards))
	for _, b := range boards {
		p, err := New(Config{Port: b.Port, Interval: interval}, b.Client)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
