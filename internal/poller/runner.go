// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// Run starts the ticker loop and emits PollResult on the provided channel.
// One goroutine per port. No overlap. No retries.
// A fatal result is delivered and then ends the loop: the link is no
// longer byte-aligned and further commands would read stale bytes.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := p.PollOnce()
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
			if Fatal(res.Err) {
				return
			}
		}
	}
}

// Fatal reports errors after which the port must not be polled again:
// framing and header mismatches, and any transport failure.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	var terr *transport.Error
	return frame.IsFatal(err) || errors.As(err, &terr)
}
