// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/monitor"
	"github.com/tamzrod/ptprobe/internal/sink"
	"github.com/tamzrod/ptprobe/internal/status"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// ErrStarted is returned when Run is called more than once.
var ErrStarted = errors.New("session: already started")

// Client is the part of the board client a session drives.
type Client interface {
	StartRun(samples uint32) error
	Halt() error
	NextFrame() (frame.StreamFrame, error)
}

// Config is the immutable runtime config of one session.
type Config struct {
	Port string
	// Samples requested from the board; 0 runs until stopped.
	Samples uint32
	// Timeout stops the run after this long; 0 disables it.
	Timeout time.Duration
	// Discard skips the in-memory sample buffer.
	Discard bool
	// BoardID is reported in status snapshots.
	BoardID uint32
	Sinks   []sink.Sink
	Logger  logrus.FieldLogger
	Metrics *monitor.Metrics
}

// Result is what a terminated run produced.
type Result struct {
	Port string
	// Count is the final count reported by the board's Halt frame.
	Count      uint32
	Decoded    uint64
	Samples    []frame.Sample
	Stats      Stats
	SinkErrors uint64
	Stopped    bool
}

// Session drives one port in continuous mode.
type Session struct {
	cfg    Config
	client Client
	log    logrus.FieldLogger

	mu            sync.Mutex
	state         State
	stopRequested bool
	stats         Stats
	decoded       uint64
	lastTS        uint32
	sinkErrors    uint64
	sinkFailed    map[int]bool
}

func New(cfg Config, client Client) *Session {
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		cfg:        cfg,
		client:     client,
		log:        log.WithField("port", cfg.Port),
		sinkFailed: make(map[int]bool),
	}
}

func (s *Session) Port() string { return s.cfg.Port }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run starts the board streaming and decodes frames until the Halt frame.
// A stop (RequestStop, ctx cancellation or Timeout) sends the halt command;
// the loop still drains up to and including the Halt frame.
func (s *Session) Run(ctx context.Context) (Result, error) {
	res := Result{Port: s.cfg.Port}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return res, ErrStarted
	}
	if s.stopRequested || ctx.Err() != nil {
		s.stopRequested = true
		s.state = Terminated
		s.mu.Unlock()
		s.log.Info("stopped before start")
		res.Stopped = true
		return res, nil
	}
	// The run command goes out under the lock so a halt can never precede it.
	if err := s.client.StartRun(s.cfg.Samples); err != nil {
		s.mu.Unlock()
		return s.finish(res, err)
	}
	s.state = Running
	s.mu.Unlock()

	s.log.WithField("samples", s.cfg.Samples).Info("run started")
	s.cfg.Metrics.SessionStarted()
	defer s.cfg.Metrics.SessionEnded()
	s.publishStatus(Running, nil)

	stopOnCancel := context.AfterFunc(ctx, s.RequestStop)
	defer stopOnCancel()

	if s.cfg.Timeout > 0 {
		timer := time.AfterFunc(s.cfg.Timeout, func() {
			s.log.WithField("timeout", s.cfg.Timeout).Info("timeout reached")
			s.RequestStop()
		})
		defer timer.Stop()
	}

	for {
		if ctx.Err() != nil {
			s.RequestStop()
		}

		f, err := s.client.NextFrame()
		if err != nil {
			return s.finish(res, err)
		}
		if f.Halt {
			res.Count = f.Count
			return s.finish(res, nil)
		}
		s.accept(&res, f.Sample)
	}
}

// RequestStop asks the board to halt. It is idempotent and safe to call
// from any goroutine; the halt command is sent at most once and only while
// the run is streaming. Before Run it prevents the run from starting.
func (s *Session) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopRequested {
		return
	}
	s.stopRequested = true
	if s.state != Running {
		return
	}
	s.state = Stopping
	if err := s.client.Halt(); err != nil {
		s.log.WithError(err).Warn("halt command failed")
	}
}

// ----
// decode loop helpers
// ----

func (s *Session) accept(res *Result, smp frame.Sample) {
	s.mu.Lock()
	first := s.decoded == 0
	var interval float64
	if !first {
		d := smp.Timestamp - s.lastTS
		if d == 0 || d > math.MaxInt32 {
			s.log.WithFields(logrus.Fields{"prev": s.lastTS, "ts": smp.Timestamp}).Warn("non-increasing sample timestamp")
		} else {
			interval = float64(d)
			s.stats.Add(interval)
		}
	}
	s.lastTS = smp.Timestamp
	s.decoded++
	s.mu.Unlock()

	if !s.cfg.Discard {
		res.Samples = append(res.Samples, smp)
	}
	s.cfg.Metrics.SampleDecoded(s.cfg.Port, interval, first || interval == 0)

	for i, sk := range s.cfg.Sinks {
		if err := sk.Write(smp); err != nil {
			s.sinkError(i, sk, err)
		}
	}
}

// sinkError counts a failed write. Only the first failure per sink is
// logged at warn level.
func (s *Session) sinkError(i int, sk sink.Sink, err error) {
	s.mu.Lock()
	s.sinkErrors++
	seen := s.sinkFailed[i]
	s.sinkFailed[i] = true
	s.mu.Unlock()

	s.cfg.Metrics.SinkError(s.cfg.Port, sk.Name())
	entry := s.log.WithField("sink", sk.Name()).WithError(err)
	if seen {
		entry.Debug("sink write failed")
	} else {
		entry.Warn("sink write failed; further failures logged at debug")
	}
}

func (s *Session) finish(res Result, err error) (Result, error) {
	s.mu.Lock()
	s.state = Terminated
	res.Stats = s.stats
	res.Decoded = s.decoded
	res.SinkErrors = s.sinkErrors
	res.Stopped = s.stopRequested
	s.mu.Unlock()

	s.publishStatus(Terminated, err)

	if err != nil {
		s.cfg.Metrics.SessionError(s.cfg.Port, errorKind(err))
		s.log.WithError(err).WithField("decoded", res.Decoded).Error("run failed")
		return res, fmt.Errorf("session %s: %w", s.cfg.Port, err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"count":       res.Count,
		"decoded":     res.Decoded,
		"mean_ms":     res.Stats.Mean,
		"stddev_ms":   res.Stats.StdDev(),
		"min_ms":      res.Stats.Min,
		"max_ms":      res.Stats.Max,
		"sink_errors": res.SinkErrors,
	})
	if uint64(res.Count) != res.Decoded {
		entry.Warn("halt count differs from decoded samples")
	} else {
		entry.Info("run complete")
	}
	return res, nil
}

func (s *Session) publishStatus(st State, err error) {
	s.mu.Lock()
	snap := status.Snapshot{
		Health:         status.HealthOK,
		LastErrorCode:  status.ErrorCode(err),
		State:          uint16(st),
		Samples:        uint32(s.decoded),
		MeanIntervalMs: status.Saturate(s.stats.Mean),
		MaxIntervalMs:  status.Saturate(s.stats.Max),
		BoardID:        s.cfg.BoardID,
	}
	s.mu.Unlock()
	if err != nil {
		snap.Health = status.HealthError
	}

	for _, sk := range s.cfg.Sinks {
		sw, ok := sk.(sink.StatusWriter)
		if !ok {
			continue
		}
		if werr := sw.WriteStatus(snap); werr != nil {
			s.cfg.Metrics.SinkError(s.cfg.Port, sk.Name())
			s.log.WithField("sink", sk.Name()).WithError(werr).Warn("status write failed")
		}
	}
}

func errorKind(err error) string {
	var derr *frame.DeviceError
	var terr *transport.Error
	switch {
	case errors.As(err, &derr):
		return "device"
	case errors.Is(err, frame.ErrFraming):
		return "framing"
	case errors.Is(err, frame.ErrUnexpectedHeader):
		return "unexpected_header"
	case errors.As(err, &terr):
		return "transport"
	default:
		return "other"
	}
}
