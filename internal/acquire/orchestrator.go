// internal/acquire/orchestrator.go
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ptprobe/internal/session"
	"github.com/tamzrod/ptprobe/internal/sink"
)

// DefaultHeartbeat is the liveness log interval.
const DefaultHeartbeat = time.Second

// Acquirer is one per-port acquisition run. *session.Session implements
// it; other board variants plug in the same way.
type Acquirer interface {
	Port() string
	Run(ctx context.Context) (session.Result, error)
	RequestStop()
}

type entry struct {
	acq   Acquirer
	sinks []sink.Sink
}

// Orchestrator owns one Acquirer per port and the sinks they feed.
// Each sink instance must belong to exactly one port.
type Orchestrator struct {
	Timeout   time.Duration
	Heartbeat time.Duration
	Logger    logrus.FieldLogger

	entries map[string]*entry
	order   []string
}

func NewOrchestrator(timeout, heartbeat time.Duration, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		Timeout:   timeout,
		Heartbeat: heartbeat,
		Logger:    log,
		entries:   make(map[string]*entry),
	}
}

// Add registers an acquirer and its sinks under the acquirer's port.
func (o *Orchestrator) Add(acq Acquirer, sinks ...sink.Sink) error {
	if o.entries == nil {
		o.entries = make(map[string]*entry)
	}
	port := acq.Port()
	if _, dup := o.entries[port]; dup {
		return fmt.Errorf("acquire: port %q already added", port)
	}
	o.entries[port] = &entry{acq: acq, sinks: sinks}
	o.order = append(o.order, port)
	return nil
}

// Ports lists registered ports in insertion order.
func (o *Orchestrator) Ports() []string {
	return append([]string(nil), o.order...)
}

// StopAll requests every acquirer to stop.
func (o *Orchestrator) StopAll() {
	for _, port := range o.order {
		o.entries[port].acq.RequestStop()
	}
}

// Run opens every sink, runs all acquirers concurrently until each has
// terminated, then closes every sink. A sink is never closed while an
// acquirer could still write to it. Per-port errors are joined; one port
// failing does not stop the others.
func (o *Orchestrator) Run(ctx context.Context) (map[string]session.Result, error) {
	log := o.log()

	if err := o.openSinks(); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]session.Result, len(o.order))
		errs    []error
		running int32
		wg      sync.WaitGroup
	)

	for _, port := range o.order {
		e := o.entries[port]
		wg.Add(1)
		atomic.AddInt32(&running, 1)
		go func(port string, acq Acquirer) {
			defer wg.Done()
			defer atomic.AddInt32(&running, -1)

			res, err := acq.Run(ctx)

			mu.Lock()
			results[port] = res
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
		}(port, e.acq)
	}

	var timer *time.Timer
	if o.Timeout > 0 {
		timer = time.AfterFunc(o.Timeout, func() {
			log.WithField("timeout", o.Timeout).Info("acquisition timeout, stopping all ports")
			o.StopAll()
		})
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	hb := o.Heartbeat
	if hb <= 0 {
		hb = DefaultHeartbeat
	}
	ticker := time.NewTicker(hb)
	started := time.Now()

	ctxDone := ctx.Done()
wait:
	for {
		select {
		case <-allDone:
			break wait
		case <-ctxDone:
			log.Info("interrupted, stopping all ports")
			o.StopAll()
			ctxDone = nil
		case <-ticker.C:
			log.WithFields(logrus.Fields{
				"running": atomic.LoadInt32(&running),
				"elapsed": time.Since(started).Round(time.Second),
			}).Info("heartbeat")
		}
	}
	ticker.Stop()
	if timer != nil {
		timer.Stop()
	}

	if err := o.closeSinks(); err != nil {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}

// openSinks opens every sink; on failure the already opened ones are closed.
func (o *Orchestrator) openSinks() error {
	var opened []sink.Sink
	for _, port := range o.order {
		for _, sk := range o.entries[port].sinks {
			if err := sk.Open(); err != nil {
				for _, done := range opened {
					_ = done.Close()
				}
				return fmt.Errorf("acquire: open sink %s for %s: %w", sk.Name(), port, err)
			}
			opened = append(opened, sk)
		}
	}
	return nil
}

func (o *Orchestrator) closeSinks() error {
	var errs []error
	for _, port := range o.order {
		for _, sk := range o.entries[port].sinks {
			if err := sk.Close(); err != nil {
				o.log().WithFields(logrus.Fields{"port": port, "sink": sk.Name()}).WithError(err).Warn("sink close failed")
				errs = append(errs, fmt.Errorf("close sink %s: %w", sk.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) log() logrus.FieldLogger {
	return orDiscard(o.Logger)
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SortedPorts returns the result keys in a stable order.
func SortedPorts(results map[string]session.Result) []string {
	ports := make([]string, 0, len(results))
	for p := range results {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
