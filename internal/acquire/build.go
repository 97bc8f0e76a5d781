// internal/acquire/build.go
package acquire

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ptprobe/internal/board"
	"github.com/tamzrod/ptprobe/internal/config"
	"github.com/tamzrod/ptprobe/internal/monitor"
	"github.com/tamzrod/ptprobe/internal/session"
	"github.com/tamzrod/ptprobe/internal/simulator"
	"github.com/tamzrod/ptprobe/internal/sink"
	"github.com/tamzrod/ptprobe/internal/sink/registers"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// DriverSim selects the in-process simulated board.
const DriverSim = "sim"

// DefaultSimInterval is the simulated sample period.
const DefaultSimInterval = 10 * time.Millisecond

// Board is an opened board client for one port.
type Board struct {
	Port    string
	BoardID uint32
	Client  *board.Client
}

// OpenBoards opens every configured port, applies its debug level and
// reads the board id. It fails fast: on any error the boards already
// opened are closed again.
func OpenBoards(cfg *config.Config, log logrus.FieldLogger) ([]Board, func() error, error) {
	log = orDiscard(log)
	var boards []Board
	closeAll := func() error {
		var errs []error
		for _, b := range boards {
			if err := b.Client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", b.Port, err))
			}
		}
		return errors.Join(errs...)
	}

	for i, p := range cfg.Ports {
		tr, err := OpenTransport(p, i)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		client := board.New(tr)
		if err := client.Open(); err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("port %s: %w", p.Name, err)
		}
		boards = append(boards, Board{Port: p.Name, Client: client})
		b := &boards[len(boards)-1]

		plog := log.WithField("port", p.Name)
		if p.DebugLevel != nil {
			if err := client.SetDebugLevel(*p.DebugLevel); err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("port %s: %w", p.Name, err)
			}
		}

		id, err := client.BoardID()
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("port %s: board id: %w", p.Name, err)
		}
		b.BoardID = id
		plog.WithFields(logrus.Fields{"board_id": fmt.Sprintf("0x%08X", id), "driver": p.Driver}).Info("board opened")
	}
	return boards, closeAll, nil
}

// OpenTransport builds the unopened transport for one port config.
// index seeds the simulated board id.
func OpenTransport(p config.PortConfig, index int) (transport.Transport, error) {
	readTimeout := time.Duration(p.ReadTimeoutMs) * time.Millisecond
	if p.Driver == DriverSim {
		return simulator.New(simulator.Config{
			Name:        p.Name,
			BoardID:     0x50540000 + uint32(index),
			Interval:    DefaultSimInterval,
			ReadTimeout: readTimeout,
		}), nil
	}
	tr, err := transport.New(transport.Config{
		Driver:      p.Driver,
		Address:     p.Name,
		Baud:        p.Baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("port %s: %w", p.Name, err)
	}
	return tr, nil
}

// Build opens every board and wires one session plus its sinks per port
// into an Orchestrator. The returned closer releases the boards and must
// run after the orchestrator has finished.
func Build(cfg *config.Config, log logrus.FieldLogger, metrics *monitor.Metrics) (*Orchestrator, func() error, error) {
	log = orDiscard(log)
	boards, closeBoards, err := OpenBoards(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	o := NewOrchestrator(
		time.Duration(cfg.Acquisition.TimeoutMs)*time.Millisecond,
		time.Duration(cfg.Acquisition.HeartbeatMs)*time.Millisecond,
		log,
	)

	for i, p := range cfg.Ports {
		sinks, err := BuildSinks(p)
		if err != nil {
			_ = closeBoards()
			return nil, nil, err
		}
		sess := session.New(session.Config{
			Port:    p.Name,
			Samples: cfg.Acquisition.Samples,
			Discard: !cfg.Acquisition.Buffer,
			BoardID: boards[i].BoardID,
			Sinks:   sinks,
			Logger:  log,
			Metrics: metrics,
		}, boards[i].Client)

		if err := o.Add(sess, sinks...); err != nil {
			_ = closeBoards()
			return nil, nil, err
		}
	}
	return o, closeBoards, nil
}

// BuildSinks constructs the unopened sinks of one port.
func BuildSinks(p config.PortConfig) ([]sink.Sink, error) {
	out := make([]sink.Sink, 0, len(p.Sinks))
	for i, sc := range p.Sinks {
		sk, err := buildSink(sc, p.Name)
		if err != nil {
			return nil, fmt.Errorf("port %s sink[%d]: %w", p.Name, i, err)
		}
		out = append(out, sk)
	}
	return out, nil
}

func buildSink(sc config.SinkConfig, port string) (sink.Sink, error) {
	timeout := time.Duration(sc.TimeoutMs) * time.Millisecond

	switch sc.Type {
	case config.SinkList:
		return sink.NewList(), nil
	case config.SinkCSV:
		return sink.NewCSV(sc.Path), nil
	case config.SinkMQTT:
		return sink.NewMQTT(sink.MQTTConfig{
			Broker:      sc.Broker,
			ClientID:    sc.ClientID,
			TopicPrefix: sc.TopicPrefix,
			QoS:         sc.QoS,
			Timeout:     timeout,
		}, port), nil
	case config.SinkRedis:
		return sink.NewRedis(sink.RedisConfig{
			Addr:     sc.Addr,
			Password: sc.Password,
			DB:       sc.DB,
			Channel:  sc.Channel,
			ListMax:  sc.ListMax,
			Timeout:  timeout,
		}, port), nil
	case config.SinkRegisters:
		rc := registers.Config{
			Protocol: sc.Protocol,
			Endpoint: sc.Endpoint,
			UnitID:   sc.UnitID,
			DataBase: sc.DataBase,
			Timeout:  timeout,
		}
		if sc.StatusSlot != nil {
			rc.Status = true
			rc.StatusSlot = *sc.StatusSlot
		}
		return registers.New(rc, port)
	default:
		return nil, fmt.Errorf("unknown sink type %q", sc.Type)
	}
}
