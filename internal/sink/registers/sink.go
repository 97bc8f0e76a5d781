// internal/sink/registers/sink.go
package registers

import (
	"fmt"
	"time"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/sink"
	"github.com/tamzrod/ptprobe/internal/status"
)

const (
	ProtocolModbus = "modbus"
	ProtocolIngest = "ingest"
)

// Config places one port's registers on a target endpoint.
type Config struct {
	Protocol   string
	Endpoint   string
	UnitID     uint8
	DataBase   uint16 // first register of the sample block
	StatusSlot uint16 // status block index; base register = slot * SlotsPerSession
	Status     bool   // publish the status block
	Timeout    time.Duration
}

// Sink mirrors the latest sample (and optionally the session status) into
// holding registers of a Modbus server or raw-ingest endpoint.
type Sink struct {
	cfg  Config
	port string
	dial func() (endpointClient, error)

	cli    endpointClient
	status *statusWriter
	seq    uint32
}

func New(cfg Config, port string) (*Sink, error) {
	var dial func() (endpointClient, error)
	switch cfg.Protocol {
	case "", ProtocolModbus:
		dial = func() (endpointClient, error) { return newModbusClient(cfg.Endpoint, cfg.Timeout) }
	case ProtocolIngest:
		dial = func() (endpointClient, error) { return newIngestClient(cfg.Endpoint, cfg.Timeout) }
	default:
		return nil, fmt.Errorf("registers: unknown protocol %q", cfg.Protocol)
	}
	return newSink(cfg, port, dial), nil
}

func newSink(cfg Config, port string, dial func() (endpointClient, error)) *Sink {
	return &Sink{cfg: cfg, port: port, dial: dial}
}

func (s *Sink) Name() string {
	proto := s.cfg.Protocol
	if proto == "" {
		proto = ProtocolModbus
	}
	return proto + ":" + s.cfg.Endpoint
}

func (s *Sink) Open() error {
	cli, err := s.dial()
	if err != nil {
		return fmt.Errorf("registers: open %s: %w", s.cfg.Endpoint, err)
	}
	s.cli = cli
	if s.cfg.Status {
		s.status = newStatusWriter(cli, s.cfg.UnitID, s.cfg.StatusSlot, s.port)
	}
	return nil
}

func (s *Sink) Write(sample frame.Sample) error {
	if s.cli == nil {
		return sink.ErrClosed
	}
	s.seq++
	regs := EncodeSample(s.seq, sample)
	if err := s.cli.WriteRegisters(areaHoldingRegisters, s.cfg.UnitID, s.cfg.DataBase, regs); err != nil {
		return fmt.Errorf("registers: ep=%s unit=%d addr=%d: %w", s.cfg.Endpoint, s.cfg.UnitID, s.cfg.DataBase, err)
	}
	return nil
}

// WriteStatus is a no-op unless the status block is enabled.
func (s *Sink) WriteStatus(st status.Snapshot) error {
	if s.cli == nil {
		return sink.ErrClosed
	}
	if s.status == nil {
		return nil
	}
	return s.status.WriteStatus(st)
}

func (s *Sink) Close() error {
	if s.cli == nil {
		return nil
	}
	err := s.cli.Close()
	s.cli, s.status = nil, nil
	return err
}
