// internal/simulator/device.go
package simulator

import (
	"encoding/binary"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// Config describes a simulated board.
type Config struct {
	Name        string
	BoardID     uint32
	Interval    time.Duration // sample period in continuous mode
	ReadTimeout time.Duration // how long an idle read waits before timing out
}

type key struct {
	kind frame.ResponseKind
	ch   uint8
}

// Device is an in-memory board that answers the wire protocol the same
// way the firmware does. It implements transport.Transport.
type Device struct {
	name        string
	interval    time.Duration
	readTimeout time.Duration

	mu      sync.Mutex
	wake    chan struct{}
	open    bool
	in      []byte
	out     []byte
	written []byte

	boardID uint32
	debug   int8
	coeffs  [frame.Channels][3]float32
	stores  int
	values  map[key]float32
	errors  map[key]uint32
	faults  [frame.Channels]frame.FaultCode

	running bool
	halting bool
	count   uint32
	sent    uint32
	clock   uint32
	nextAt  time.Time
}

func New(cfg Config) *Device {
	if cfg.Name == "" {
		cfg.Name = "sim"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = transport.DefaultReadTimeout
	}
	d := &Device{
		name:        cfg.Name,
		interval:    cfg.Interval,
		readTimeout: cfg.ReadTimeout,
		wake:        make(chan struct{}),
		boardID:     cfg.BoardID,
		values:      make(map[key]float32),
		errors:      make(map[key]uint32),
	}
	for ch := range d.coeffs {
		d.coeffs[ch] = frame.DefaultPressureCoeffs
	}
	return d
}

// ----
// transport.Transport
// ----

func (d *Device) Name() string { return d.name }

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.notifyLocked()
	return nil
}

func (d *Device) WriteAll(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return &transport.Error{Op: "write", Port: d.name, Err: transport.ErrNotOpen}
	}
	d.written = append(d.written, b...)
	d.in = append(d.in, b...)
	for len(d.in) > 0 {
		n := d.handleLocked(d.in)
		if n == 0 {
			break
		}
		d.in = d.in[n:]
	}
	d.notifyLocked()
	return nil
}

func (d *Device) ReadExact(n int) ([]byte, error) {
	deadline := time.Now().Add(d.readTimeout)
	for {
		d.mu.Lock()
		if !d.open {
			d.mu.Unlock()
			return nil, &transport.Error{Op: "read", Port: d.name, Err: transport.ErrNotOpen}
		}
		if len(d.out) >= n {
			b := append([]byte(nil), d.out[:n]...)
			d.out = d.out[n:]
			d.mu.Unlock()
			return b, nil
		}

		var wait time.Duration
		if d.running {
			now := time.Now()
			if d.halting || !now.Before(d.nextAt) {
				d.emitLocked()
				d.mu.Unlock()
				continue
			}
			wait = d.nextAt.Sub(now)
		} else {
			wait = time.Until(deadline)
			if wait <= 0 {
				d.mu.Unlock()
				return nil, &transport.Error{Op: "read", Port: d.name, Err: transport.ErrReadTimeout}
			}
		}
		wake := d.wake
		d.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-wake:
		case <-t.C:
		}
		t.Stop()
	}
}

// ----
// inspection and fault injection
// ----

// Written returns every byte the host has sent.
func (d *Device) Written() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.written...)
}

func (d *Device) BoardID() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boardID
}

func (d *Device) DebugLevel() int8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.debug
}

func (d *Device) Coeffs(ch uint8) [3]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.coeffs[ch&0x03]
}

// Stores counts flash writes.
func (d *Device) Stores() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stores
}

func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Inject queues raw bytes for the host to read.
func (d *Device) Inject(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = append(d.out, b...)
	d.notifyLocked()
}

// SetValue overrides the value returned for a query and used in samples.
func (d *Device) SetValue(kind frame.ResponseKind, ch uint8, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key{kind, ch}] = v
}

// FailQuery makes a query answer with the error flag and code.
func (d *Device) FailQuery(kind frame.ResponseKind, ch uint8, code uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors[key{kind, ch}] = code
}

// SetFault marks a thermocouple channel faulted in samples and status.
func (d *Device) SetFault(ch uint8, f frame.FaultCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[ch&0x03] = f
}

// ----
// command handling
// ----

// handleLocked executes one complete command at the head of b and returns
// the bytes consumed, or 0 if the command is still incomplete.
func (d *Device) handleLocked(b []byte) int {
	switch b[0] {
	case 'A':
		for i, c := range b {
			if c == '\n' {
				d.queryLocked(string(b[1:i]))
				return i + 1
			}
		}
		return 0
	case 'C':
		if len(b) < 2 {
			return 0
		}
		switch b[1] {
		case 'D':
			if len(b) < 3 {
				return 0
			}
			d.debug = int8(b[2])
			return 3
		case 'P':
			if len(b) < 8 {
				return 0
			}
			ch, idx := b[2], b[3]
			if ch < frame.Channels && idx < 3 {
				d.coeffs[ch][idx] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
			}
			return 8
		case 'B':
			if len(b) < 6 {
				return 0
			}
			d.boardID = binary.LittleEndian.Uint32(b[2:6])
			return 6
		case 'W':
			d.stores++
			return 2
		default:
			return 2
		}
	case 'R':
		if len(b) < 5 {
			return 0
		}
		if !d.running {
			d.running = true
			d.halting = false
			d.count = binary.LittleEndian.Uint32(b[1:5])
			d.sent = 0
			d.nextAt = time.Now()
		}
		return 5
	case 'H':
		if d.running {
			d.halting = true
		}
		return 1
	default:
		return 1
	}
}

var mnemonics = map[string]frame.ResponseKind{
	"T":  frame.KindTemperature,
	"P":  frame.KindPressure,
	"R":  frame.KindRefTemperature,
	"A":  frame.KindRawADC,
	"ST": frame.KindStatusTemperature,
	"SP": frame.KindStatusPressure,
}

func (d *Device) queryLocked(cmd string) {
	if cmd == "B" {
		d.respondLocked(frame.KindBoardID, 0, u32(d.boardID))
		return
	}
	if len(cmd) < 2 {
		return
	}
	kind, ok := mnemonics[cmd[:len(cmd)-1]]
	if !ok {
		return
	}
	n, err := strconv.Atoi(cmd[len(cmd)-1:])
	if err != nil || n >= frame.Channels {
		return
	}
	ch := uint8(n)

	if code, failed := d.errors[key{kind, ch}]; failed {
		hdr := frame.EncodeHeader(frame.Header{Class: frame.ClassResponse, Kind: kind, Channel: ch, Error: true})
		d.out = append(d.out, hdr)
		if kind == frame.KindStatusTemperature {
			d.out = append(d.out, frame.TempStatusErrorPattern)
		} else {
			d.out = append(d.out, u32(code)...)
		}
		return
	}

	switch kind {
	case frame.KindStatusTemperature:
		p := []byte{ch, byte(d.faults[ch]), 0x3B, 0, 0, 0, 0, 0, 0, ch}
		d.respondLocked(kind, ch, p)
	case frame.KindStatusPressure:
		p := []byte{ch}
		for _, a := range d.coeffs[ch] {
			p = append(p, f32(a)...)
		}
		d.respondLocked(kind, ch, p)
	default:
		d.respondLocked(kind, ch, f32(d.valueLocked(kind, ch)))
	}
}

func (d *Device) respondLocked(kind frame.ResponseKind, ch uint8, payload []byte) {
	hdr := frame.EncodeHeader(frame.Header{Class: frame.ClassResponse, Kind: kind, Channel: ch})
	d.out = append(d.out, hdr)
	d.out = append(d.out, payload...)
}

func (d *Device) valueLocked(kind frame.ResponseKind, ch uint8) float32 {
	if v, ok := d.values[key{kind, ch}]; ok {
		return v
	}
	switch kind {
	case frame.KindTemperature:
		return 20 + float32(ch)
	case frame.KindRefTemperature:
		return 21
	case frame.KindRawADC:
		return 0.2
	case frame.KindPressure:
		x := d.valueLocked(frame.KindRawADC, ch)
		return frame.PressureStatus{Coeffs: d.coeffs[ch]}.Pressure(x)
	default:
		return 0
	}
}

// emitLocked queues the next stream frame.
func (d *Device) emitLocked() {
	if d.halting || (d.count > 0 && d.sent >= d.count) {
		d.out = append(d.out, frame.EncodeHalt(d.sent)...)
		d.running = false
		d.halting = false
		return
	}

	s := frame.Sample{Timestamp: d.clock}
	for ch := uint8(0); ch < frame.Channels; ch++ {
		s.ActiveT[ch] = true
		s.FaultT[ch] = d.faults[ch]
		if s.FaultT[ch] == frame.FaultNone {
			s.Temperature[ch] = d.valueLocked(frame.KindTemperature, ch)
		}
		s.RefTemperature[ch] = d.valueLocked(frame.KindRefTemperature, ch)
		s.Pressure[ch] = d.valueLocked(frame.KindPressure, ch)
	}
	d.out = append(d.out, frame.EncodeSample(s)...)

	step := uint32(d.interval / time.Millisecond)
	if step == 0 {
		step = 1
	}
	d.sent++
	d.clock += step
	d.nextAt = d.nextAt.Add(d.interval)
}

func (d *Device) notifyLocked() {
	close(d.wake)
	d.wake = make(chan struct{})
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func f32(v float32) []byte {
	return u32(math.Float32bits(v))
}
