// internal/board/client.go
package board

import (
	"fmt"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// MaxDebugLevel is the most verbose firmware debug level.
const MaxDebugLevel = 2

// ValidationError rejects a call before any byte is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board: invalid %s: %s", e.Field, e.Reason)
}

// Reading is the result of a scalar query. A device-side failure yields
// Value == frame.SentinelValue, Failed and the device code; it is not an error.
type Reading struct {
	Kind    frame.ResponseKind
	Channel uint8
	Value   float32
	Code    uint32
	Failed  bool
}

// Err returns the device failure as a *frame.DeviceError, or nil.
func (r Reading) Err() error {
	if !r.Failed {
		return nil
	}
	return &frame.DeviceError{Kind: r.Kind, Channel: r.Channel, Code: r.Code}
}

// Client issues one-shot queries and configuration commands to one board.
// It is not safe for concurrent use except that Halt may run while
// NextFrame is blocked.
type Client struct {
	tr transport.Transport
}

func New(tr transport.Transport) *Client {
	return &Client{tr: tr}
}

func (c *Client) Port() string { return c.tr.Name() }

func (c *Client) Open() error { return c.tr.Open() }

func (c *Client) Close() error { return c.tr.Close() }

// ----
// queries
// ----

func (c *Client) BoardID() (uint32, error) {
	hdr, err := c.request(frame.QueryBoardID(), frame.KindBoardID, 0)
	if err != nil {
		return 0, err
	}
	p, err := c.tr.ReadExact(4)
	if err != nil {
		return 0, err
	}
	v, err := frame.DecodeUint32(p)
	if err != nil {
		return 0, err
	}
	if hdr.Error {
		return 0, &frame.DeviceError{Kind: frame.KindBoardID, Code: v}
	}
	return v, nil
}

func (c *Client) Temperature(ch int) (Reading, error) {
	return c.value(frame.KindTemperature, ch)
}

func (c *Client) Pressure(ch int) (Reading, error) {
	return c.value(frame.KindPressure, ch)
}

func (c *Client) RefTemperature(ch int) (Reading, error) {
	return c.value(frame.KindRefTemperature, ch)
}

func (c *Client) RawADC(ch int) (Reading, error) {
	return c.value(frame.KindRawADC, ch)
}

func (c *Client) value(kind frame.ResponseKind, ch int) (Reading, error) {
	if err := validChannel(ch); err != nil {
		return Reading{}, err
	}
	cmd, err := frame.Query(kind, uint8(ch))
	if err != nil {
		return Reading{}, err
	}
	hdr, err := c.request(cmd, kind, uint8(ch))
	if err != nil {
		return Reading{}, err
	}
	p, err := c.tr.ReadExact(frame.ValuePayloadLen)
	if err != nil {
		return Reading{}, err
	}
	if hdr.Error {
		code, err := frame.DecodeUint32(p)
		if err != nil {
			return Reading{}, err
		}
		return Reading{Kind: kind, Channel: uint8(ch), Value: frame.SentinelValue, Code: code, Failed: true}, nil
	}
	v, err := frame.DecodeValue(p)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Kind: kind, Channel: uint8(ch), Value: v}, nil
}

func (c *Client) StatusTemperature(ch int) (frame.TemperatureStatus, error) {
	if err := validChannel(ch); err != nil {
		return frame.TemperatureStatus{}, err
	}
	cmd, _ := frame.Query(frame.KindStatusTemperature, uint8(ch))
	hdr, err := c.request(cmd, frame.KindStatusTemperature, uint8(ch))
	if err != nil {
		return frame.TemperatureStatus{}, err
	}

	if hdr.Error {
		p, err := c.tr.ReadExact(frame.TempStatusErrorLen)
		if err != nil {
			return frame.TemperatureStatus{}, err
		}
		if p[0] != frame.TempStatusErrorPattern {
			return frame.TemperatureStatus{}, fmt.Errorf("%w: status validity byte 0x%02x", frame.ErrFraming, p[0])
		}
		return frame.TemperatureStatus{}, &frame.DeviceError{Kind: frame.KindStatusTemperature, Channel: uint8(ch), Code: uint32(p[0])}
	}

	p, err := c.tr.ReadExact(frame.TempStatusPayloadLen)
	if err != nil {
		return frame.TemperatureStatus{}, err
	}
	return frame.DecodeTemperatureStatus(p)
}

func (c *Client) StatusPressure(ch int) (frame.PressureStatus, error) {
	if err := validChannel(ch); err != nil {
		return frame.PressureStatus{}, err
	}
	cmd, _ := frame.Query(frame.KindStatusPressure, uint8(ch))
	hdr, err := c.request(cmd, frame.KindStatusPressure, uint8(ch))
	if err != nil {
		return frame.PressureStatus{}, err
	}
	if hdr.Error {
		return frame.PressureStatus{}, frame.UnexpectedHeader(frame.EncodeHeader(hdr), "status-pressure never carries the error flag")
	}
	p, err := c.tr.ReadExact(frame.PressStatusPayloadLen)
	if err != nil {
		return frame.PressureStatus{}, err
	}
	return frame.DecodePressureStatus(p)
}

// ----
// configuration
// ----

func (c *Client) SetDebugLevel(level int) error {
	if level < 0 || level > MaxDebugLevel {
		return &ValidationError{Field: "debug level", Reason: fmt.Sprintf("%d not in [0,%d]", level, MaxDebugLevel)}
	}
	return c.tr.WriteAll(frame.SetDebugLevel(int8(level)))
}

// SetPressureCoeffs writes up to three polynomial coefficients, one
// command per index. An empty list writes nothing.
func (c *Client) SetPressureCoeffs(ch int, coeffs []float32) error {
	if err := validChannel(ch); err != nil {
		return err
	}
	if len(coeffs) > 3 {
		return &ValidationError{Field: "coefficients", Reason: fmt.Sprintf("at most 3, got %d", len(coeffs))}
	}
	for i, a := range coeffs {
		if err := c.tr.WriteAll(frame.SetPressureCoeff(uint8(ch), uint8(i), a)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) SetBoardID(id uint32) error {
	return c.tr.WriteAll(frame.SetBoardID(id))
}

// StoreConfig persists the configuration to flash. It refuses to write
// anything unless confirm is true.
func (c *Client) StoreConfig(confirm bool) error {
	if !confirm {
		return &ValidationError{Field: "confirm", Reason: "flash write requires explicit confirmation"}
	}
	return c.tr.WriteAll(frame.StoreConfig())
}

// ----
// stream primitives
// ----

// StartRun puts the board in continuous mode. samples == 0 runs until halted.
func (c *Client) StartRun(samples uint32) error {
	return c.tr.WriteAll(frame.Run(samples))
}

// Halt asks the board to end the run; it answers with a Halt frame.
func (c *Client) Halt() error {
	return c.tr.WriteAll(frame.Halt())
}

// NextFrame reads one Data or Halt frame.
func (c *Client) NextFrame() (frame.StreamFrame, error) {
	h, err := c.tr.ReadExact(1)
	if err != nil {
		return frame.StreamFrame{}, err
	}
	n, err := frame.StreamPayloadLen(h[0])
	if err != nil {
		return frame.StreamFrame{}, err
	}
	p, err := c.tr.ReadExact(n)
	if err != nil {
		return frame.StreamFrame{}, err
	}
	return frame.DecodeStreamFrame(h[0], p)
}

// ----
// helpers
// ----

func (c *Client) request(cmd []byte, kind frame.ResponseKind, ch uint8) (frame.Header, error) {
	raw, err := c.writeAndReadHeader(cmd)
	if err != nil {
		return frame.Header{}, err
	}
	if err := expect(raw, kind, ch); err != nil {
		return frame.Header{}, err
	}
	return frame.DecodeHeader(raw), nil
}

func (c *Client) writeAndReadHeader(cmd []byte) (byte, error) {
	if err := c.tr.WriteAll(cmd); err != nil {
		return 0, err
	}
	b, err := c.tr.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func expect(raw byte, kind frame.ResponseKind, ch uint8) error {
	h := frame.DecodeHeader(raw)
	switch {
	case h.Class != frame.ClassResponse:
		return frame.UnexpectedHeader(raw, "want response class")
	case h.Kind != kind:
		return frame.UnexpectedHeader(raw, "want kind %s", kind)
	case h.Channel != ch:
		return frame.UnexpectedHeader(raw, "want channel %d", ch)
	}
	return nil
}

func validChannel(ch int) error {
	if ch < 0 || ch >= frame.Channels {
		return &ValidationError{Field: "channel", Reason: fmt.Sprintf("%d not in [0,%d]", ch, frame.Channels-1)}
	}
	return nil
}
