// internal/frame/errors.go
package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedHeader means the device answered with a header that does
	// not match the pending request (class, kind or channel).
	ErrUnexpectedHeader = errors.New("frame: unexpected header")
	// ErrFraming means a frame had the wrong shape (byte count, class in
	// stream mode, payload pattern). The stream is no longer trusted.
	ErrFraming = errors.New("frame: framing error")
	// ErrDeviceReported means the device set the error flag on a response.
	ErrDeviceReported = errors.New("frame: device reported error")
)

// SentinelValue is returned in place of a measurement the device refused.
const SentinelValue float32 = -9999.9

// HeaderError carries the raw header byte that failed validation.
// It unwraps to ErrUnexpectedHeader or ErrFraming.
type HeaderError struct {
	Kind   error
	Raw    byte
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v: 0x%02x (%s): %s", e.Kind, e.Raw, DecodeHeader(e.Raw), e.Reason)
}

func (e *HeaderError) Unwrap() error { return e.Kind }

// UnexpectedHeader builds a HeaderError of kind ErrUnexpectedHeader.
func UnexpectedHeader(raw byte, format string, args ...interface{}) *HeaderError {
	return &HeaderError{Kind: ErrUnexpectedHeader, Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// Framing builds a HeaderError of kind ErrFraming.
func Framing(raw byte, format string, args ...interface{}) *HeaderError {
	return &HeaderError{Kind: ErrFraming, Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// DeviceError is a value-level error the device signalled with the error flag.
// It is not fatal: the link stays aligned and the caller decides what to do.
type DeviceError struct {
	Kind    ResponseKind
	Channel uint8
	Code    uint32
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device reported error: %s ch=%d code=%d", e.Kind, e.Channel, e.Code)
}

func (e *DeviceError) Unwrap() error { return ErrDeviceReported }

// ErrorCode exposes the device code.
func (e *DeviceError) ErrorCode() uint16 {
	if e.Code > 0xFFFF {
		return 0xFFFF
	}
	return uint16(e.Code)
}

// IsFatal reports whether err leaves the byte stream in an unknown state.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnexpectedHeader) || errors.Is(err, ErrFraming)
}
