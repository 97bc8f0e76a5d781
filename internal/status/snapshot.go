// internal/status/snapshot.go
package status

import (
	"errors"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/transport"
)

// Snapshot is what a status writer is allowed to deliver for one session.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	State          uint16
	Samples        uint32
	MeanIntervalMs uint16
	MaxIntervalMs  uint16
	BoardID        uint32
}

// ErrorCode maps a session error to its status register value.
func ErrorCode(err error) uint16 {
	if err == nil {
		return ErrorNone
	}
	var derr *frame.DeviceError
	switch {
	case errors.As(err, &derr):
		return derr.ErrorCode()
	case errors.Is(err, frame.ErrFraming):
		return ErrorFraming
	case errors.Is(err, frame.ErrUnexpectedHeader):
		return ErrorUnexpectedHeader
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return ErrorTransport
	}
	return ErrorOther
}

// Saturate clamps a millisecond value into one register.
func Saturate(ms float64) uint16 {
	switch {
	case ms <= 0:
		return 0
	case ms >= 0xFFFF:
		return 0xFFFF
	default:
		return uint16(ms + 0.5)
	}
}
