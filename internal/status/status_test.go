// internal/status/status_test.go
package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/transport"
)

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{
		Health:         HealthOK,
		State:          3,
		Samples:        0x00012345,
		MeanIntervalMs: 10,
		MaxIntervalMs:  12,
		BoardID:        0xCAFEBABE,
	}, "ttyUSB0")

	require.Len(t, regs, SlotsPerSession)
	require.Equal(t, HealthOK, regs[SlotHealthCode])
	require.Equal(t, uint16(0x0001), regs[SlotSamplesHi])
	require.Equal(t, uint16(0x2345), regs[SlotSamplesLo])
	require.Equal(t, uint16(0xCAFE), regs[SlotBoardIDHi])
	require.Equal(t, uint16(0xBABE), regs[SlotBoardIDLo])
	require.Equal(t, uint16('t')<<8|uint16('t'), regs[SlotPortNameStart])
	require.Equal(t, uint16('0')<<8, regs[SlotPortNameStart+3])
	require.Zero(t, regs[SlotPortNameEnd])
}

func TestEncodePortName_KeepsTail(t *testing.T) {
	regs := EncodePortName("/dev/serial/by-id/usb-ptprobe-0\x01")
	require.Len(t, regs, SlotPortNameSlots)
	require.Equal(t, uint16('0')<<8|uint16('?'), regs[SlotPortNameSlots-1])
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, ErrorNone, ErrorCode(nil))
	require.Equal(t, uint16(7), ErrorCode(&frame.DeviceError{Code: 7}))
	require.Equal(t, ErrorFraming, ErrorCode(frame.Framing(0x00, "x")))
	require.Equal(t, ErrorUnexpectedHeader, ErrorCode(fmt.Errorf("wrap: %w", frame.UnexpectedHeader(0x00, "x"))))
	require.Equal(t, ErrorTransport, ErrorCode(&transport.Error{Op: "read", Err: transport.ErrReadTimeout}))
	require.Equal(t, ErrorOther, ErrorCode(errors.New("boom")))
}

func TestSaturate(t *testing.T) {
	require.Equal(t, uint16(0), Saturate(-1))
	require.Equal(t, uint16(10), Saturate(9.6))
	require.Equal(t, uint16(0xFFFF), Saturate(1e9))
}
