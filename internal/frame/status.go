// internal/frame/status.go
package frame

import (
	"encoding/binary"
	"fmt"
)

// Response payload sizes (bytes after the header).
const (
	ValuePayloadLen        = 4
	BoardIDPayloadLen      = 4
	TempStatusPayloadLen   = 10 // channel, fault, 8-byte ROM address
	TempStatusErrorLen     = 1  // validity byte
	TempStatusErrorPattern = 0xFF
	PressStatusPayloadLen  = 1 + 3*4
)

// DefaultPressureCoeffs converts the raw 0..1 ADC reading to kPa.
var DefaultPressureCoeffs = [3]float32{-97.35308, 920.6867, -14.86687}

// TemperatureStatus is the thermocouple converter status of one channel.
type TemperatureStatus struct {
	Channel uint8
	Fault   FaultCode
	Address [8]byte
}

// PressureStatus holds the conversion polynomial of one pressure channel.
type PressureStatus struct {
	Channel uint8
	Coeffs  [3]float32
}

// Pressure applies a0 + x*(a1 + x*a2) to a raw ADC reading.
func (s PressureStatus) Pressure(x float32) float32 {
	return s.Coeffs[0] + x*(s.Coeffs[1]+x*s.Coeffs[2])
}

// DecodeValue decodes a 4-byte BE float response payload.
func DecodeValue(p []byte) (float32, error) {
	if len(p) != ValuePayloadLen {
		return 0, fmt.Errorf("%w: value payload %d bytes", ErrFraming, len(p))
	}
	return beFloat(p), nil
}

// DecodeUint32 decodes a 4-byte BE unsigned payload (ids, error codes).
func DecodeUint32(p []byte) (uint32, error) {
	if len(p) != 4 {
		return 0, fmt.Errorf("%w: uint32 payload %d bytes", ErrFraming, len(p))
	}
	return binary.BigEndian.Uint32(p), nil
}

// DecodeTemperatureStatus decodes a status-temperature success payload.
func DecodeTemperatureStatus(p []byte) (TemperatureStatus, error) {
	var s TemperatureStatus
	if len(p) != TempStatusPayloadLen {
		return s, fmt.Errorf("%w: temperature status payload %d bytes", ErrFraming, len(p))
	}
	s.Channel = p[0]
	s.Fault = FaultCode(p[1])
	copy(s.Address[:], p[2:])
	return s, nil
}

// DecodePressureStatus decodes a status-pressure success payload.
func DecodePressureStatus(p []byte) (PressureStatus, error) {
	var s PressureStatus
	if len(p) != PressStatusPayloadLen {
		return s, fmt.Errorf("%w: pressure status payload %d bytes", ErrFraming, len(p))
	}
	s.Channel = p[0]
	for i := 0; i < 3; i++ {
		s.Coeffs[i] = beFloat(p[1+4*i : 5+4*i])
	}
	return s, nil
}

// PayloadLen returns the success and error payload sizes for a response kind.
func PayloadLen(k ResponseKind) (ok, failed int) {
	switch k {
	case KindBoardID:
		return BoardIDPayloadLen, 4
	case KindTemperature, KindPressure, KindRefTemperature, KindRawADC:
		return ValuePayloadLen, 4
	case KindStatusTemperature:
		return TempStatusPayloadLen, TempStatusErrorLen
	case KindStatusPressure:
		return PressStatusPayloadLen, 0
	case KindReserved:
		return 0, 0
	default:
		return 0, 0
	}
}
