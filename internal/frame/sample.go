// internal/frame/sample.go
package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Channels is the number of sensor channels on the board.
const Channels = 4

// Data frame geometry.
//
//	b0        header: class DATA | byte count (55)
//	b1-b4     timestamp ms (BE uint32)
//	b5        T group:    active (bits 7-4) | fault (bits 3-0)
//	b6-b21    T0..T3      (BE float32, or BE uint32 fault code)
//	b22       P group:    active (bits 7-4)
//	b23-b38   P0..P3      (BE float32)
//	b39       Tref group: active (bits 7-4)
//	b40-b55   Tref0..3    (BE float32)
const (
	DataByteCount  = 55
	DataPayloadLen = DataByteCount

	groupLen     = 1 + 4*Channels
	tGroupOffset = 4
	pGroupOffset = tGroupOffset + groupLen
	rGroupOffset = pGroupOffset + groupLen
)

// FaultCode is the thermocouple converter fault status.
type FaultCode uint32

const (
	FaultNone        FaultCode = 0
	FaultOpenCircuit FaultCode = 1
	FaultGroundShort FaultCode = 2
	FaultVddShort    FaultCode = 4
)

func (f FaultCode) String() string {
	if f == FaultNone {
		return "none"
	}
	var parts []string
	if f&FaultOpenCircuit != 0 {
		parts = append(parts, "open-circuit")
	}
	if f&FaultGroundShort != 0 {
		parts = append(parts, "gnd-short")
	}
	if f&FaultVddShort != 0 {
		parts = append(parts, "vdd-short")
	}
	if rest := f &^ (FaultOpenCircuit | FaultGroundShort | FaultVddShort); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Sample is one decoded acquisition tick.
// Temperature[ch] is only meaningful when ActiveT[ch] and FaultT[ch] == 0.
type Sample struct {
	Timestamp      uint32
	ActiveT        [Channels]bool
	FaultT         [Channels]FaultCode
	Temperature    [Channels]float32
	RefTemperature [Channels]float32
	Pressure       [Channels]float32
}

// DecodeSample decodes the payload that follows a Data header.
// Inactive slots are consumed and left zero.
func DecodeSample(p []byte) (Sample, error) {
	var s Sample
	if len(p) != DataPayloadLen {
		return s, fmt.Errorf("%w: data payload %d bytes, want %d", ErrFraming, len(p), DataPayloadLen)
	}

	s.Timestamp = binary.BigEndian.Uint32(p[0:4])

	tHdr := p[tGroupOffset]
	for ch := 0; ch < Channels; ch++ {
		val := slot(p, tGroupOffset, ch)
		if tHdr&(1<<(ch+4)) == 0 {
			continue
		}
		s.ActiveT[ch] = true
		if tHdr&(1<<ch) != 0 {
			s.FaultT[ch] = FaultCode(binary.BigEndian.Uint32(val))
		} else {
			s.Temperature[ch] = beFloat(val)
		}
	}

	pHdr := p[pGroupOffset]
	for ch := 0; ch < Channels; ch++ {
		if pHdr&(1<<(ch+4)) != 0 {
			s.Pressure[ch] = beFloat(slot(p, pGroupOffset, ch))
		}
	}

	rHdr := p[rGroupOffset]
	for ch := 0; ch < Channels; ch++ {
		if rHdr&(1<<(ch+4)) != 0 {
			s.RefTemperature[ch] = beFloat(slot(p, rGroupOffset, ch))
		}
	}

	return s, nil
}

// EncodeSample builds a full Data frame (header + payload) for s.
// Pressure and reference slots are flagged active when non-zero.
func EncodeSample(s Sample) []byte {
	out := make([]byte, 1+DataPayloadLen)
	out[0] = EncodeDataHeader(DataByteCount)
	p := out[1:]

	binary.BigEndian.PutUint32(p[0:4], s.Timestamp)

	for ch := 0; ch < Channels; ch++ {
		if !s.ActiveT[ch] {
			continue
		}
		p[tGroupOffset] |= 1 << (ch + 4)
		if s.FaultT[ch] != FaultNone {
			p[tGroupOffset] |= 1 << ch
			binary.BigEndian.PutUint32(slot(p, tGroupOffset, ch), uint32(s.FaultT[ch]))
		} else {
			putBEFloat(slot(p, tGroupOffset, ch), s.Temperature[ch])
		}
	}
	for ch := 0; ch < Channels; ch++ {
		if s.Pressure[ch] != 0 {
			p[pGroupOffset] |= 1 << (ch + 4)
			putBEFloat(slot(p, pGroupOffset, ch), s.Pressure[ch])
		}
		if s.RefTemperature[ch] != 0 {
			p[rGroupOffset] |= 1 << (ch + 4)
			putBEFloat(slot(p, rGroupOffset, ch), s.RefTemperature[ch])
		}
	}
	return out
}

// DecodeHaltCount decodes the 4-byte payload of a Halt frame.
func DecodeHaltCount(p []byte) (uint32, error) {
	if len(p) != HaltPayloadLen {
		return 0, fmt.Errorf("%w: halt payload %d bytes, want %d", ErrFraming, len(p), HaltPayloadLen)
	}
	return binary.BigEndian.Uint32(p), nil
}

// EncodeHalt builds a full Halt frame.
func EncodeHalt(count uint32) []byte {
	out := make([]byte, 1+HaltPayloadLen)
	out[0] = EncodeHeader(Header{Class: ClassHalt})
	binary.BigEndian.PutUint32(out[1:], count)
	return out
}

// HaltPayloadLen is the size of the final count that follows a Halt header.
const HaltPayloadLen = 4

func slot(p []byte, group, ch int) []byte {
	start := group + 1 + 4*ch
	return p[start : start+4]
}

func beFloat(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func putBEFloat(b []byte, v float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
}
