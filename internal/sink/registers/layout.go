// internal/sink/registers/layout.go
package registers

import (
	"math"

	"github.com/tamzrod/ptprobe/internal/frame"
)

// Sample block layout (holding registers, relative to the data base).
//
//	0-1    sequence number (hi, lo)
//	2-3    device timestamp ms (hi, lo)
//	4      T active mask (bits 0-3)
//	5      T fault codes, 4 bits per channel (ch0 in bits 0-3)
//	6-13   T0..T3     float32, two registers each, high word first
//	14-21  Tref0..3
//	22-29  P0..P3
const (
	SlotSequence  = 0
	SlotTimestamp = 2
	SlotActive    = 4
	SlotFaults    = 5
	SlotT         = 6
	SlotTref      = SlotT + 2*frame.Channels
	SlotP         = SlotTref + 2*frame.Channels

	SampleRegs = SlotP + 2*frame.Channels
)

// EncodeSample converts one sample into its register block.
func EncodeSample(seq uint32, s frame.Sample) []uint16 {
	regs := make([]uint16, SampleRegs)

	putU32(regs[SlotSequence:], seq)
	putU32(regs[SlotTimestamp:], s.Timestamp)

	for ch := 0; ch < frame.Channels; ch++ {
		if s.ActiveT[ch] {
			regs[SlotActive] |= 1 << ch
		}
		regs[SlotFaults] |= uint16(s.FaultT[ch]&0x0F) << (4 * ch)

		putU32(regs[SlotT+2*ch:], math.Float32bits(s.Temperature[ch]))
		putU32(regs[SlotTref+2*ch:], math.Float32bits(s.RefTemperature[ch]))
		putU32(regs[SlotP+2*ch:], math.Float32bits(s.Pressure[ch]))
	}
	return regs
}

func putU32(dst []uint16, v uint32) {
	dst[0] = uint16(v >> 16)
	dst[1] = uint16(v)
}
