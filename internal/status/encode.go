// internal/status/encode.go
package status

// Encode converts a Snapshot into a full session status block.
// No IO. No side effects.
func Encode(s Snapshot, portName string) []uint16 {
	regs := make([]uint16, SlotsPerSession)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotState] = s.State
	regs[SlotSamplesHi] = uint16(s.Samples >> 16)
	regs[SlotSamplesLo] = uint16(s.Samples)
	regs[SlotMeanIntervalMs] = s.MeanIntervalMs
	regs[SlotMaxIntervalMs] = s.MaxIntervalMs
	regs[SlotBoardIDHi] = uint16(s.BoardID >> 16)
	regs[SlotBoardIDLo] = uint16(s.BoardID)

	copy(regs[SlotPortNameStart:], EncodePortName(portName))
	return regs
}

// EncodePortName packs up to 16 ASCII characters into 8 registers,
// two characters per register, big-endian.
func EncodePortName(name string) []uint16 {
	out := make([]uint16, SlotPortNameSlots)

	b := []byte(name)
	if len(b) > PortNameMaxChars {
		b = b[len(b)-PortNameMaxChars:]
	}
	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < PortNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}
