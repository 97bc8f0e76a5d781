// internal/sink/registers/client.go
package registers

// endpointClient is the exact contract the register sink writes through.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
	Close() error
}

// areaHoldingRegisters is the only memory area this sink writes.
const areaHoldingRegisters byte = 3

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
