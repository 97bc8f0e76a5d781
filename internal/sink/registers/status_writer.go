// internal/sink/registers/status_writer.go
package registers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/ptprobe/internal/status"
)

// statusWriter delivers session status snapshots into a status block.
// The first write (and any write after a failure) asserts the full block
// including the port name; afterwards only changed slots are written.
type statusWriter struct {
	cli      endpointClient
	unitID   uint8
	baseAddr uint16
	port     string

	needFull bool
	last     []uint16
}

func newStatusWriter(cli endpointClient, unitID uint8, baseSlot uint16, port string) *statusWriter {
	return &statusWriter{
		cli:      cli,
		unitID:   unitID,
		baseAddr: baseSlot * status.SlotsPerSession,
		port:     port,
		needFull: true,
	}
}

func (sw *statusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return errors.New("status writer: no client")
	}
	regs := status.Encode(s, sw.port)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(areaHoldingRegisters, sw.unitID, sw.baseAddr, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string
	for slot := 0; slot < status.SlotPortNameStart; slot++ {
		if sw.last[slot] == regs[slot] {
			continue
		}
		addr := sw.baseAddr + uint16(slot)
		if err := sw.cli.WriteRegisters(areaHoldingRegisters, sw.unitID, addr, regs[slot:slot+1]); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		sw.last[slot] = regs[slot]
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}
