// internal/sink/registers/ingest.go
package registers

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	magicHi byte = 0x52 // 'R'
	magicLo byte = 0x49 // 'I'

	versionV1 byte = 0x01

	respOK       byte = 0x00
	respRejected byte = 0x01
)

// ingestClient speaks Raw Ingest v1: one packet per connection, one status
// byte back.
type ingestClient struct {
	endpoint string
	timeout  time.Duration
}

func newIngestClient(endpoint string, timeout time.Duration) (*ingestClient, error) {
	if endpoint == "" {
		return nil, errors.New("registers ingest: endpoint required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ingestClient{endpoint: endpoint, timeout: timeout}, nil
}

func (c *ingestClient) Close() error { return nil }

func (c *ingestClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	pkt := buildPacketV1(area, unitID, addr, uint16(len(regs)), packRegisters(regs))

	conn, err := net.DialTimeout("tcp", c.endpoint, c.timeout)
	if err != nil {
		return fmt.Errorf("registers ingest: dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(pkt); err != nil {
		return fmt.Errorf("registers ingest: write: %w", err)
	}

	var resp [1]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("registers ingest: read status: %w", err)
	}

	switch resp[0] {
	case respOK:
		return nil
	case respRejected:
		return errors.New("registers ingest: rejected")
	default:
		return fmt.Errorf("registers ingest: unknown status 0x%02x", resp[0])
	}
}

// ---- Raw Ingest v1 packet ----
//
// 0-1  magic "RI"
// 2    version (0x01)
// 3    area
// 4-5  unit id
// 6-7  address
// 8-9  count
// 10+  payload
func buildPacketV1(area byte, unitID uint8, addr, count uint16, payload []byte) []byte {
	pkt := make([]byte, 10, 10+len(payload))
	pkt[0] = magicHi
	pkt[1] = magicLo
	pkt[2] = versionV1
	pkt[3] = area
	putU16(pkt[4:6], uint16(unitID))
	putU16(pkt[6:8], addr)
	putU16(pkt[8:10], count)
	return append(pkt, payload...)
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}
