// internal/sink/registers/modbus.go
package registers

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// modbusClient is a single Modbus TCP connection to one endpoint.
// It serializes requests because it mutates SlaveId per write.
type modbusClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func newModbusClient(endpoint string, timeout time.Duration) (*modbusClient, error) {
	if endpoint == "" {
		return nil, errors.New("registers modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &modbusClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *modbusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters ignores area: Modbus only accepts writes to holding registers.
func (c *modbusClient) WriteRegisters(_ byte, unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}
