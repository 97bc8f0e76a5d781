// internal/transport/driver.go
package transport

import (
	"fmt"
	"io"
	"net"
	"time"

	goserial "github.com/goburrow/serial"
	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

const (
	DriverGoburrow = "goburrow"
	DriverTarm     = "tarm"
	DriverBugst    = "bugst"
	DriverTCP      = "tcp"
)

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 2 * time.Second
)

// Config selects and parameterizes a driver. The line is always 8N1.
type Config struct {
	Driver      string
	Address     string // device path, or host:port for tcp
	Baud        int
	ReadTimeout time.Duration
}

// New builds an unopened Transport for cfg.
func New(cfg Config) (Transport, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("transport: address required")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	switch cfg.Driver {
	case "", DriverGoburrow:
		return NewStream(cfg.Address, goburrowOpener(cfg)), nil
	case DriverTarm:
		return NewStream(cfg.Address, tarmOpener(cfg)), nil
	case DriverBugst:
		return NewStream(cfg.Address, bugstOpener(cfg)), nil
	case DriverTCP:
		return NewStream(cfg.Address, tcpOpener(cfg)), nil
	default:
		return nil, fmt.Errorf("transport: unknown driver %q", cfg.Driver)
	}
}

// ----
// serial drivers
// ----

func goburrowOpener(cfg Config) Opener {
	return func() (io.ReadWriteCloser, error) {
		return goserial.Open(&goserial.Config{
			Address:  cfg.Address,
			BaudRate: cfg.Baud,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  cfg.ReadTimeout,
		})
	}
}

func tarmOpener(cfg Config) Opener {
	return func() (io.ReadWriteCloser, error) {
		return tarm.OpenPort(&tarm.Config{
			Name:        cfg.Address,
			Baud:        cfg.Baud,
			ReadTimeout: cfg.ReadTimeout,
			Size:        8,
			Parity:      tarm.ParityNone,
			StopBits:    tarm.Stop1,
		})
	}
}

func bugstOpener(cfg Config) Opener {
	return func() (io.ReadWriteCloser, error) {
		port, err := bugst.Open(cfg.Address, &bugst.Mode{
			BaudRate: cfg.Baud,
			DataBits: 8,
			Parity:   bugst.NoParity,
			StopBits: bugst.OneStopBit,
		})
		if err != nil {
			return nil, err
		}
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
		return port, nil
	}
}

// ----
// tcp bridge (ser2net style)
// ----

func tcpOpener(cfg Config) Opener {
	return func() (io.ReadWriteCloser, error) {
		conn, err := net.DialTimeout("tcp", cfg.Address, cfg.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, timeout: cfg.ReadTimeout}, nil
	}
}

// deadlineConn arms a fresh read deadline before every Read.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(p)
}
