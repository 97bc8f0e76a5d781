// internal/transport/transport.go
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	goserial "github.com/goburrow/serial"
)

// Transport is a byte pipe to one board.
//
// ReadExact and WriteAll may run at the same time from two goroutines
// (a stream loop reading while a stop request writes). Neither is ever
// called concurrently with itself.
type Transport interface {
	Open() error
	ReadExact(n int) ([]byte, error)
	WriteAll(b []byte) error
	Close() error
	Name() string
}

var (
	// ErrReadTimeout is returned when the driver delivered no byte before its
	// read timeout expired.
	ErrReadTimeout = errors.New("transport: read timeout")
	// ErrNotOpen is returned by I/O on a transport that is not open.
	ErrNotOpen = errors.New("transport: not open")
)

// Error is a failure of the underlying link.
type Error struct {
	Op   string
	Port string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Opener dials the underlying link.
type Opener func() (io.ReadWriteCloser, error)

// Stream adapts any io.ReadWriteCloser into a Transport.
type Stream struct {
	name string
	open Opener

	mu  sync.Mutex
	rwc io.ReadWriteCloser
}

func NewStream(name string, open Opener) *Stream {
	return &Stream{name: name, open: open}
}

func (s *Stream) Name() string { return s.name }

func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rwc != nil {
		return nil
	}
	rwc, err := s.open()
	if err != nil {
		return &Error{Op: "open", Port: s.name, Err: err}
	}
	s.rwc = rwc
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	rwc := s.rwc
	s.rwc = nil
	s.mu.Unlock()

	if rwc == nil {
		return nil
	}
	if err := rwc.Close(); err != nil {
		return &Error{Op: "close", Port: s.name, Err: err}
	}
	return nil
}

// ReadExact blocks until n bytes arrived, the driver timed out, or the
// link failed. A zero-byte read without error counts as a timeout.
func (s *Stream) ReadExact(n int) ([]byte, error) {
	rwc, err := s.conn("read")
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	for off := 0; off < n; {
		k, err := rwc.Read(buf[off:])
		off += k
		if err != nil {
			if off == n && errors.Is(err, io.EOF) {
				break
			}
			if isTimeout(err) {
				err = ErrReadTimeout
			}
			return nil, &Error{Op: "read", Port: s.name, Err: err}
		}
		if k == 0 {
			return nil, &Error{Op: "read", Port: s.name, Err: ErrReadTimeout}
		}
	}
	return buf, nil
}

func (s *Stream) WriteAll(b []byte) error {
	rwc, err := s.conn("write")
	if err != nil {
		return err
	}
	for len(b) > 0 {
		n, err := rwc.Write(b)
		if err != nil {
			return &Error{Op: "write", Port: s.name, Err: err}
		}
		b = b[n:]
	}
	return nil
}

func (s *Stream) conn(op string) (io.ReadWriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rwc == nil {
		return nil, &Error{Op: op, Port: s.name, Err: ErrNotOpen}
	}
	return s.rwc, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, goserial.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
