// internal/transport/transport_test.go
package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunkRWC hands out at most one byte per Read and then reports zero-byte
// reads, like a serial driver whose timeout expired.
type chunkRWC struct {
	in     []byte
	out    bytes.Buffer
	closed bool
}

func (c *chunkRWC) Read(p []byte) (int, error) {
	if len(c.in) == 0 {
		return 0, nil
	}
	p[0] = c.in[0]
	c.in = c.in[1:]
	return 1, nil
}

func (c *chunkRWC) Write(p []byte) (int, error) {
	if len(p) > 2 {
		p = p[:2]
	}
	return c.out.Write(p)
}

func (c *chunkRWC) Close() error {
	c.closed = true
	return nil
}

func openStream(t *testing.T, rwc io.ReadWriteCloser) *Stream {
	t.Helper()
	s := NewStream("fake0", func() (io.ReadWriteCloser, error) { return rwc, nil })
	require.NoError(t, s.Open())
	return s
}

func TestStream_ReadExactAccumulates(t *testing.T) {
	rwc := &chunkRWC{in: []byte{1, 2, 3, 4, 5}}
	s := openStream(t, rwc)

	b, err := s.ReadExact(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b)
}

func TestStream_ZeroReadIsTimeout(t *testing.T) {
	rwc := &chunkRWC{in: []byte{1}}
	s := openStream(t, rwc)

	_, err := s.ReadExact(2)
	require.ErrorIs(t, err, ErrReadTimeout)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "read", terr.Op)
	require.Equal(t, "fake0", terr.Port)
}

func TestStream_WriteAllLoopsShortWrites(t *testing.T) {
	rwc := &chunkRWC{}
	s := openStream(t, rwc)

	require.NoError(t, s.WriteAll([]byte("AT0\n")))
	require.Equal(t, "AT0\n", rwc.out.String())
}

func TestStream_NotOpen(t *testing.T) {
	rwc := &chunkRWC{}
	s := openStream(t, rwc)
	require.NoError(t, s.Close())
	require.True(t, rwc.closed)

	_, err := s.ReadExact(1)
	require.ErrorIs(t, err, ErrNotOpen)
	require.ErrorIs(t, s.WriteAll([]byte{1}), ErrNotOpen)
	require.NoError(t, s.Close())
}

func TestStream_OpenError(t *testing.T) {
	boom := errors.New("no such device")
	s := NewStream("ttyX", func() (io.ReadWriteCloser, error) { return nil, boom })

	err := s.Open()
	require.ErrorIs(t, err, boom)
}

func TestNew_Drivers(t *testing.T) {
	for _, d := range []string{"", DriverGoburrow, DriverTarm, DriverBugst, DriverTCP} {
		tr, err := New(Config{Driver: d, Address: "/dev/ttyUSB0"})
		require.NoError(t, err, d)
		require.Equal(t, "/dev/ttyUSB0", tr.Name())
	}

	_, err := New(Config{Driver: "usb", Address: "x"})
	require.Error(t, err)

	_, err = New(Config{Driver: DriverTarm})
	require.Error(t, err)
}

func TestTCP_RoundTripAndTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		got <- buf
		_, _ = conn.Write([]byte{0x90, 0x41, 0xBC, 0x00, 0x00})
		time.Sleep(time.Second)
	}()

	tr, err := New(Config{Driver: DriverTCP, Address: ln.Addr().String(), ReadTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, tr.Open())
	defer tr.Close()

	require.NoError(t, tr.WriteAll([]byte("AB\n")))
	require.Equal(t, []byte("AB\n"), <-got)

	b, err := tr.ReadExact(5)
	require.NoError(t, err)
	require.Equal(t, byte(0x90), b[0])

	_, err = tr.ReadExact(1)
	require.ErrorIs(t, err, ErrReadTimeout)
}
