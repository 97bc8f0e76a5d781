// internal/sink/registers/registers_test.go
package registers

import (
	"errors"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/sink"
	"github.com/tamzrod/ptprobe/internal/status"
)

type write struct {
	area   byte
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []write
	fail   error
	closed bool
}

func (f *fakeEndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes = append(f.writes, write{area, unitID, addr, append([]uint16(nil), regs...)})
	return nil
}

func (f *fakeEndpointClient) Close() error {
	f.closed = true
	return nil
}

func (f *fakeEndpointClient) last() write { return f.writes[len(f.writes)-1] }

var (
	_ sink.Sink         = (*Sink)(nil)
	_ sink.StatusWriter = (*Sink)(nil)
)

func openFakeSink(t *testing.T, cfg Config) (*Sink, *fakeEndpointClient) {
	t.Helper()
	cli := &fakeEndpointClient{}
	s := newSink(cfg, "ttyUSB0", func() (endpointClient, error) { return cli, nil })
	require.NoError(t, s.Open())
	return s, cli
}

func TestEncodeSample(t *testing.T) {
	s := frame.Sample{
		Timestamp:   0x00010002,
		ActiveT:     [frame.Channels]bool{true, false, true, false},
		FaultT:      [frame.Channels]frame.FaultCode{0, 0, frame.FaultGroundShort, 0},
		Temperature: [frame.Channels]float32{23.5},
		Pressure:    [frame.Channels]float32{0, 0, 0, 101.5},
	}
	regs := EncodeSample(9, s)

	require.Len(t, regs, SampleRegs)
	require.Equal(t, []uint16{0, 9, 1, 2}, regs[:4])
	require.Equal(t, uint16(0b0101), regs[SlotActive])
	require.Equal(t, uint16(2)<<8, regs[SlotFaults])
	require.Equal(t, []uint16{0x41BC, 0x0000}, regs[SlotT:SlotT+2])

	bits := uint32(regs[SlotP+6])<<16 | uint32(regs[SlotP+7])
	require.Equal(t, float32(101.5), math.Float32frombits(bits))
}

func TestSink_WriteSample(t *testing.T) {
	s, cli := openFakeSink(t, Config{UnitID: 4, DataBase: 100})

	require.NoError(t, s.Write(frame.Sample{Timestamp: 1}))
	require.NoError(t, s.Write(frame.Sample{Timestamp: 2}))

	require.Len(t, cli.writes, 2)
	w := cli.last()
	require.Equal(t, areaHoldingRegisters, w.area)
	require.Equal(t, uint8(4), w.unitID)
	require.Equal(t, uint16(100), w.addr)
	require.Equal(t, uint16(2), w.regs[SlotSequence+1])

	require.NoError(t, s.Close())
	require.True(t, cli.closed)
	require.ErrorIs(t, s.Write(frame.Sample{}), sink.ErrClosed)
}

func TestSink_StatusDisabled(t *testing.T) {
	s, cli := openFakeSink(t, Config{})
	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthOK}))
	require.Empty(t, cli.writes)
}

func TestStatus_PortNameWrittenOnFullAssertOnly(t *testing.T) {
	s, cli := openFakeSink(t, Config{UnitID: 1, StatusSlot: 2, Status: true})

	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthOK, Samples: 10}))
	full := cli.last()
	require.Len(t, full.regs, status.SlotsPerSession)
	require.Equal(t, uint16(2*status.SlotsPerSession), full.addr)
	require.Equal(t, status.EncodePortName("ttyUSB0"), full.regs[status.SlotPortNameStart:])

	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 7, Samples: 10}))
	require.Len(t, cli.writes, 3)
	for _, w := range cli.writes[1:] {
		require.Len(t, w.regs, 1)
	}
	require.Equal(t, uint16(2*status.SlotsPerSession+status.SlotHealthCode), cli.writes[1].addr)
	require.Equal(t, uint16(2*status.SlotsPerSession+status.SlotLastErrorCode), cli.writes[2].addr)

	// unchanged snapshot writes nothing
	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 7, Samples: 10}))
	require.Len(t, cli.writes, 3)
}

func TestStatus_FailureForcesFullReassert(t *testing.T) {
	s, cli := openFakeSink(t, Config{Status: true})
	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthOK}))

	cli.fail = errors.New("link down")
	require.Error(t, s.WriteStatus(status.Snapshot{Health: status.HealthError}))

	cli.fail = nil
	require.NoError(t, s.WriteStatus(status.Snapshot{Health: status.HealthError}))
	require.Len(t, cli.last().regs, status.SlotsPerSession)
}

func TestNew_UnknownProtocol(t *testing.T) {
	_, err := New(Config{Protocol: "bacnet"}, "x")
	require.Error(t, err)
}

func TestBuildPacketV1(t *testing.T) {
	pkt := buildPacketV1(3, 7, 0x0102, 2, packRegisters([]uint16{0xAABB, 0xCCDD}))
	require.Equal(t, []byte{'R', 'I', 0x01, 3, 0, 7, 1, 2, 0, 2, 0xAA, 0xBB, 0xCC, 0xDD}, pkt)
}

func TestIngestClient_RoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 2)
	go func() {
		for _, code := range []byte{respOK, respRejected} {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 12)
			if _, err := io.ReadFull(conn, buf); err == nil {
				got <- buf
			}
			_, _ = conn.Write([]byte{code})
			conn.Close()
		}
	}()

	cli, err := newIngestClient(ln.Addr().String(), time.Second)
	require.NoError(t, err)

	require.NoError(t, cli.WriteRegisters(areaHoldingRegisters, 1, 10, []uint16{0x1234}))
	require.Equal(t, []byte{'R', 'I', 1, 3, 0, 1, 0, 10, 0, 1, 0x12, 0x34}, <-got)

	require.Error(t, cli.WriteRegisters(areaHoldingRegisters, 1, 10, []uint16{0x1234}))
}
