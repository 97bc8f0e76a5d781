// internal/board/client_test.go
package board

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/simulator"
	"github.com/tamzrod/ptprobe/internal/transport"
)

func newBoard(t *testing.T) (*Client, *simulator.Device) {
	t.Helper()
	dev := simulator.New(simulator.Config{Name: "sim0", BoardID: 0xBEEF, ReadTimeout: 50 * time.Millisecond})
	c := New(dev)
	require.NoError(t, c.Open())
	t.Cleanup(func() { _ = c.Close() })
	return c, dev
}

func TestChannelValidation_WritesNothing(t *testing.T) {
	c, dev := newBoard(t)

	for _, ch := range []int{-1, 4, 9} {
		_, err := c.Temperature(ch)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "ch=%d", ch)

		_, err = c.StatusTemperature(ch)
		require.True(t, errors.As(err, &verr))
		_, err = c.StatusPressure(ch)
		require.True(t, errors.As(err, &verr))
		require.True(t, errors.As(c.SetPressureCoeffs(ch, []float32{1}), &verr))
	}
	require.Empty(t, dev.Written())
}

func TestQueries(t *testing.T) {
	c, dev := newBoard(t)

	id, err := c.BoardID()
	require.NoError(t, err)
	require.Equal(t, uint32(0xBEEF), id)

	r, err := c.Temperature(1)
	require.NoError(t, err)
	require.Equal(t, float32(21), r.Value)
	require.NoError(t, r.Err())

	dev.SetValue(frame.KindRawADC, 3, 0.5)
	r, err = c.RawADC(3)
	require.NoError(t, err)
	require.Equal(t, float32(0.5), r.Value)

	r, err = c.RefTemperature(0)
	require.NoError(t, err)
	require.Equal(t, float32(21), r.Value)

	r, err = c.Pressure(3)
	require.NoError(t, err)
	want := frame.PressureStatus{Coeffs: frame.DefaultPressureCoeffs}.Pressure(0.5)
	require.Equal(t, want, r.Value)

	require.Equal(t, "AB\nAT1\nAA3\nAR0\nAP3\n", string(dev.Written()))
}

func TestQuery_ErrorFlagYieldsSentinel(t *testing.T) {
	c, dev := newBoard(t)
	dev.FailQuery(frame.KindTemperature, 2, 7)

	r, err := c.Temperature(2)
	require.NoError(t, err)
	require.Equal(t, frame.SentinelValue, r.Value)
	require.Equal(t, uint32(7), r.Code)

	var derr *frame.DeviceError
	require.True(t, errors.As(r.Err(), &derr))
	require.Equal(t, uint32(7), derr.Code)
	require.Equal(t, uint8(2), derr.Channel)

	// link stays aligned
	r, err = c.Temperature(0)
	require.NoError(t, err)
	require.Equal(t, float32(20), r.Value)
}

func TestBoardID_ErrorFlag(t *testing.T) {
	c, dev := newBoard(t)
	dev.FailQuery(frame.KindBoardID, 0, 3)

	_, err := c.BoardID()
	var derr *frame.DeviceError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, uint32(3), derr.Code)
	require.False(t, frame.IsFatal(err))
}

func TestStatusTemperature(t *testing.T) {
	c, dev := newBoard(t)
	dev.SetFault(1, frame.FaultOpenCircuit)

	st, err := c.StatusTemperature(1)
	require.NoError(t, err)
	require.Equal(t, uint8(1), st.Channel)
	require.Equal(t, frame.FaultOpenCircuit, st.Fault)

	dev.FailQuery(frame.KindStatusTemperature, 0, 0)
	_, err = c.StatusTemperature(0)
	require.ErrorIs(t, err, frame.ErrDeviceReported)
}

func TestStatusTemperature_BadValidityByte(t *testing.T) {
	c, dev := newBoard(t)
	hdr := frame.EncodeHeader(frame.Header{Class: frame.ClassResponse, Kind: frame.KindStatusTemperature, Error: true})
	dev.Inject([]byte{hdr, 0x00})

	_, err := c.StatusTemperature(0)
	require.ErrorIs(t, err, frame.ErrFraming)
}

func TestStatusPressure(t *testing.T) {
	c, _ := newBoard(t)

	ps, err := c.StatusPressure(2)
	require.NoError(t, err)
	require.Equal(t, uint8(2), ps.Channel)
	require.Equal(t, frame.DefaultPressureCoeffs, ps.Coeffs)
}

func TestStatusPressure_ErrorFlagIsUnexpected(t *testing.T) {
	c, dev := newBoard(t)
	dev.Inject([]byte{frame.EncodeHeader(frame.Header{Class: frame.ClassResponse, Kind: frame.KindStatusPressure, Error: true})})

	_, err := c.StatusPressure(0)
	require.ErrorIs(t, err, frame.ErrUnexpectedHeader)
}

func TestUnexpectedHeader(t *testing.T) {
	cases := []struct {
		name string
		hdr  frame.Header
	}{
		{"class", frame.Header{Class: frame.ClassData}},
		{"kind", frame.Header{Class: frame.ClassResponse, Kind: frame.KindPressure}},
		{"channel", frame.Header{Class: frame.ClassResponse, Kind: frame.KindTemperature, Channel: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, dev := newBoard(t)
			dev.Inject([]byte{frame.EncodeHeader(tc.hdr)})

			_, err := c.Temperature(0)
			require.ErrorIs(t, err, frame.ErrUnexpectedHeader)
			require.True(t, frame.IsFatal(err))
		})
	}
}

func TestConfiguration(t *testing.T) {
	c, dev := newBoard(t)

	var verr *ValidationError
	require.True(t, errors.As(c.SetDebugLevel(3), &verr))
	require.True(t, errors.As(c.SetPressureCoeffs(0, []float32{1, 2, 3, 4}), &verr))
	require.Empty(t, dev.Written())

	require.NoError(t, c.SetDebugLevel(2))
	require.Equal(t, int8(2), dev.DebugLevel())

	require.NoError(t, c.SetPressureCoeffs(1, []float32{1, 2, 3}))
	require.Equal(t, [3]float32{1, 2, 3}, dev.Coeffs(1))

	n := len(dev.Written())
	require.NoError(t, c.SetPressureCoeffs(1, nil))
	require.Len(t, dev.Written(), n)
	require.Equal(t, [3]float32{1, 2, 3}, dev.Coeffs(1))

	require.NoError(t, c.SetBoardID(42))
	require.Equal(t, uint32(42), dev.BoardID())
}

func TestStoreConfig_RequiresConfirm(t *testing.T) {
	c, dev := newBoard(t)

	var verr *ValidationError
	require.True(t, errors.As(c.StoreConfig(false), &verr))
	require.Empty(t, dev.Written())
	require.Zero(t, dev.Stores())

	require.NoError(t, c.StoreConfig(true))
	require.Equal(t, 1, dev.Stores())
}

func TestStream(t *testing.T) {
	c, _ := newBoard(t)
	require.NoError(t, c.StartRun(3))

	var last uint32
	for i := 0; i < 3; i++ {
		f, err := c.NextFrame()
		require.NoError(t, err)
		require.False(t, f.Halt)
		if i > 0 {
			require.Greater(t, f.Sample.Timestamp, last)
		}
		last = f.Sample.Timestamp
		require.True(t, f.Sample.ActiveT[0])
	}
	f, err := c.NextFrame()
	require.NoError(t, err)
	require.True(t, f.Halt)
	require.Equal(t, uint32(3), f.Count)

	_, err = c.NextFrame()
	require.ErrorIs(t, err, transport.ErrReadTimeout)
}

func TestStream_BadByteCount(t *testing.T) {
	c, dev := newBoard(t)
	dev.Inject([]byte{frame.EncodeDataHeader(12)})

	_, err := c.NextFrame()
	require.ErrorIs(t, err, frame.ErrFraming)
}
