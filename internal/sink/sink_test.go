// internal/sink/sink_test.go
package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/status"
)

var (
	_ Sink         = (*List)(nil)
	_ Sink         = (*CSV)(nil)
	_ Sink         = (*MQTT)(nil)
	_ Sink         = (*Redis)(nil)
	_ StatusWriter = (*List)(nil)
	_ StatusWriter = (*MQTT)(nil)
	_ StatusWriter = (*Redis)(nil)
)

func sample(ts uint32) frame.Sample {
	return frame.Sample{
		Timestamp:      ts,
		ActiveT:        [frame.Channels]bool{true, true, false, false},
		FaultT:         [frame.Channels]frame.FaultCode{0, frame.FaultOpenCircuit, 0, 0},
		Temperature:    [frame.Channels]float32{23.5, 0, 0, 0},
		RefTemperature: [frame.Channels]float32{21, 21, 0, 0},
		Pressure:       [frame.Channels]float32{101.25, 0, 0, 0},
	}
}

func TestList_Lifecycle(t *testing.T) {
	l := NewList()
	require.ErrorIs(t, l.Write(sample(1)), ErrNotOpen)

	require.NoError(t, l.Open())
	require.NoError(t, l.Write(sample(1)))
	require.NoError(t, l.Write(sample(2)))
	require.NoError(t, l.WriteStatus(status.Snapshot{Health: status.HealthOK, Samples: 2}))
	require.NoError(t, l.Close())

	require.ErrorIs(t, l.Write(sample(3)), ErrClosed)
	require.True(t, l.Closed())
	require.Len(t, l.Samples(), 2)

	st, ok := l.Status()
	require.True(t, ok)
	require.Equal(t, uint32(2), st.Samples)
}

func TestCSV_Rows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "ttyUSB0.csv")
	c := NewCSV(path)

	require.NoError(t, c.Open())
	require.NoError(t, c.Write(sample(1000)))
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Write(sample(1001)), ErrClosed)
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	header := strings.Split(lines[0], ",")
	require.Len(t, header, 21)
	require.Equal(t, "timestamp", header[0])
	require.Equal(t, "p3", header[20])

	require.Equal(t, "1000,1,1,0,0,0,1,0,0,23.5,0,0,0,21,21,0,0,101.25,0,0,0", lines[1])
}

func TestCSV_HeaderFailureLeavesSinkClosed(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	c := NewCSV("/dev/full")

	err := c.Open()
	require.ErrorContains(t, err, "header")
	require.ErrorIs(t, c.Write(sample(1)), ErrClosed)
	require.NoError(t, c.Close())

	// Not stuck in a half-open state.
	err = c.Open()
	require.ErrorContains(t, err, "header")
}

func TestRecord_JSON(t *testing.T) {
	b, err := json.Marshal(NewRecord("ttyUSB0", sample(7)))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, "ttyUSB0", got["port"])
	require.Equal(t, float64(7), got["timestamp_ms"])
	require.Equal(t, []interface{}{float64(0), float64(1), float64(0), float64(0)}, got["fault"])
}

func TestMQTT_Topics(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://localhost:1883", TopicPrefix: "lab/"}, "/dev/ttyUSB0")
	require.Equal(t, "lab/dev_ttyUSB0/sample", m.Topic("sample"))
	require.Equal(t, "mqtt:tcp://localhost:1883", m.Name())
	require.ErrorIs(t, m.Write(sample(1)), ErrClosed)
	require.NoError(t, m.Close())

	id := DefaultClientID("/dev/ttyUSB0")
	require.True(t, strings.HasPrefix(id, "ptprobe:"))
	require.True(t, strings.HasSuffix(id, ":dev_ttyUSB0"))
}

func TestRedis_Keys(t *testing.T) {
	r := NewRedis(RedisConfig{Addr: "localhost:6379"}, "ttyUSB0")
	require.Equal(t, "ptprobe:ttyUSB0:samples", r.ListKey())
	require.Equal(t, "ptprobe:ttyUSB0:status", r.StatusKey())
	require.ErrorIs(t, r.Write(sample(1)), ErrClosed)
	require.ErrorIs(t, r.WriteStatus(status.Snapshot{}), ErrClosed)
	require.NoError(t, r.Close())
}
