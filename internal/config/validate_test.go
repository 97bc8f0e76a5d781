// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func slot(v uint16) *uint16 { return &v }

// helper to build a port with one register sink
func regPort(name, endpoint string, unitID uint8, base uint16, status *uint16) PortConfig {
	return PortConfig{
		Name: name,
		Sinks: []SinkConfig{{
			Type:       SinkRegisters,
			Endpoint:   endpoint,
			UnitID:     unitID,
			DataBase:   base,
			StatusSlot: status,
		}},
	}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{{Name: "/dev/ttyUSB0"}}}
	require.NoError(t, Validate(cfg))
}

func TestValidate_Rejects(t *testing.T) {
	lvl := 3
	cases := map[string]*Config{
		"no ports":       {},
		"empty name":     {Ports: []PortConfig{{}}},
		"duplicate port": {Ports: []PortConfig{{Name: "a"}, {Name: "a"}}},
		"driver":         {Ports: []PortConfig{{Name: "a", Driver: "usb"}}},
		"debug level":    {Ports: []PortConfig{{Name: "a", DebugLevel: &lvl}}},
		"log format":     {Log: LogConfig{Format: "xml"}, Ports: []PortConfig{{Name: "a"}}},
		"log file":       {Log: LogConfig{Output: "file"}, Ports: []PortConfig{{Name: "a"}}},
		"sink type":      {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: "kafka"}}}}},
		"csv path":       {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkCSV}}}}},
		"mqtt broker":    {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkMQTT}}}}},
		"mqtt qos":       {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkMQTT, Broker: "tcp://x:1883", QoS: 3}}}}},
		"redis addr":     {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkRedis}}}}},
		"reg endpoint":   {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkRegisters}}}}},
		"reg protocol":   {Ports: []PortConfig{{Name: "a", Sinks: []SinkConfig{{Type: SinkRegisters, Endpoint: "x:502", Protocol: "bacnet"}}}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_NoOverlapDifferentEndpoints(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 0, nil),
		regPort("b", "ep2:502", 1, 0, nil),
	}}
	require.NoError(t, Validate(cfg))
}

func TestValidate_NoOverlapDifferentUnit(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 0, nil),
		regPort("b", "ep1:502", 2, 0, nil),
	}}
	require.NoError(t, Validate(cfg))
}

func TestValidate_DataOverlap(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 0, nil),
		regPort("b", "ep1:502", 1, 10, nil),
	}}
	require.ErrorContains(t, Validate(cfg), "register overlap")
}

func TestValidate_AdjacentBlocks(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 0, nil),
		regPort("b", "ep1:502", 1, 30, nil),
	}}
	require.NoError(t, Validate(cfg))
}

func TestValidate_StatusSlotCollision(t *testing.T) {
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 1000, slot(5)),
		regPort("b", "ep1:502", 1, 2000, slot(5)),
	}}
	require.ErrorContains(t, Validate(cfg), "status_slot collision")
}

func TestValidate_StatusOverlapsData(t *testing.T) {
	// slot 1 covers registers 20-39; data block at 0 covers 0-29
	cfg := &Config{Ports: []PortConfig{
		regPort("a", "ep1:502", 1, 0, slot(1)),
	}}
	require.ErrorContains(t, Validate(cfg), "register overlap")
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
		Ports: []PortConfig{{
			Name:  "/dev/ttyUSB0",
			Sinks: []SinkConfig{{Type: SinkCSV, Path: "out/{port}-{time}.csv"}},
		}},
	}
	require.NoError(t, Validate(cfg))
	NormalizeAt(cfg, time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC))

	p := cfg.Ports[0]
	require.Equal(t, DefaultDriver, p.Driver)
	require.Equal(t, DefaultBaud, p.Baud)
	require.Equal(t, DefaultReadTimeoutMs, p.ReadTimeoutMs)
	require.Equal(t, "out/ttyUSB0-20240301-123005.csv", p.Sinks[0].Path)
	require.Equal(t, DefaultSinkTimeoutMs, p.Sinks[0].TimeoutMs)
	require.Equal(t, DefaultHeartbeatMs, cfg.Acquisition.HeartbeatMs)
	require.Equal(t, DefaultLogLevel, cfg.Log.Level)
	require.Equal(t, DefaultMetricsListen, cfg.Metrics.Listen)
}

func TestPortLabel(t *testing.T) {
	require.Equal(t, "ttyUSB0", PortLabel("/dev/ttyUSB0"))
	require.Equal(t, "COM3", PortLabel("COM3"))
	require.Equal(t, "10.0.0.5_4001", PortLabel("10.0.0.5:4001"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
acquisition:
  samples: 100
  timeout_ms: 5000
log:
  level: debug
ports:
  - name: /dev/ttyUSB0
    driver: tarm
    debug_level: 1
    sinks:
      - type: csv
        path: data/{port}.csv
      - type: registers
        endpoint: 127.0.0.1:502
        unit_id: 3
        status_slot: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Equal(t, uint32(100), cfg.Acquisition.Samples)
	require.Equal(t, "tarm", cfg.Ports[0].Driver)
	require.Equal(t, 1, *cfg.Ports[0].DebugLevel)
	require.Equal(t, uint16(4), *cfg.Ports[0].Sinks[1].StatusSlot)

	require.NoError(t, os.WriteFile(path, []byte("ports:\n  - nme: x\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
