// internal/config/config.go
package config

type Config struct {
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Poll        PollConfig        `yaml:"poll"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Ports       []PortConfig      `yaml:"ports"`
}

// ---- ACQUISITION ----

type AcquisitionConfig struct {
	// Samples per run; 0 runs until stopped by timeout or signal.
	Samples     uint32 `yaml:"samples"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
	// Buffer keeps every sample in memory for the final result.
	Buffer bool `yaml:"buffer"`
}

// ---- POLL (one-shot query mode) ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level    string `yaml:"level"`  // debug|info|warn|error
	Format   string `yaml:"format"` // text|json
	Output   string `yaml:"output"` // stdout|file
	FilePath string `yaml:"file_path"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ---- PORT ----

type PortConfig struct {
	// Name is the device path, or host:port for the tcp driver.
	Name          string       `yaml:"name"`
	Driver        string       `yaml:"driver"` // goburrow|tarm|bugst|tcp|sim
	Baud          int          `yaml:"baud"`
	ReadTimeoutMs int          `yaml:"read_timeout_ms"`
	DebugLevel    *int         `yaml:"debug_level"`
	Sinks         []SinkConfig `yaml:"sinks"`
}

// ---- SINK ----

const (
	SinkList      = "list"
	SinkCSV       = "csv"
	SinkMQTT      = "mqtt"
	SinkRedis     = "redis"
	SinkRegisters = "registers"
)

type SinkConfig struct {
	Type      string `yaml:"type"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// csv
	Path string `yaml:"path"`

	// mqtt
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`

	// redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	ListMax  int64  `yaml:"list_max"`

	// registers
	Protocol   string  `yaml:"protocol"` // modbus|ingest
	Endpoint   string  `yaml:"endpoint"`
	UnitID     uint8   `yaml:"unit_id"`
	DataBase   uint16  `yaml:"data_base"`
	StatusSlot *uint16 `yaml:"status_slot"` // opt-in status block
}
