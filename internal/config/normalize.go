// internal/config/normalize.go
package config

import (
	"strings"
	"time"
)

const (
	DefaultDriver        = "goburrow"
	DefaultBaud          = 115200
	DefaultReadTimeoutMs = 2000
	DefaultHeartbeatMs   = 1000
	DefaultPollMs        = 1000
	DefaultSinkTimeoutMs = 2000
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultMetricsListen = ":9100"
)

// Normalize applies defaults and expands placeholders.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	NormalizeAt(cfg, time.Now())
}

// NormalizeAt is Normalize with a fixed clock for {time} expansion.
func NormalizeAt(cfg *Config, now time.Time) {
	if cfg == nil {
		return
	}

	if cfg.Acquisition.HeartbeatMs <= 0 {
		cfg.Acquisition.HeartbeatMs = DefaultHeartbeatMs
	}
	if cfg.Poll.IntervalMs <= 0 {
		cfg.Poll.IntervalMs = DefaultPollMs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}

	stamp := now.Format("20060102-150405")

	for pi := range cfg.Ports {
		p := &cfg.Ports[pi]

		if p.Driver == "" {
			p.Driver = DefaultDriver
		}
		if p.Baud <= 0 {
			p.Baud = DefaultBaud
		}
		if p.ReadTimeoutMs <= 0 {
			p.ReadTimeoutMs = DefaultReadTimeoutMs
		}

		for si := range p.Sinks {
			s := &p.Sinks[si]
			if s.TimeoutMs <= 0 {
				s.TimeoutMs = DefaultSinkTimeoutMs
			}
			if s.Type == SinkCSV {
				s.Path = strings.NewReplacer(
					"{port}", PortLabel(p.Name),
					"{time}", stamp,
				).Replace(s.Path)
			}
		}
	}
}

// PortLabel turns a device path or address into a file-name-safe label.
func PortLabel(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', ' ':
			return '_'
		}
		return r
	}, name)
}
