// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/ptprobe/internal/sink/registers"
	"github.com/tamzrod/ptprobe/internal/status"
)

var knownDrivers = map[string]bool{
	"": true, "goburrow": true, "tarm": true, "bugst": true, "tcp": true, "sim": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if len(cfg.Ports) == 0 {
		return fmt.Errorf("config: at least one port required")
	}
	if cfg.Acquisition.TimeoutMs < 0 {
		return fmt.Errorf("acquisition.timeout_ms must be >= 0")
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", cfg.Log.Format)
	}
	if cfg.Log.Output == "file" && cfg.Log.FilePath == "" {
		return fmt.Errorf("log.output is file but log.file_path is empty")
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Ports {
		if p.Name == "" {
			return fmt.Errorf("port: name required")
		}
		if seen[p.Name] {
			return fmt.Errorf("port %q: duplicate", p.Name)
		}
		seen[p.Name] = true

		if !knownDrivers[p.Driver] {
			return fmt.Errorf("port %q: unknown driver %q", p.Name, p.Driver)
		}
		if p.Baud < 0 || p.ReadTimeoutMs < 0 {
			return fmt.Errorf("port %q: baud and read_timeout_ms must be >= 0", p.Name)
		}
		if p.DebugLevel != nil && (*p.DebugLevel < 0 || *p.DebugLevel > 2) {
			return fmt.Errorf("port %q: debug_level %d not in [0,2]", p.Name, *p.DebugLevel)
		}

		for i, s := range p.Sinks {
			if err := validateSink(s); err != nil {
				return fmt.Errorf("port %q sink %d: %w", p.Name, i, err)
			}
		}
	}

	return validateRegisterGeometry(cfg)
}

func validateSink(s SinkConfig) error {
	switch s.Type {
	case SinkList:
	case SinkCSV:
		if s.Path == "" {
			return fmt.Errorf("csv: path required")
		}
	case SinkMQTT:
		if s.Broker == "" {
			return fmt.Errorf("mqtt: broker required")
		}
		if s.QoS > 2 {
			return fmt.Errorf("mqtt: qos %d not in [0,2]", s.QoS)
		}
	case SinkRedis:
		if s.Addr == "" {
			return fmt.Errorf("redis: addr required")
		}
	case SinkRegisters:
		if s.Endpoint == "" {
			return fmt.Errorf("registers: endpoint required")
		}
		switch s.Protocol {
		case "", registers.ProtocolModbus, registers.ProtocolIngest:
		default:
			return fmt.Errorf("registers: unknown protocol %q", s.Protocol)
		}
	default:
		return fmt.Errorf("unknown sink type %q", s.Type)
	}
	if s.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must be >= 0")
	}
	return nil
}

// validateRegisterGeometry rejects register sinks whose sample blocks or
// status blocks overlap on the same endpoint and unit.
func validateRegisterGeometry(cfg *Config) error {
	type span struct {
		start uint32
		end   uint32
		port  string
	}

	// key = endpoint | unit_id
	spans := make(map[string][]span)
	// key = endpoint | unit_id | status_slot
	statusOwner := make(map[string]string)

	for _, p := range cfg.Ports {
		for _, s := range p.Sinks {
			if s.Type != SinkRegisters {
				continue
			}
			key := fmt.Sprintf("%s|%d", s.Endpoint, s.UnitID)

			add := func(start, n uint32, what string) error {
				end := start + n - 1
				if end > 0xFFFF {
					return fmt.Errorf("port %q: %s range %d-%d exceeds register space", p.Name, what, start, end)
				}
				for _, o := range spans[key] {
					// overlap check (inclusive)
					if !(end < o.start || start > o.end) {
						return fmt.Errorf(
							"register overlap: endpoint=%s unit_id=%d %s range=%d-%d of port %q overlaps port %q range=%d-%d",
							s.Endpoint, s.UnitID, what, start, end, p.Name, o.port, o.start, o.end,
						)
					}
				}
				spans[key] = append(spans[key], span{start: start, end: end, port: p.Name})
				return nil
			}

			if err := add(uint32(s.DataBase), registers.SampleRegs, "data"); err != nil {
				return err
			}

			if s.StatusSlot == nil {
				continue
			}
			skey := fmt.Sprintf("%s|%d", key, *s.StatusSlot)
			if prev, exists := statusOwner[skey]; exists {
				return fmt.Errorf(
					"status_slot collision: endpoint=%s unit_id=%d slot=%d used by ports %q and %q",
					s.Endpoint, s.UnitID, *s.StatusSlot, prev, p.Name,
				)
			}
			statusOwner[skey] = p.Name

			base := uint32(*s.StatusSlot) * status.SlotsPerSession
			if err := add(base, status.SlotsPerSession, "status"); err != nil {
				return err
			}
		}
	}
	return nil
}
