// internal/sink/mqtt.go
package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/status"
)

// MQTTConfig configures an MQTT sink.
type MQTTConfig struct {
	Broker      string // tcp://host:1883
	ClientID    string // defaults to ptprobe:<machine id>:<port>
	TopicPrefix string // topics are <prefix><port>/sample and <prefix><port>/status
	QoS         byte
	Timeout     time.Duration
}

// MQTT publishes each sample as JSON.
type MQTT struct {
	cfg    MQTTConfig
	port   string
	client paho.Client
}

func NewMQTT(cfg MQTTConfig, port string) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{cfg: cfg, port: port}
}

func (m *MQTT) Name() string { return "mqtt:" + m.cfg.Broker }

func (m *MQTT) Open() error {
	id := m.cfg.ClientID
	if id == "" {
		id = DefaultClientID(m.port)
	}
	opts := paho.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(id).
		SetConnectTimeout(m.cfg.Timeout).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(m.cfg.Timeout) {
		return fmt.Errorf("sink mqtt: connect %s: timeout", m.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("sink mqtt: connect %s: %w", m.cfg.Broker, err)
	}
	m.client = client
	return nil
}

func (m *MQTT) Write(s frame.Sample) error {
	return m.publish("sample", NewRecord(m.port, s))
}

func (m *MQTT) WriteStatus(s status.Snapshot) error {
	return m.publish("status", s)
}

func (m *MQTT) Close() error {
	if m.client == nil {
		return nil
	}
	m.client.Disconnect(250)
	m.client = nil
	return nil
}

// Topic returns the topic used for one message kind.
func (m *MQTT) Topic(kind string) string {
	return m.cfg.TopicPrefix + topicSegment(m.port) + "/" + kind
}

func (m *MQTT) publish(kind string, v interface{}) error {
	if m.client == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sink mqtt: encode: %w", err)
	}
	token := m.client.Publish(m.Topic(kind), m.cfg.QoS, false, payload)
	if !token.WaitTimeout(m.cfg.Timeout) {
		return fmt.Errorf("sink mqtt: publish %s: timeout", m.Topic(kind))
	}
	return token.Error()
}

// DefaultClientID derives a stable client id from the host machine id.
func DefaultClientID(port string) string {
	id, err := machineid.ID()
	if err != nil || id == "" {
		id = "unknown"
	} else if len(id) > 12 {
		id = id[:12]
	}
	return "ptprobe:" + id + ":" + topicSegment(port)
}

// topicSegment turns a device path into a single topic level.
func topicSegment(port string) string {
	b := []byte(port)
	for len(b) > 0 && b[0] == '/' {
		b = b[1:]
	}
	for i, c := range b {
		switch c {
		case '/', '+', '#':
			b[i] = '_'
		}
	}
	return string(b)
}
