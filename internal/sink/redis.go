// internal/sink/redis.go
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/status"
)

// RedisConfig configures a Redis sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string // pub/sub channel, default "ptprobe:samples"
	ListMax  int64  // capped history per port, default 1000
	Timeout  time.Duration
}

// Redis publishes samples on a channel and keeps a capped per-port list.
type Redis struct {
	cfg    RedisConfig
	port   string
	client *redis.Client
}

func NewRedis(cfg RedisConfig, port string) *Redis {
	if cfg.Channel == "" {
		cfg.Channel = "ptprobe:samples"
	}
	if cfg.ListMax <= 0 {
		cfg.ListMax = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Redis{cfg: cfg, port: port}
}

func (r *Redis) Name() string { return "redis:" + r.cfg.Addr }

// ListKey is the per-port history list.
func (r *Redis) ListKey() string { return fmt.Sprintf("ptprobe:%s:samples", r.port) }

// StatusKey holds the last status snapshot of the port.
func (r *Redis) StatusKey() string { return fmt.Sprintf("ptprobe:%s:status", r.port) }

func (r *Redis) Open() error {
	client := redis.NewClient(&redis.Options{
		Addr:         r.cfg.Addr,
		Password:     r.cfg.Password,
		DB:           r.cfg.DB,
		DialTimeout:  r.cfg.Timeout,
		ReadTimeout:  r.cfg.Timeout,
		WriteTimeout: r.cfg.Timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("sink redis: connect %s: %w", r.cfg.Addr, err)
	}
	r.client = client
	return nil
}

func (r *Redis) Write(s frame.Sample) error {
	if r.client == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(NewRecord(r.port, s))
	if err != nil {
		return fmt.Errorf("sink redis: encode: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, r.cfg.Channel, payload)
	pipe.LPush(ctx, r.ListKey(), payload)
	pipe.LTrim(ctx, r.ListKey(), 0, r.cfg.ListMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sink redis: %w", err)
	}
	return nil
}

func (r *Redis) WriteStatus(s status.Snapshot) error {
	if r.client == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("sink redis: encode: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	return r.client.Set(ctx, r.StatusKey(), payload, 0).Err()
}

func (r *Redis) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
