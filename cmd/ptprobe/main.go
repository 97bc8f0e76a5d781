// cmd/ptprobe/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/ptprobe/internal/acquire"
	"github.com/tamzrod/ptprobe/internal/config"
	"github.com/tamzrod/ptprobe/internal/monitor"
	"github.com/tamzrod/ptprobe/internal/poller"
)

func main() {
	cfgPath := flag.String("config", "ptprobe.yaml", "path to the YAML config")
	pollMode := flag.Bool("poll", false, "poll boards in one-shot mode instead of streaming")
	flag.Parse()

	os.Exit(run(*cfgPath, *pollMode))
}

func run(cfgPath string, pollMode bool) int {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 2
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		return 2
	}
	config.Normalize(cfg)

	log := monitor.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics (optional)
	// --------------------

	var metrics *monitor.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitor.NewMetrics()
		metrics.Serve(ctx, cfg.Metrics.Listen, log)
	}

	if pollMode {
		return runPoll(ctx, cfg, log)
	}
	return runAcquire(ctx, cfg, log, metrics)
}

func runAcquire(ctx context.Context, cfg *config.Config, log *logrus.Logger, metrics *monitor.Metrics) int {
	o, closeBoards, err := acquire.Build(cfg, log, metrics)
	if err != nil {
		log.WithError(err).Error("build failed")
		return 1
	}
	defer func() {
		if err := closeBoards(); err != nil {
			log.WithError(err).Warn("close boards")
		}
	}()

	results, err := o.Run(ctx)
	for _, port := range acquire.SortedPorts(results) {
		res := results[port]
		log.WithFields(logrus.Fields{
			"port":      port,
			"count":     res.Count,
			"decoded":   res.Decoded,
			"mean_ms":   res.Stats.Mean,
			"stddev_ms": res.Stats.StdDev(),
			"stopped":   res.Stopped,
		}).Info("port summary")
	}
	if err != nil {
		log.WithError(err).Error("acquisition finished with errors")
		return 1
	}
	return 0
}

func runPoll(ctx context.Context, cfg *config.Config, log *logrus.Logger) int {
	boards, closeBoards, err := acquire.OpenBoards(cfg, log)
	if err != nil {
		log.WithError(err).Error("open boards failed")
		return 1
	}
	defer func() {
		if err := closeBoards(); err != nil {
			log.WithError(err).Warn("close boards")
		}
	}()

	pollers, err := poller.Build(cfg.Poll, boards)
	if err != nil {
		log.WithError(err).Error("poller build failed")
		return 1
	}

	// --------------------
	// One producer per board, one consumer
	// --------------------

	out := make(chan poller.PollResult)
	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poller.Poller) {
			defer wg.Done()
			p.Run(ctx, out)
		}(p)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	failed := false
	for res := range out {
		entry := log.WithField("port", res.Port)
		if res.Err != nil {
			if poller.Fatal(res.Err) {
				entry.WithError(res.Err).Error("poll failed, port stopped")
				failed = true
			} else {
				entry.WithError(res.Err).Warn("poll failed")
			}
			continue
		}
		fields := logrus.Fields{"board_id": fmt.Sprintf("0x%08X", res.Snapshot.BoardID)}
		for ch, r := range res.Snapshot.Channels {
			fields[fmt.Sprintf("t%d", ch)] = r.Temperature.Value
			fields[fmt.Sprintf("tref%d", ch)] = r.RefTemperature.Value
			fields[fmt.Sprintf("p%d", ch)] = r.Pressure.Value
		}
		if n := res.Snapshot.Failed(); n > 0 {
			fields["failed"] = n
		}
		entry.WithFields(fields).Info("poll")
	}
	if failed {
		return 1
	}
	return 0
}
