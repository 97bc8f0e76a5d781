// internal/monitor/metrics.go
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds the acquisition collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	samples     *prometheus.CounterVec
	sinkErrors  *prometheus.CounterVec
	frameErrors *prometheus.CounterVec
	running     prometheus.Gauge
	interval    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ptprobe_samples_total",
			Help: "Samples decoded from the stream.",
		}, []string{"port"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ptprobe_sink_errors_total",
			Help: "Failed sink writes.",
		}, []string{"port", "sink"}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ptprobe_session_errors_total",
			Help: "Sessions that ended with an error, by kind.",
		}, []string{"port", "kind"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ptprobe_sessions_running",
			Help: "Sessions currently streaming.",
		}),
		interval: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ptprobe_sample_interval_ms",
			Help:    "Device-clock interval between consecutive samples.",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"port"}),
	}
	m.reg.MustRegister(m.samples, m.sinkErrors, m.frameErrors, m.running, m.interval)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) SampleDecoded(port string, intervalMs float64, first bool) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(port).Inc()
	if !first {
		m.interval.WithLabelValues(port).Observe(intervalMs)
	}
}

func (m *Metrics) SinkError(port, sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(port, sink).Inc()
}

func (m *Metrics) SessionError(port, kind string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(port, kind).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.running.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.running.Dec()
}

// Handler serves /metrics and /health.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics listener until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("metrics listening on %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
}
