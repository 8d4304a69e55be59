package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shelf_allocator"

type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	GenerationsTotal prometheus.Counter
	BestPenalty      prometheus.Gauge
	RunsInFlight     prometheus.Gauge
}

// New 创建并注册所有指标，reg 为 nil 时不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of optimization runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of optimization runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		GenerationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations evolved across all runs.",
		}),
		BestPenalty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_best_penalty",
			Help:      "Best penalty of the most recently finished run.",
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Optimization runs currently executing.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.RunsTotal, m.RunDuration, m.GenerationsTotal, m.BestPenalty, m.RunsInFlight)
	}

	return m
}

func (m *Metrics) RunStarted() {
	m.RunsInFlight.Inc()
}

func (m *Metrics) RunFinished(duration time.Duration, generations int32, bestPenalty float64) {
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues("finished").Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.GenerationsTotal.Add(float64(generations))
	m.BestPenalty.Set(bestPenalty)
}

// RunInterrupted 记录因 worker 退出而中断的任务，这些任务会重新入队
func (m *Metrics) RunInterrupted(duration time.Duration) {
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues("interrupted").Inc()
	m.RunDuration.Observe(duration.Seconds())
}

func (m *Metrics) RunFailed(duration time.Duration) {
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues("failed").Inc()
	m.RunDuration.Observe(duration.Seconds())
}
