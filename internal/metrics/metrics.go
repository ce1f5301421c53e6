package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signal_bot"

// Recorder собирает метрики бота. Nil-Recorder ничего не делает.
type Recorder struct {
	scans          *prometheus.CounterVec
	signals        *prometheus.CounterVec
	stages         *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	removed        prometheus.Counter
	fetchDuration  *prometheus.HistogramVec
	pendingAlerts  prometheus.Gauge
	logAppendFails prometheus.Counter
}

func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan cycles by result.",
		}, []string{"result"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Scheduled signals by direction and origin.",
		}, []string{"direction", "origin"}),
		stages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_stages_total",
			Help:      "Fired alert stages.",
		}, []string{"stage"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-subscriber delivery attempts by result.",
		}, []string{"result"}),
		removed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_removed_total",
			Help:      "Subscribers removed after a permanent delivery failure.",
		}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Market data fetch latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"provider", "status"}),
		pendingAlerts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_alerts",
			Help:      "Alerts that have not reached a terminal stage.",
		}),
		logAppendFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_log_failures_total",
			Help:      "Failed signal log writes.",
		}),
	}
}

func (r *Recorder) Scan(result string) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(result).Inc()
}

func (r *Recorder) Signal(direction, origin string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(direction, origin).Inc()
}

func (r *Recorder) Stage(stage string) {
	if r == nil {
		return
	}
	r.stages.WithLabelValues(stage).Inc()
}

func (r *Recorder) Delivery(result string) {
	if r == nil {
		return
	}
	r.deliveries.WithLabelValues(result).Inc()
}

func (r *Recorder) SubscriberRemoved() {
	if r == nil {
		return
	}
	r.removed.Inc()
}

func (r *Recorder) ObserveFetch(provider string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.fetchDuration.WithLabelValues(provider, status).Observe(d.Seconds())
}

func (r *Recorder) SetPendingAlerts(n int) {
	if r == nil {
		return
	}
	r.pendingAlerts.Set(float64(n))
}

func (r *Recorder) LogFailure() {
	if r == nil {
		return
	}
	r.logAppendFails.Inc()
}
