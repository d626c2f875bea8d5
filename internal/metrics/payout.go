package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	payoutDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_dispatch_total",
			Help: "Total payout dispatch attempts by result",
		},
		[]string{"result"}, // success / fail / dead / deferred
	)

	payoutDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payout_dispatch_duration_ms",
			Help:    "Payout gateway call duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"result"},
	)

	payoutQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payout_queue_depth",
			Help: "Payout requests in queue by status",
		},
		[]string{"status"},
	)
)

// RecordPayoutDispatch 记录单次派发结果与网关耗时
func RecordPayoutDispatch(result string, started time.Time) {
	payoutDispatchTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	payoutDispatchDuration.WithLabelValues(result).Observe(durMs)
}

// SetPayoutQueueDepth 巡检时上报各状态在队数量
func SetPayoutQueueDepth(status string, n int64) {
	payoutQueueDepth.WithLabelValues(status).Set(float64(n))
}
