package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promoActivateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_activate_total",
			Help: "Total promo activation attempts by result",
		},
		[]string{"result"}, // success / not_found / inactive / expired / exhausted / activated / restricted / fail
	)

	promoActivateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promo_activate_duration_ms",
			Help:    "Promo activation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordPromoActivate 记录激活结果分布，result 区分具体拒绝原因
func RecordPromoActivate(result string, started time.Time) {
	promoActivateTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	promoActivateDuration.WithLabelValues(result).Observe(durMs)
}
