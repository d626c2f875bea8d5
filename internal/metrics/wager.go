package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wagerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_requests_total",
			Help: "Total wager requests by result and game_type",
		},
		[]string{"result", "game_type"},
	)

	wagerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wager_request_duration_ms",
			Help:    "Wager request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "game_type"},
	)

	wagerStake = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_stake_total",
			Help: "Accumulated stake amount by game_type",
		},
		[]string{"game_type"},
	)

	wagerPayout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_payout_total",
			Help: "Accumulated payout amount by game_type",
		},
		[]string{"game_type"},
	)
)

// RecordWager records business metrics for a wager call.
// result should be "success" or "fail"; gameType is normalized to lower-case.
func RecordWager(result, gameType string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	gt := strings.ToLower(gameType)
	wagerTotal.WithLabelValues(res, gt).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	wagerDuration.WithLabelValues(res, gt).Observe(durMs)
}

// RecordWagerAmounts 累计投注与派彩金额
func RecordWagerAmounts(gameType string, stake, payout float64) {
	gt := strings.ToLower(gameType)
	wagerStake.WithLabelValues(gt).Add(stake)
	if payout > 0 {
		wagerPayout.WithLabelValues(gt).Add(payout)
	}
}
