package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"casino-server/common/logger"
	"casino-server/internal/config"
	infmq "casino-server/internal/infra/rocketmq"
	"casino-server/internal/store"
)

// StartOutboxDispatcher 启动 Outbox 分发器，支持通过 ctx 优雅退出
// 仅当 MQ 已启用时运行。
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup, st *store.Store) {
	if !infmq.Enabled() {
		return
	}

	pollInterval := time.Second
	batchSize := 100
	maxRetry := 10
	topic := "casino_events"
	if cfg := config.GetCurrent(); cfg != nil {
		pollInterval = time.Duration(cfg.Outbox.PollIntervalSec) * time.Second
		batchSize = cfg.Outbox.BatchSize
		maxRetry = cfg.Outbox.MaxRetry
		if cfg.RocketMQ.TopicEvents != "" {
			topic = cfg.RocketMQ.TopicEvents
		}
	}

	wg.Add(1)
	pub := infmq.PublisherInstance()
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 2*time.Second)
				rows, err := st.PendingOutboxEvents(c, batchSize, maxRetry)
				cancel()
				if err != nil {
					logger.Warn("outbox: list pending failed", zap.Error(err))
					continue
				}
				for _, r := range rows {
					body, _ := json.Marshal(map[string]interface{}{
						"event":    r.EventType,
						"biz_id":   r.BizID,
						"payload":  json.RawMessage(r.Payload),
						"trace_id": r.TraceID,
					})
					if err := pub.Publish(topic, body); err != nil {
						logger.Warn("outbox: publish failed",
							zap.Int64("id", r.ID), zap.String("event", r.EventType), zap.Error(err))
						if e := st.MarkOutboxRetry(ctx, r.ID, maxRetry); e != nil {
							logger.Warn("outbox: mark retry failed", zap.Int64("id", r.ID), zap.Error(e))
						}
						continue
					}
					if err := st.MarkOutboxSent(ctx, r.ID); err != nil {
						logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
					}
				}
			}
		}
	}()
}
