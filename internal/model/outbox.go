package model

// 领域事件类型
const (
	EventWagerSettled   = "wager.settled"
	EventPromoActivated = "promo.activated"
	EventPayoutFinished = "payout.finished"
)

// OutboxEvent 对应 outbox_events 表，与业务写入同事务落库
// 由 worker 异步投递到 MQ
type OutboxEvent struct {
	ID         int64  `db:"id"`
	EventType  string `db:"event_type"`
	BizID      string `db:"biz_id"` // 业务主键（bill_no / payout id 等）
	Payload    string `db:"payload"`
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	TraceID    string `db:"trace_id"`
	CreatedAt  int64  `db:"created_at"`
	SentAt     int64  `db:"sent_at"`
}
