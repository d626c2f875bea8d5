package constant

// user status
const (
	StatusNormal  = 1 // 状态：正常
	StatusDeleted = 2 // 状态：已删除
)

// payout_requests.status 提现请求状态
const (
	PayoutPending   = 1 // 待派发
	PayoutInflight  = 2 // 派发中（每个用户同一时刻至多一条）
	PayoutCompleted = 3 // 已完成
	PayoutFailed    = 4 // 本次派发失败（待重试调度）
	PayoutRequeued  = 5 // 已重新入队（退避后再派发）
	PayoutDead      = 6 // 重试耗尽，需人工介入
)

// PayoutStatusStr 提现状态可读字符串
func PayoutStatusStr(s int8) string {
	switch s {
	case PayoutPending:
		return "pending"
	case PayoutInflight:
		return "inflight"
	case PayoutCompleted:
		return "completed"
	case PayoutFailed:
		return "failed"
	case PayoutRequeued:
		return "requeued"
	case PayoutDead:
		return "dead"
	}
	return "unknown"
}

// outbox.status 事务消息状态
const (
	OutboxPending = 1 // 待发送
	OutboxSent    = 2 // 已发送
	OutboxFailed  = 3 // 永久失败
)
