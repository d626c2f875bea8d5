package model

// Wager 对应 wagers 表（只增不改）
// 不变式：win 时 payout = stake × multiplier，否则 payout = 0
type Wager struct {
	ID         int64   `db:"id"`
	BillNo     string  `db:"bill_no"` // 唯一订单号
	UserID     int64   `db:"user_id"`
	GameType   string  `db:"game_type"`
	Stake      float64 `db:"stake"`
	Chosen     string  `db:"outcome_chosen"`
	Actual     string  `db:"outcome_actual"` // 实际抽样结果（点数/颜色/符号组合）
	Win        int8    `db:"win"`            // 1=赢 0=输
	Multiplier float64 `db:"multiplier"`
	Payout     float64 `db:"payout"`
	TraceID    string  `db:"trace_id"`
	CreatedAt  int64   `db:"created_at"`
}
