package model

// PayoutRequest 对应 payout_requests 表
// status 见 constant.PayoutPending 等
type PayoutRequest struct {
	ID            int64   `db:"id"`
	UserID        int64   `db:"user_id"`
	Amount        float64 `db:"amount"`
	Currency      string  `db:"currency"`
	Status        int8    `db:"status"`
	Attempts      int     `db:"attempts"`
	LastError     string  `db:"last_error"`
	SpendID       string  `db:"spend_id"`    // 网关幂等键，入队时生成且终身不变
	TransferID    string  `db:"transfer_id"` // 网关成功后回填
	NextAttemptAt int64   `db:"next_attempt_at"`
	TraceID       string  `db:"trace_id"`
	CreatedAt     int64   `db:"created_at"`
	CompletedAt   int64   `db:"completed_at"`
}
