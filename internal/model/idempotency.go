package model

// IdempotencyKey 对应 idempotency_keys 表，idem_key 唯一索引保证同键只处理一次
type IdempotencyKey struct {
	ID        int64  `db:"id"`
	IdemKey   string `db:"idem_key"`
	Scope     string `db:"scope"`  // wager / payout
	RefID     string `db:"ref_id"` // 首次处理产生的业务单号
	CreatedAt int64  `db:"created_at"`
}
