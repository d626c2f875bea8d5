package model

import (
	"casino-server/common/constant"
)

// Transaction 对应 transactions 表（追加式账本，只增不改不删）
// delta 带符号；before/after 为该笔账变前后的余额快照
// 不变式：任意用户全部 delta 之和等于当前余额
type Transaction struct {
	ID            int64   `db:"id"`
	UserID        int64   `db:"user_id"`
	Delta         float64 `db:"delta"`
	BalanceBefore float64 `db:"balance_before"`
	BalanceAfter  float64 `db:"balance_after"`
	Kind          int     `db:"kind"`       // 见 constant.Kind*
	KindStr       string  `db:"kind_str"`   // 冗余字符串，便于查询
	Reference     string  `db:"reference"`  // 业务引用（bill_no/promo code/payout id 等）
	TraceID       string  `db:"trace_id"`
	CreatedAt     int64   `db:"created_at"` // 13位毫秒时间戳
}

// FillKind 数值码与字符串互补（任一缺失时由另一方推导）
func (t *Transaction) FillKind() {
	if t.KindStr == "" && t.Kind != 0 {
		t.KindStr = constant.TransactionKindStr(t.Kind)
	}
	if t.Kind == 0 && t.KindStr != "" {
		t.Kind = constant.TransactionKindCode(t.KindStr)
	}
}
