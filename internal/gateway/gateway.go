// Package gateway 外部支付网关接入
package gateway

import "context"

// TransferResult 转账结果
type TransferResult struct {
	TransferID string
	Completed  bool
}

// PaymentGateway 支付网关抽象
// Transfer 以 spendID 作为幂等键，重复调用同一 spendID 不会重复转账
type PaymentGateway interface {
	Transfer(ctx context.Context, userID int64, amount float64, currency, spendID string) (*TransferResult, error)
	// GetBalance 网关侧余额，仅用于展示与巡检
	GetBalance(ctx context.Context, currency string) (float64, error)
	// GetExchangeRate 汇率查询，仅用于展示
	GetExchangeRate(ctx context.Context, source, target string) (float64, error)
}
