package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/common/logger"
	"casino-server/internal/model"
	"casino-server/internal/store"
)

// EnqueueInput 提现入队输入
type EnqueueInput struct {
	UserID   int64
	Amount   float64
	Currency string
	TraceID  string
}

type PayoutService interface {
	// Enqueue 扣减余额并入队，同一用户允许多条排队
	Enqueue(ctx context.Context, in EnqueueInput) (*model.PayoutRequest, error)
	Get(ctx context.Context, id int64) (*model.PayoutRequest, error)
	ListByUser(ctx context.Context, userID int64, limit, offset uint) ([]model.PayoutRequest, error)
	QueueDepth(ctx context.Context) (map[string]int64, error)
}

type payoutService struct {
	st     *store.Store
	ledger LedgerService
	coeff  CoeffService
}

func NewPayoutService(st *store.Store, ledger LedgerService, coeff CoeffService) PayoutService {
	return &payoutService{st: st, ledger: ledger, coeff: coeff}
}

// Enqueue 提现入队。先原子扣减余额（kind=withdraw），再落 pending 请求；
// 落库失败退回扣款。spend_id 入队时生成且终身不变，作为网关幂等键
func (s *payoutService) Enqueue(ctx context.Context, in EnqueueInput) (*model.PayoutRequest, error) {
	amount := helper.Round2(in.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount < s.coeff.Get(model.MinWithdraw) {
		return nil, ErrWithdrawBelowMin
	}
	currency := in.Currency
	if currency == "" {
		currency = "USDT"
	}

	p := &model.PayoutRequest{
		UserID:   in.UserID,
		Amount:   amount,
		Currency: currency,
		SpendID:  uuid.New().String(),
		TraceID:  in.TraceID,
	}

	if _, err := s.ledger.Debit(ctx, LedgerInput{
		UserID:    in.UserID,
		Amount:    amount,
		Kind:      constant.KindWithdraw,
		Reference: p.SpendID,
		TraceID:   in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := s.st.InsertPayout(ctx, p); err != nil {
		// 入队失败退回扣款
		if _, e := s.ledger.Credit(ctx, LedgerInput{
			UserID:    in.UserID,
			Amount:    amount,
			Kind:      constant.KindRefund,
			Reference: p.SpendID,
			TraceID:   in.TraceID,
		}); e != nil {
			logger.ErrorCtx(ctx, "提现入队失败且退款失败，需人工介入",
				zap.Int64("user_id", in.UserID), zap.Float64("amount", amount),
				zap.String("spend_id", p.SpendID), zap.Error(e))
		}
		return nil, err
	}

	logger.InfoCtx(ctx, "提现已入队",
		zap.Int64("payout_id", p.ID), zap.Int64("user_id", in.UserID),
		zap.Float64("amount", amount), zap.String("spend_id", p.SpendID))
	return p, nil
}

func (s *payoutService) Get(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	return s.st.GetPayout(ctx, id)
}

func (s *payoutService) ListByUser(ctx context.Context, userID int64, limit, offset uint) ([]model.PayoutRequest, error) {
	return s.st.ListPayoutsByUser(ctx, userID, limit, offset)
}

// QueueDepth 各状态在队数量，巡检与指标上报用
func (s *payoutService) QueueDepth(ctx context.Context) (map[string]int64, error) {
	byStatus, err := s.st.CountPayoutsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(byStatus))
	for st, n := range byStatus {
		out[constant.PayoutStatusStr(st)] = n
	}
	return out, nil
}
