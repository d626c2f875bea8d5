package service

import (
	"context"

	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/common/keylock"
	"casino-server/common/logger"
	"casino-server/internal/model"
	"casino-server/internal/store"
)

// LedgerInput 记账输入
type LedgerInput struct {
	UserID    int64
	Amount    float64 // 必须为正数，方向由 Credit/Debit 决定
	Kind      int
	Reference string
	TraceID   string
}

type LedgerService interface {
	Credit(ctx context.Context, in LedgerInput) (*model.Transaction, error)
	Debit(ctx context.Context, in LedgerInput) (*model.Transaction, error)
	SetBalance(ctx context.Context, userID int64, newBalance float64, reference, traceID string) (*model.Transaction, error)
	GetBalance(ctx context.Context, userID int64) (float64, error)
	History(ctx context.Context, userID int64, kind int, limit, offset uint) ([]model.Transaction, error)
	Replay(ctx context.Context, userID int64) (float64, error)

	// WithUserLock 在该用户的记账互斥区内执行 fn，多步流程（结算）复用同一把锁
	WithUserLock(userID int64, fn func() error) error
}

type ledgerService struct {
	st    *store.Store
	locks *keylock.KeyLock
}

func NewLedgerService(st *store.Store) LedgerService {
	return &ledgerService{st: st, locks: keylock.New(64)}
}

func (s *ledgerService) WithUserLock(userID int64, fn func() error) error {
	return s.locks.WithLock(keylock.UserKey(userID), fn)
}

// Credit 入账。金额非正或类型方向不符直接拒绝，不产生任何副作用
func (s *ledgerService) Credit(ctx context.Context, in LedgerInput) (*model.Transaction, error) {
	amt := helper.Round2(in.Amount)
	if amt <= 0 {
		return nil, ErrInvalidAmount
	}
	// 支出类型（bet/withdraw）不允许走入账方向；admin 双向
	if !constant.IsValidTransactionKind(in.Kind) || constant.IsExpenseKind(in.Kind) {
		return nil, ErrInvalidAmount
	}

	var rec *model.Transaction
	err := s.WithUserLock(in.UserID, func() error {
		var e error
		rec, e = s.st.ApplyBalanceChange(ctx, in.UserID, amt, in.Kind, in.Reference, in.TraceID)
		return e
	})
	if err != nil {
		logger.ErrorCtx(ctx, "入账失败",
			zap.Int64("user_id", in.UserID), zap.Float64("amount", amt),
			zap.String("kind", constant.TransactionKindStr(in.Kind)), zap.Error(err))
		return nil, err
	}
	logger.InfoCtx(ctx, "入账成功",
		zap.Int64("user_id", in.UserID), zap.Float64("amount", amt),
		zap.String("kind", rec.KindStr), zap.Float64("balance_after", rec.BalanceAfter))
	return rec, nil
}

// Debit 扣账。余额不足整体拒绝，无部分效果；收入类型不允许走扣账方向
func (s *ledgerService) Debit(ctx context.Context, in LedgerInput) (*model.Transaction, error) {
	amt := helper.Round2(in.Amount)
	if amt <= 0 {
		return nil, ErrInvalidAmount
	}
	if !constant.IsValidTransactionKind(in.Kind) || constant.IsIncomeKind(in.Kind) {
		return nil, ErrInvalidAmount
	}

	var rec *model.Transaction
	err := s.WithUserLock(in.UserID, func() error {
		var e error
		rec, e = s.st.ApplyBalanceChange(ctx, in.UserID, -amt, in.Kind, in.Reference, in.TraceID)
		return e
	})
	if err != nil {
		logger.ErrorCtx(ctx, "扣账失败",
			zap.Int64("user_id", in.UserID), zap.Float64("amount", amt),
			zap.String("kind", constant.TransactionKindStr(in.Kind)), zap.Error(err))
		return nil, err
	}
	logger.InfoCtx(ctx, "扣账成功",
		zap.Int64("user_id", in.UserID), zap.Float64("amount", amt),
		zap.String("kind", rec.KindStr), zap.Float64("balance_after", rec.BalanceAfter))
	return rec, nil
}

// SetBalance 管理员直设余额，差额落 admin 流水
func (s *ledgerService) SetBalance(ctx context.Context, userID int64, newBalance float64, reference, traceID string) (*model.Transaction, error) {
	if newBalance < 0 {
		return nil, ErrInvalidAmount
	}

	var rec *model.Transaction
	err := s.WithUserLock(userID, func() error {
		var e error
		rec, e = s.st.SetBalance(ctx, userID, newBalance, reference, traceID)
		return e
	})
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "管理员调整余额",
		zap.Int64("user_id", userID), zap.Float64("balance", rec.BalanceAfter),
		zap.Float64("delta", rec.Delta), zap.String("reference", reference))
	return rec, nil
}

// GetBalance 即时读。与并发写之间不保证线性一致
func (s *ledgerService) GetBalance(ctx context.Context, userID int64) (float64, error) {
	u, err := s.st.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

func (s *ledgerService) History(ctx context.Context, userID int64, kind int, limit, offset uint) ([]model.Transaction, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}
	return s.st.ListTransactions(ctx, store.TxFilter{UserID: userID, Kind: kind, Limit: limit, Offset: offset})
}

// Replay 流水重放对账：全部 delta 之和应等于当前余额
// 不一致时按缺陷告警，返回重放值供巡检比对
func (s *ledgerService) Replay(ctx context.Context, userID int64) (float64, error) {
	var replayed float64
	err := s.WithUserLock(userID, func() error {
		sum, e := s.st.ReplayBalance(ctx, userID)
		if e != nil {
			return e
		}
		replayed = sum

		u, e := s.st.GetUser(ctx, userID)
		if e != nil {
			return e
		}
		if helper.Round2(u.Balance) != helper.Round2(sum) {
			logger.ErrorCtx(ctx, "对账不一致",
				zap.Int64("user_id", userID),
				zap.Float64("balance", u.Balance), zap.Float64("replayed", sum))
			return ErrInvariantViolation
		}
		return nil
	})
	if err != nil {
		return replayed, err
	}
	return replayed, nil
}
