package store

import (
	"context"
	"database/sql"
	"errors"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/internal/model"
)

// applyBalanceChangeTx 在既有事务内完成一次记账：行锁读余额 -> 校验 -> 更新余额 -> 写流水
// delta 带符号，扣减后余额为负返回 ErrInsufficientFunds，由调用方回滚整个事务
func (s *Store) applyBalanceChangeTx(ctx context.Context, tx *sqlx.Tx, userID int64, delta float64, kind int, reference, traceID string) (*model.Transaction, error) {
	var u model.User
	query := `SELECT user_id, balance, status FROM users WHERE user_id = ?` + s.forUpdate()
	if err := tx.GetContext(ctx, &u, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.Status != constant.StatusNormal {
		return nil, ErrUserDisabled
	}

	before := u.Balance
	after := helper.Round2(before + delta)
	if after < 0 {
		return nil, ErrInsufficientFunds
	}

	now := NowMs()
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = ?, updated_at = ? WHERE user_id = ?`,
		after, now, userID); err != nil {
		return nil, err
	}

	t := &model.Transaction{
		UserID:        userID,
		Delta:         delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Kind:          kind,
		Reference:     reference,
		TraceID:       traceID,
		CreatedAt:     now,
	}
	t.FillKind()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, delta, balance_before, balance_after, kind, kind_str, reference, trace_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Delta, t.BalanceBefore, t.BalanceAfter, t.Kind, t.KindStr, t.Reference, t.TraceID, t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ID, _ = res.LastInsertId()
	return t, nil
}

// ApplyBalanceChange 记账核心，单事务包裹 applyBalanceChangeTx
func (s *Store) ApplyBalanceChange(ctx context.Context, userID int64, delta float64, kind int, reference, traceID string) (*model.Transaction, error) {
	var rec *model.Transaction
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var e error
		rec, e = s.applyBalanceChangeTx(ctx, tx, userID, delta, kind, reference, traceID)
		return e
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetBalance 管理员直设余额，差额以 KindAdmin 流水落账
func (s *Store) SetBalance(ctx context.Context, userID int64, newBalance float64, reference, traceID string) (*model.Transaction, error) {
	var rec *model.Transaction
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var u model.User
		query := `SELECT user_id, balance, status FROM users WHERE user_id = ?` + s.forUpdate()
		if err := tx.GetContext(ctx, &u, query, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		before := u.Balance
		after := helper.Round2(newBalance)
		now := NowMs()
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = ?, updated_at = ? WHERE user_id = ?`,
			after, now, userID); err != nil {
			return err
		}

		t := &model.Transaction{
			UserID:        userID,
			Delta:         helper.Round2(after - before),
			BalanceBefore: before,
			BalanceAfter:  after,
			Kind:          constant.KindAdmin,
			Reference:     reference,
			TraceID:       traceID,
			CreatedAt:     now,
		}
		t.FillKind()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (user_id, delta, balance_before, balance_after, kind, kind_str, reference, trace_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Delta, t.BalanceBefore, t.BalanceAfter, t.Kind, t.KindStr, t.Reference, t.TraceID, t.CreatedAt)
		if err != nil {
			return err
		}
		t.ID, _ = res.LastInsertId()
		rec = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type TxFilter struct {
	UserID int64
	Kind   int // 0 表示不过滤
	Limit  uint
	Offset uint
}

// ListTransactions 按时间倒序分页查询流水
func (s *Store) ListTransactions(ctx context.Context, f TxFilter) ([]model.Transaction, error) {
	ds := s.dialect.Select(
		"id", "user_id", "delta", "balance_before", "balance_after",
		"kind", "kind_str", "reference", "trace_id", "created_at",
	).From("transactions").Where(g.Ex{"user_id": f.UserID})

	if f.Kind != 0 {
		ds = ds.Where(g.Ex{"kind": f.Kind})
	}
	ds = ds.Order(g.I("id").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(f.Limit)
	}
	if f.Offset > 0 {
		ds = ds.Offset(f.Offset)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	var list []model.Transaction
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// SumDeltaByKind 按类型汇总流水金额（如历史充值总额）
func (s *Store) SumDeltaByKind(ctx context.Context, userID int64, kind int) (float64, error) {
	var sum sql.NullFloat64
	err := s.db.GetContext(ctx, &sum,
		`SELECT SUM(delta) FROM transactions WHERE user_id = ? AND kind = ?`, userID, kind)
	if err != nil {
		return 0, err
	}
	return helper.Round2(sum.Float64), nil
}

// ReplayBalance 由全部流水重放余额，用于对账
func (s *Store) ReplayBalance(ctx context.Context, userID int64) (float64, error) {
	var sum sql.NullFloat64
	err := s.db.GetContext(ctx, &sum,
		`SELECT SUM(delta) FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return helper.Round2(sum.Float64), nil
}
