package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

var (
	ErrPromoNotFound  = errors.New("promo code not found")
	ErrDuplicateCode  = errors.New("promo code already exists")
	ErrPromoExhausted = errors.New("promo code exhausted")
	ErrPromoActivated = errors.New("promo code already activated by user")
)

// CreatePromo 新建兑换码，code 主键冲突返回 ErrDuplicateCode
func (s *Store) CreatePromo(ctx context.Context, p *model.PromoCode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, amount, bonus_type, max_uses, used_count, expires_at, active, restrictions, created_by, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		p.Code, p.Amount, p.BonusType, p.MaxUses, p.ExpiresAt, p.Active, p.Restrictions, p.CreatedBy, p.CreatedAt)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *Store) GetPromo(ctx context.Context, code string) (*model.PromoCode, error) {
	var p model.PromoCode
	err := s.db.GetContext(ctx, &p,
		`SELECT code, amount, bonus_type, max_uses, used_count, expires_at, active, restrictions, created_by, created_at
		 FROM promo_codes WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPromos 分页查询，activeOnly 只取未停用的
func (s *Store) ListPromos(ctx context.Context, activeOnly bool, limit, offset uint) ([]model.PromoCode, error) {
	ds := s.dialect.Select(
		"code", "amount", "bonus_type", "max_uses", "used_count",
		"expires_at", "active", "restrictions", "created_by", "created_at",
	).From("promo_codes")

	if activeOnly {
		ds = ds.Where(g.Ex{"active": constant.StatusNormal})
	}
	ds = ds.Order(g.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(limit)
	}
	if offset > 0 {
		ds = ds.Offset(offset)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	var list []model.PromoCode
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) DeactivatePromo(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE promo_codes SET active = ? WHERE code = ?`, constant.StatusDeleted, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// ActivatePromo 单事务完成激活：写激活记录、条件占用名额、奖励入账
// 条件更新防止超发；(user_id, code) 唯一索引防止重复激活
// 任一步失败（含用户被禁用、入账失败）整体回滚，不留下已占名额未入账的半状态
func (s *Store) ActivatePromo(ctx context.Context, code string, userID int64, amount float64, traceID string) (*model.Transaction, error) {
	var rec *model.Transaction
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO promo_activations (user_id, code, amount, created_at) VALUES (?, ?, ?, ?)`,
			userID, code, amount, NowMs()); err != nil {
			if isDuplicateErr(err) {
				return ErrPromoActivated
			}
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE promo_codes SET used_count = used_count + 1
			 WHERE code = ? AND (max_uses = 0 OR used_count < max_uses)`, code)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPromoExhausted
		}

		var e error
		rec, e = s.applyBalanceChangeTx(ctx, tx, userID, amount, constant.KindPromo, code, traceID)
		return e
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) HasActivated(ctx context.Context, code string, userID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM promo_activations WHERE user_id = ? AND code = ?`, userID, code)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PromoStats 全量统计：码数、启用数、领取次数、派发总额
func (s *Store) PromoStats(ctx context.Context) (*model.PromoStats, error) {
	var st model.PromoStats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(1) FROM promo_codes) AS total_codes,
			(SELECT COUNT(1) FROM promo_codes WHERE active = ?) AS active_codes,
			(SELECT COUNT(1) FROM promo_activations) AS total_uses,
			(SELECT COALESCE(SUM(amount), 0) FROM promo_activations) AS total_amount`,
		constant.StatusNormal)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// isDuplicateErr 主键/唯一索引冲突判定，覆盖 mysql 1062 与 sqlite UNIQUE constraint
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint")
}
