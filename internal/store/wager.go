package store

import (
	"context"
	"errors"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

var (
	ErrDuplicateBillNo = errors.New("duplicate bill no")
	ErrIdemConflict    = errors.New("idempotency key already claimed")
)

// InsertWagerWithEvent 注单、幂等键与领域事件同事务落库（outbox 模式）
// idemKey 非空时一并占用，撞键返回 ErrIdemConflict 并整体回滚
func (s *Store) InsertWagerWithEvent(ctx context.Context, w *model.Wager, evt *model.OutboxEvent, idemKey string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if idemKey != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO idempotency_keys (idem_key, scope, ref_id, created_at) VALUES (?, 'wager', ?, ?)`,
				idemKey, w.BillNo, NowMs()); err != nil {
				if isDuplicateErr(err) {
					return ErrIdemConflict
				}
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO wagers (bill_no, user_id, game_type, stake, outcome_chosen, outcome_actual, win, multiplier, payout, trace_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.BillNo, w.UserID, w.GameType, w.Stake, w.Chosen, w.Actual, w.Win, w.Multiplier, w.Payout, w.TraceID, w.CreatedAt)
		if err != nil {
			if isDuplicateErr(err) {
				return ErrDuplicateBillNo
			}
			return err
		}
		w.ID, _ = res.LastInsertId()

		if evt == nil {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (event_type, biz_id, payload, status, retry_count, trace_id, created_at)
			 VALUES (?, ?, ?, ?, 0, ?, ?)`,
			evt.EventType, evt.BizID, evt.Payload, constant.OutboxPending, evt.TraceID, evt.CreatedAt)
		return err
	})
}

func (s *Store) GetWagerByBillNo(ctx context.Context, billNo string) (*model.Wager, error) {
	var w model.Wager
	err := s.db.GetContext(ctx, &w,
		`SELECT id, bill_no, user_id, game_type, stake, outcome_chosen, outcome_actual, win, multiplier, payout, trace_id, created_at
		 FROM wagers WHERE bill_no = ?`, billNo)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CountWagers 用户累计注单数（兑换码限制条件校验用）
func (s *Store) CountWagers(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM wagers WHERE user_id = ?`, userID)
	return n, err
}

// ListWagers 按时间倒序分页
func (s *Store) ListWagers(ctx context.Context, userID int64, limit, offset uint) ([]model.Wager, error) {
	ds := s.dialect.Select(
		"id", "bill_no", "user_id", "game_type", "stake",
		"outcome_chosen", "outcome_actual", "win", "multiplier", "payout", "trace_id", "created_at",
	).From("wagers").Where(g.Ex{"user_id": userID}).Order(g.I("id").Desc())

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

	var list []model.Wager
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, err
	}
	return list, nil
}
