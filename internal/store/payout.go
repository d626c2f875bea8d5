package store

import (
	"context"
	"database/sql"
	"errors"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

var ErrPayoutNotFound = errors.New("payout request not found")

// InsertPayout 入队一条提现请求，初始 pending 且立即可派发
func (s *Store) InsertPayout(ctx context.Context, p *model.PayoutRequest) error {
	now := NowMs()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.NextAttemptAt == 0 {
		p.NextAttemptAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payout_requests (user_id, amount, currency, status, attempts, last_error, spend_id, transfer_id, next_attempt_at, trace_id, created_at, completed_at)
		 VALUES (?, ?, ?, ?, 0, '', ?, '', ?, ?, ?, 0)`,
		p.UserID, p.Amount, p.Currency, constant.PayoutPending, p.SpendID, p.NextAttemptAt, p.TraceID, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID, _ = res.LastInsertId()
	p.Status = constant.PayoutPending
	return nil
}

func (s *Store) GetPayout(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	var p model.PayoutRequest
	err := s.db.GetContext(ctx, &p,
		`SELECT id, user_id, amount, currency, status, attempts, last_error, spend_id, transfer_id, next_attempt_at, trace_id, created_at, completed_at
		 FROM payout_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DuePayouts 取到期可派发的请求（pending/重排队），按 id 升序保证 FIFO
func (s *Store) DuePayouts(ctx context.Context, now int64, limit int) ([]model.PayoutRequest, error) {
	var list []model.PayoutRequest
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, user_id, amount, currency, status, attempts, last_error, spend_id, transfer_id, next_attempt_at, trace_id, created_at, completed_at
		 FROM payout_requests
		 WHERE status IN (?, ?) AND next_attempt_at <= ?
		 ORDER BY id ASC LIMIT ?`,
		constant.PayoutPending, constant.PayoutRequeued, now, limit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkPayoutInflight 状态条件更新，抢占成功返回 true
func (s *Store) MarkPayoutInflight(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payout_requests SET status = ?, attempts = attempts + 1
		 WHERE id = ? AND status IN (?, ?)`,
		constant.PayoutInflight, id, constant.PayoutPending, constant.PayoutRequeued)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) MarkPayoutCompleted(ctx context.Context, id int64, transferID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payout_requests SET status = ?, transfer_id = ?, last_error = '', completed_at = ?
		 WHERE id = ? AND status = ?`,
		constant.PayoutCompleted, transferID, NowMs(), id, constant.PayoutInflight)
	return err
}

// MarkPayoutFailed 派发失败：未达重试上限退避重排队，达到上限进入终态 dead
// 一条语句完成状态翻转，避免读写分离产生竞态
func (s *Store) MarkPayoutFailed(ctx context.Context, id int64, lastErr string, nextAttemptAt int64, maxAttempts int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payout_requests SET last_error = ?, next_attempt_at = ?,
			status = CASE WHEN attempts >= ? THEN ? ELSE ? END,
			completed_at = CASE WHEN attempts >= ? THEN ? ELSE completed_at END
		 WHERE id = ? AND status = ?`,
		lastErr, nextAttemptAt,
		maxAttempts, constant.PayoutDead, constant.PayoutRequeued,
		maxAttempts, NowMs(),
		id, constant.PayoutInflight)
	return err
}

// DeferPayout 暂缓派发：仅后移下次尝试时间，状态与尝试次数不变
func (s *Store) DeferPayout(ctx context.Context, id int64, nextAttemptAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payout_requests SET next_attempt_at = ? WHERE id = ? AND status IN (?, ?)`,
		nextAttemptAt, id, constant.PayoutPending, constant.PayoutRequeued)
	return err
}

// RequeueStuckInflight 启动恢复：上次进程退出时卡在 inflight 的请求重新排队
func (s *Store) RequeueStuckInflight(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payout_requests SET status = ?, next_attempt_at = ? WHERE status = ?`,
		constant.PayoutRequeued, NowMs(), constant.PayoutInflight)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListPayoutsByUser 用户提现历史，倒序分页
func (s *Store) ListPayoutsByUser(ctx context.Context, userID int64, limit, offset uint) ([]model.PayoutRequest, error) {
	query := `SELECT id, user_id, amount, currency, status, attempts, last_error, spend_id, transfer_id, next_attempt_at, trace_id, created_at, completed_at
		 FROM payout_requests WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`
	if limit == 0 {
		limit = 50
	}
	var list []model.PayoutRequest
	err := s.db.SelectContext(ctx, &list, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CountPayoutsByStatus 运维巡检：各状态在队数量
func (s *Store) CountPayoutsByStatus(ctx context.Context) (map[int8]int64, error) {
	rows := []struct {
		Status int8  `db:"status"`
		Cnt    int64 `db:"cnt"`
	}{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(1) AS cnt FROM payout_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make(map[int8]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Cnt
	}
	return out, nil
}
