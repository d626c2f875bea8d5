package store

import (
	"context"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

// CreateOutboxEvent 独立落一条领域事件（不与业务写入同事务时使用）
func (s *Store) CreateOutboxEvent(ctx context.Context, evt *model.OutboxEvent) error {
	if evt.CreatedAt == 0 {
		evt.CreatedAt = NowMs()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox_events (event_type, biz_id, payload, status, retry_count, trace_id, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		evt.EventType, evt.BizID, evt.Payload, constant.OutboxPending, evt.TraceID, evt.CreatedAt)
	if err != nil {
		return err
	}
	evt.ID, _ = res.LastInsertId()
	return nil
}

// PendingOutboxEvents 取待投递事件，按 id 升序
// maxRetry 只取未超过重试上限的
func (s *Store) PendingOutboxEvents(ctx context.Context, limit, maxRetry int) ([]model.OutboxEvent, error) {
	var list []model.OutboxEvent
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, event_type, biz_id, payload, status, retry_count, trace_id, created_at, sent_at
		 FROM outbox_events
		 WHERE status = ? AND retry_count < ?
		 ORDER BY id ASC LIMIT ?`,
		constant.OutboxPending, maxRetry, limit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox_events SET status = ?, sent_at = ? WHERE id = ?`,
		constant.OutboxSent, NowMs(), id)
	return err
}

// MarkOutboxRetry 投递失败计数加一，达到上限置失败终态
func (s *Store) MarkOutboxRetry(ctx context.Context, id int64, maxRetry int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox_events SET retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END
		 WHERE id = ?`,
		maxRetry, constant.OutboxFailed, constant.OutboxPending, id)
	return err
}
