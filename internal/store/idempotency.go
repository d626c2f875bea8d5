package store

import (
	"context"
	"database/sql"
	"errors"

	"casino-server/internal/model"
)

// GetIdemKey 查询已占用的幂等键，未占用返回 nil
// 占用动作在注单落库事务内完成，不单独提供
func (s *Store) GetIdemKey(ctx context.Context, idemKey string) (*model.IdempotencyKey, error) {
	var k model.IdempotencyKey
	err := s.db.GetContext(ctx, &k,
		`SELECT id, idem_key, scope, ref_id, created_at FROM idempotency_keys WHERE idem_key = ?`, idemKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
