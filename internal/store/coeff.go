package store

import (
	"context"

	"casino-server/internal/model"
)

// seedCoefficients 首次建库写入默认赔率与限额，已有键不覆盖
func (s *Store) seedCoefficients(ctx context.Context) error {
	prefix := `INSERT IGNORE INTO`
	if s.driver == DriverSQLite {
		prefix = `INSERT OR IGNORE INTO`
	}
	now := NowMs()
	for key, val := range model.DefaultCoefficients {
		_, err := s.db.ExecContext(ctx,
			prefix+` coefficients (coeff_key, coeff_value, updated_by, updated_at) VALUES (?, ?, 'seed', ?)`,
			string(key), val, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadCoefficients 全量读出，供服务层缓存
func (s *Store) LoadCoefficients(ctx context.Context) (map[model.CoeffKey]float64, error) {
	var list []model.Coefficient
	err := s.db.SelectContext(ctx, &list,
		`SELECT coeff_key, coeff_value, updated_by, updated_at FROM coefficients`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.CoeffKey]float64, len(list))
	for _, c := range list {
		out[model.CoeffKey(c.Key)] = c.Value
	}
	return out, nil
}

// UpsertCoefficient 更新单键，键不存在则插入
func (s *Store) UpsertCoefficient(ctx context.Context, key model.CoeffKey, value float64, updatedBy string) error {
	now := NowMs()
	res, err := s.db.ExecContext(ctx,
		`UPDATE coefficients SET coeff_value = ?, updated_by = ?, updated_at = ? WHERE coeff_key = ?`,
		value, updatedBy, now, string(key))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO coefficients (coeff_key, coeff_value, updated_by, updated_at) VALUES (?, ?, ?, ?)`,
		string(key), value, updatedBy, now)
	if err != nil && isDuplicateErr(err) {
		// 并发插入撞键，再走一次更新
		_, err = s.db.ExecContext(ctx,
			`UPDATE coefficients SET coeff_value = ?, updated_by = ?, updated_at = ? WHERE coeff_key = ?`,
			value, updatedBy, now, string(key))
	}
	return err
}
