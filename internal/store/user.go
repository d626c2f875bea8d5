package store

import (
	"context"
	"database/sql"
	"errors"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserDisabled      = errors.New("user disabled")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// EnsureUser 不存在则建档（余额 0），已存在时无副作用
func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	now := NowMs()
	query := `INSERT IGNORE INTO users (user_id, balance, status, created_at, updated_at) VALUES (?, 0, ?, ?, ?)`
	if s.driver == DriverSQLite {
		query = `INSERT OR IGNORE INTO users (user_id, balance, status, created_at, updated_at) VALUES (?, 0, ?, ?, ?)`
	}
	_, err := s.db.ExecContext(ctx, query, userID, constant.StatusNormal, now, now)
	return err
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT user_id, balance, status, created_at, updated_at FROM users WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetUserStatus(ctx context.Context, userID int64, status int8) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET status = ?, updated_at = ? WHERE user_id = ?`, status, NowMs(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
