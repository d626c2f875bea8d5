package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Store 统一数据访问层，所有 SQL 集中在本包
// driver 支持 mysql（生产）与 sqlite3（嵌入式/测试），占位符统一用 ?
type Store struct {
	db      *sqlx.DB
	driver  string
	dialect g.DialectWrapper
}

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(opt Options) (*Store, error) {
	driver := opt.Driver
	if driver == "" {
		driver = DriverMySQL
	}
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sqlx.Open(driver, opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// sqlite 单文件/内存库：单连接避免锁竞争
		db.SetMaxOpenConns(1)
	default:
		if opt.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opt.MaxOpenConns)
		}
		if opt.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opt.MaxIdleConns)
		}
		if opt.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opt.ConnMaxLifetime)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	goquDialect := "mysql"
	if driver == DriverSQLite {
		goquDialect = "sqlite3"
	}

	return &Store{db: db, driver: driver, dialect: g.Dialect(goquDialect)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sqlx.DB { return s.db }

// forUpdate 行锁后缀，sqlite 不支持（单连接下无需要）
func (s *Store) forUpdate() string {
	if s.driver == DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// withTx 事务包装，fn 返回错误则回滚
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NowMs 统一 13 位毫秒时间戳
func NowMs() int64 { return time.Now().UnixMilli() }

// schemaDDL 建表语句，{{pk}} 按方言替换自增主键
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT NOT NULL PRIMARY KEY,
		balance DOUBLE NOT NULL DEFAULT 0,
		status TINYINT NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id {{pk}},
		user_id BIGINT NOT NULL,
		delta DOUBLE NOT NULL,
		balance_before DOUBLE NOT NULL,
		balance_after DOUBLE NOT NULL,
		kind INT NOT NULL,
		kind_str VARCHAR(32) NOT NULL DEFAULT '',
		reference VARCHAR(64) NOT NULL DEFAULT '',
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		code VARCHAR(64) NOT NULL PRIMARY KEY,
		amount DOUBLE NOT NULL DEFAULT 0,
		bonus_type VARCHAR(16) NOT NULL DEFAULT 'fixed',
		max_uses INT NOT NULL DEFAULT 0,
		used_count INT NOT NULL DEFAULT 0,
		expires_at BIGINT NOT NULL DEFAULT 0,
		active TINYINT NOT NULL DEFAULT 1,
		restrictions TEXT NOT NULL,
		created_by VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS promo_activations (
		id {{pk}},
		user_id BIGINT NOT NULL,
		code VARCHAR(64) NOT NULL,
		amount DOUBLE NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0,
		UNIQUE (user_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS wagers (
		id {{pk}},
		bill_no VARCHAR(64) NOT NULL,
		user_id BIGINT NOT NULL,
		game_type VARCHAR(32) NOT NULL,
		stake DOUBLE NOT NULL,
		outcome_chosen VARCHAR(64) NOT NULL DEFAULT '',
		outcome_actual VARCHAR(64) NOT NULL DEFAULT '',
		win TINYINT NOT NULL DEFAULT 0,
		multiplier DOUBLE NOT NULL DEFAULT 0,
		payout DOUBLE NOT NULL DEFAULT 0,
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		UNIQUE (bill_no)
	)`,
	`CREATE TABLE IF NOT EXISTS payout_requests (
		id {{pk}},
		user_id BIGINT NOT NULL,
		amount DOUBLE NOT NULL,
		currency VARCHAR(16) NOT NULL DEFAULT 'USDT',
		status TINYINT NOT NULL DEFAULT 1,
		attempts INT NOT NULL DEFAULT 0,
		last_error VARCHAR(255) NOT NULL DEFAULT '',
		spend_id VARCHAR(64) NOT NULL DEFAULT '',
		transfer_id VARCHAR(64) NOT NULL DEFAULT '',
		next_attempt_at BIGINT NOT NULL DEFAULT 0,
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		completed_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS coefficients (
		coeff_key VARCHAR(64) NOT NULL PRIMARY KEY,
		coeff_value DOUBLE NOT NULL,
		updated_by VARCHAR(64) NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id {{pk}},
		event_type VARCHAR(64) NOT NULL,
		biz_id VARCHAR(64) NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		status TINYINT NOT NULL DEFAULT 1,
		retry_count INT NOT NULL DEFAULT 0,
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		sent_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		id {{pk}},
		idem_key VARCHAR(128) NOT NULL,
		scope VARCHAR(32) NOT NULL DEFAULT '',
		ref_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		UNIQUE (idem_key)
	)`,
}

// 非唯一索引仅做查询加速，mysql 不支持 IF NOT EXISTS，重复创建报错时忽略
var indexDDL = []string{
	`CREATE INDEX idx_tx_user_created ON transactions (user_id, created_at)`,
	`CREATE INDEX idx_wager_user_created ON wagers (user_id, created_at)`,
	`CREATE INDEX idx_payout_status_next ON payout_requests (status, next_attempt_at)`,
	`CREATE INDEX idx_outbox_status ON outbox_events (status, id)`,
}

// EnsureSchema 启动时建表，幂等
func (s *Store) EnsureSchema(ctx context.Context) error {
	pk := "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	if s.driver == DriverSQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	for _, ddl := range schemaDDL {
		stmt := strings.ReplaceAll(ddl, "{{pk}}", pk)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			msg := err.Error()
			if strings.Contains(msg, "Duplicate key name") || strings.Contains(msg, "already exists") {
				continue
			}
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return s.seedCoefficients(ctx)
}
