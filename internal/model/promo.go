package model

import (
	"encoding/json"
	"strings"
	"time"
)

// 促销码奖励类型
const (
	BonusFixed      = "fixed"      // 固定金额
	BonusPercentage = "percentage" // 按历史充值总额百分比
)

// PromoCode 对应 promo_codes 表
// max_uses=0 表示不限次数；expires_at=0 表示永不过期
type PromoCode struct {
	Code         string  `db:"code"` // 主键，统一大写
	Amount       float64 `db:"amount"`
	BonusType    string  `db:"bonus_type"`
	MaxUses      int     `db:"max_uses"`
	UsedCount    int     `db:"used_count"`
	ExpiresAt    int64   `db:"expires_at"`   // 13位毫秒时间戳，0=永久
	Active       int8    `db:"active"`       // 1=启用 2=停用
	Restrictions string  `db:"restrictions"` // JSON，如 {"min_deposit":10,"min_bets":5}
	CreatedBy    string  `db:"created_by"`   // 创建者（后台操作人）
	CreatedAt    int64   `db:"created_at"`
}

// PromoRestrictions 激活限制条件（可选）
type PromoRestrictions struct {
	MinDeposit float64 `json:"min_deposit,omitempty"` // 历史充值总额下限
	MinBets    int     `json:"min_bets,omitempty"`    // 历史下注笔数下限
}

// ParseRestrictions 解析限制条件，空串视为无限制
func (p *PromoCode) ParseRestrictions() (PromoRestrictions, error) {
	var r PromoRestrictions
	s := strings.TrimSpace(p.Restrictions)
	if s == "" || s == "{}" {
		return r, nil
	}
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}

// Expired 判断是否已过期
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt > 0 && p.ExpiresAt < now.UnixMilli()
}

// Exhausted 判断次数限额是否已耗尽
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses > 0 && p.UsedCount >= p.MaxUses
}

// PromoActivation 对应 promo_activations 表（只增不改）
// 唯一索引 (user_id, code)：同一用户同一码至多激活一次
type PromoActivation struct {
	ID        int64   `db:"id"`
	UserID    int64   `db:"user_id"`
	Code      string  `db:"code"`
	Amount    float64 `db:"amount"` // 实际入账金额
	CreatedAt int64   `db:"created_at"`
}

// PromoStats 促销码聚合统计（后台报表用）
type PromoStats struct {
	TotalCodes  int     `db:"total_codes"`
	ActiveCodes int     `db:"active_codes"`
	TotalUses   int     `db:"total_uses"`
	TotalAmount float64 `db:"total_amount"`
}
