package service

import (
	"errors"

	"casino-server/internal/store"
)

// 业务错误定义，API 层据此映射业务码
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrStakeBelowMin = errors.New("stake below minimum limit")
	ErrStakeAboveMax = errors.New("stake exceeds maximum limit")
	ErrInvalidChoice = errors.New("invalid game choice")

	ErrPromoInactive   = errors.New("promo code inactive")
	ErrPromoExpired    = errors.New("promo code expired")
	ErrPromoRestricted = errors.New("promo code restrictions not satisfied")

	ErrUnknownCoeffKey = errors.New("unknown coefficient key")
	ErrInvalidCoeff    = errors.New("invalid coefficient value")

	ErrWithdrawBelowMin = errors.New("withdraw amount below minimum limit")

	// 正确加锁下不可达；一旦命中按缺陷记录，不做静默修复
	ErrInvariantViolation = errors.New("invariant violation detected")

	// 存储层错误透出
	ErrUserNotFound      = store.ErrUserNotFound
	ErrUserDisabled      = store.ErrUserDisabled
	ErrInsufficientFunds = store.ErrInsufficientFunds
	ErrPromoNotFound     = store.ErrPromoNotFound
	ErrDuplicateCode     = store.ErrDuplicateCode
	ErrPromoExhausted    = store.ErrPromoExhausted
	ErrPromoActivated    = store.ErrPromoActivated
)
