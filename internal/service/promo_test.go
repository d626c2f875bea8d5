package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

func TestPromoActivateFixed(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 0)

	if _, err := promo.Create(ctx, CreatePromoInput{
		Code: "welcome10", Amount: 5.00, BonusType: model.BonusFixed, MaxUses: 2, CreatedBy: "admin",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := promo.Activate(ctx, 1, "WELCOME10", "t1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if out.Amount != 5.00 || out.BalanceAfter != 5.00 {
		t.Fatalf("unexpected output: %+v", out)
	}

	p, err := promo.Get(ctx, "welcome10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.UsedCount != 1 {
		t.Fatalf("used_count = %d, want 1", p.UsedCount)
	}
}

func TestPromoActivateRejectionPrecedence(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 0)
	fundUser(t, st, ledger, 2, 0)
	fundUser(t, st, ledger, 3, 0)

	// 不存在
	if _, err := promo.Activate(ctx, 1, "NOPE", ""); !errors.Is(err, ErrPromoNotFound) {
		t.Fatalf("expected ErrPromoNotFound, got %v", err)
	}

	// 已停用
	if _, err := promo.Create(ctx, CreatePromoInput{Code: "OFF", Amount: 1}); err != nil {
		t.Fatalf("create OFF: %v", err)
	}
	if err := promo.Deactivate(ctx, "OFF"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := promo.Activate(ctx, 1, "OFF", ""); !errors.Is(err, ErrPromoInactive) {
		t.Fatalf("expected ErrPromoInactive, got %v", err)
	}

	// 已过期
	if _, err := promo.Create(ctx, CreatePromoInput{
		Code: "OLD", Amount: 1, ExpiresAt: time.Now().Add(-time.Hour).UnixMilli(),
	}); err != nil {
		t.Fatalf("create OLD: %v", err)
	}
	if _, err := promo.Activate(ctx, 1, "OLD", ""); !errors.Is(err, ErrPromoExpired) {
		t.Fatalf("expected ErrPromoExpired, got %v", err)
	}

	// 名额耗尽与重复领取
	if _, err := promo.Create(ctx, CreatePromoInput{Code: "ONE", Amount: 1, MaxUses: 1}); err != nil {
		t.Fatalf("create ONE: %v", err)
	}
	if _, err := promo.Activate(ctx, 1, "ONE", ""); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if _, err := promo.Activate(ctx, 1, "ONE", ""); !errors.Is(err, ErrPromoExhausted) {
		// 名额先于重复领取检查
		t.Fatalf("expected ErrPromoExhausted, got %v", err)
	}
	if _, err := promo.Activate(ctx, 2, "ONE", ""); !errors.Is(err, ErrPromoExhausted) {
		t.Fatalf("expected ErrPromoExhausted, got %v", err)
	}

	// 同一用户重复领取（名额未满时）
	if _, err := promo.Create(ctx, CreatePromoInput{Code: "MULTI", Amount: 1, MaxUses: 10}); err != nil {
		t.Fatalf("create MULTI: %v", err)
	}
	if _, err := promo.Activate(ctx, 3, "MULTI", ""); err != nil {
		t.Fatalf("activate MULTI: %v", err)
	}
	if _, err := promo.Activate(ctx, 3, "MULTI", ""); !errors.Is(err, ErrPromoActivated) {
		t.Fatalf("expected ErrPromoActivated, got %v", err)
	}
}

func TestPromoRestrictions(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 5.00)  // 充值 5
	fundUser(t, st, ledger, 2, 20.00) // 充值 20

	if _, err := promo.Create(ctx, CreatePromoInput{
		Code: "VIP", Amount: 3.00,
		Restrictions: &model.PromoRestrictions{MinDeposit: 10},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := promo.Activate(ctx, 1, "VIP", ""); !errors.Is(err, ErrPromoRestricted) {
		t.Fatalf("expected ErrPromoRestricted, got %v", err)
	}
	if _, err := promo.Activate(ctx, 2, "VIP", ""); err != nil {
		t.Fatalf("qualified user rejected: %v", err)
	}
}

func TestPromoPercentageBonus(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 50.00)
	fundUser(t, st, ledger, 2, 0)

	if _, err := promo.Create(ctx, CreatePromoInput{
		Code: "PCT10", Amount: 10, BonusType: model.BonusPercentage,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := promo.Activate(ctx, 1, "PCT10", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if out.Amount != 5.00 {
		t.Fatalf("bonus = %v, want 5.00 (10%% of 50)", out.Amount)
	}

	// 无充值记录的百分比奖励无从计算
	if _, err := promo.Activate(ctx, 2, "PCT10", ""); !errors.Is(err, ErrPromoRestricted) {
		t.Fatalf("expected ErrPromoRestricted, got %v", err)
	}
}

func TestPromoConcurrentSingleUse(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()

	const n = 10
	for i := int64(1); i <= n; i++ {
		fundUser(t, st, ledger, i, 0)
	}
	if _, err := promo.Create(ctx, CreatePromoInput{Code: "LAST1", Amount: 2.00, MaxUses: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			if _, err := promo.Activate(ctx, uid, "LAST1", ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}
	p, _ := promo.Get(ctx, "LAST1")
	if p.UsedCount != 1 {
		t.Fatalf("used_count = %d, want 1", p.UsedCount)
	}
}

func TestPromoActivateDisabledUserBurnsNothing(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 0)
	if err := st.SetUserStatus(ctx, 1, constant.StatusDeleted); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	if _, err := promo.Create(ctx, CreatePromoInput{Code: "ONCE", Amount: 5.00, MaxUses: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := promo.Activate(ctx, 1, "ONCE", "t1"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}

	// 入账失败的激活不烧名额、不留激活记录、不动账本
	p, err := promo.Get(ctx, "ONCE")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.UsedCount != 0 {
		t.Fatalf("used_count = %d after failed activate, want 0", p.UsedCount)
	}
	if bal, _ := ledger.Replay(ctx, 1); bal != 0 {
		t.Fatalf("ledger moved on failed activate: %v", bal)
	}

	// 恢复后同一用户可正常领取，不会被误判为已领过
	if err := st.SetUserStatus(ctx, 1, constant.StatusNormal); err != nil {
		t.Fatalf("enable user: %v", err)
	}
	out, err := promo.Activate(ctx, 1, "ONCE", "t2")
	if err != nil {
		t.Fatalf("activate after re-enable: %v", err)
	}
	if out.Amount != 5.00 || out.BalanceAfter != 5.00 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestPromoStats(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	promo := NewPromoService(st, ledger)
	ctx := context.Background()
	fundUser(t, st, ledger, 1, 0)

	_, _ = promo.Create(ctx, CreatePromoInput{Code: "A", Amount: 2.00})
	_, _ = promo.Create(ctx, CreatePromoInput{Code: "B", Amount: 3.00})
	_ = promo.Deactivate(ctx, "B")
	_, err := promo.Activate(ctx, 1, "A", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	stats, err := promo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCodes != 2 || stats.ActiveCodes != 1 {
		t.Fatalf("codes = %d/%d, want 2/1", stats.TotalCodes, stats.ActiveCodes)
	}
	if stats.TotalUses != 1 || stats.TotalAmount != 2.00 {
		t.Fatalf("uses = %d amount = %v, want 1/2.00", stats.TotalUses, stats.TotalAmount)
	}
}
