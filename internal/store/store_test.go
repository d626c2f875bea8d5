package store

import (
	"context"
	"errors"
	"testing"

	"casino-server/common/constant"
	"casino-server/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestApplyBalanceChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.EnsureUser(ctx, 1); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	tx, err := s.ApplyBalanceChange(ctx, 1, 10.00, constant.KindDeposit, "dep-1", "t1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if tx.BalanceBefore != 0 || tx.BalanceAfter != 10.00 || tx.Delta != 10.00 {
		t.Fatalf("unexpected snapshot: %+v", tx)
	}

	tx, err = s.ApplyBalanceChange(ctx, 1, -3.00, constant.KindBet, "bill-1", "t2")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if tx.BalanceBefore != 10.00 || tx.BalanceAfter != 7.00 {
		t.Fatalf("unexpected snapshot: %+v", tx)
	}
	if tx.KindStr != "bet" {
		t.Fatalf("kind_str not filled: %+v", tx)
	}
}

func TestApplyBalanceChangeRejectsOverdraft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)
	if _, err := s.ApplyBalanceChange(ctx, 1, 5.00, constant.KindDeposit, "", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := s.ApplyBalanceChange(ctx, 1, -5.01, constant.KindBet, "", "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// 失败后余额与流水都不应有部分效果
	u, err := s.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Balance != 5.00 {
		t.Fatalf("balance changed on rejected debit: %v", u.Balance)
	}
	sum, err := s.ReplayBalance(ctx, 1)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sum != 5.00 {
		t.Fatalf("ledger changed on rejected debit: %v", sum)
	}
}

func TestApplyBalanceChangeUnknownUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ApplyBalanceChange(context.Background(), 999, 1.00, constant.KindDeposit, "", "")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestApplyBalanceChangeDisabledUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)
	if err := s.SetUserStatus(ctx, 1, constant.StatusDeleted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	_, err := s.ApplyBalanceChange(ctx, 1, 1.00, constant.KindDeposit, "", "")
	if !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestActivatePromo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)
	_ = s.EnsureUser(ctx, 2)
	_ = s.EnsureUser(ctx, 3)

	promo := &model.PromoCode{
		Code: "WELCOME10", Amount: 5.00, BonusType: model.BonusFixed,
		MaxUses: 2, Active: constant.StatusNormal, CreatedBy: "admin",
	}
	if err := s.CreatePromo(ctx, promo); err != nil {
		t.Fatalf("create promo: %v", err)
	}

	rec, err := s.ActivatePromo(ctx, "WELCOME10", 1, 5.00, "t1")
	if err != nil {
		t.Fatalf("first use: %v", err)
	}
	// 入账与激活同一事务：流水与余额同步落账
	if rec.Delta != 5.00 || rec.KindStr != "promo" {
		t.Fatalf("unexpected transaction: %+v", rec)
	}
	u, _ := s.GetUser(ctx, 1)
	if u.Balance != 5.00 {
		t.Fatalf("balance = %v, want 5.00", u.Balance)
	}
	// 同一用户重复领取
	if _, err := s.ActivatePromo(ctx, "WELCOME10", 1, 5.00, "t2"); !errors.Is(err, ErrPromoActivated) {
		t.Fatalf("expected ErrPromoActivated, got %v", err)
	}
	if _, err := s.ActivatePromo(ctx, "WELCOME10", 2, 5.00, "t3"); err != nil {
		t.Fatalf("second use: %v", err)
	}
	// 名额耗尽
	if _, err := s.ActivatePromo(ctx, "WELCOME10", 3, 5.00, "t4"); !errors.Is(err, ErrPromoExhausted) {
		t.Fatalf("expected ErrPromoExhausted, got %v", err)
	}

	p, err := s.GetPromo(ctx, "WELCOME10")
	if err != nil {
		t.Fatalf("get promo: %v", err)
	}
	if p.UsedCount != 2 {
		t.Fatalf("used_count = %d, want 2", p.UsedCount)
	}
}

func TestActivatePromoDisabledUserRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)
	if err := s.SetUserStatus(ctx, 1, constant.StatusDeleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	promo := &model.PromoCode{
		Code: "ONCE", Amount: 5.00, BonusType: model.BonusFixed,
		MaxUses: 1, Active: constant.StatusNormal, CreatedBy: "admin",
	}
	if err := s.CreatePromo(ctx, promo); err != nil {
		t.Fatalf("create promo: %v", err)
	}

	if _, err := s.ActivatePromo(ctx, "ONCE", 1, 5.00, "t1"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}

	// 入账失败必须整体回滚：名额未占用、无激活记录、无流水
	p, err := s.GetPromo(ctx, "ONCE")
	if err != nil {
		t.Fatalf("get promo: %v", err)
	}
	if p.UsedCount != 0 {
		t.Fatalf("used_count = %d after rolled-back activate, want 0", p.UsedCount)
	}
	activated, err := s.HasActivated(ctx, "ONCE", 1)
	if err != nil {
		t.Fatalf("has activated: %v", err)
	}
	if activated {
		t.Fatal("activation row left behind after rolled-back activate")
	}
	sum, err := s.ReplayBalance(ctx, 1)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sum != 0 {
		t.Fatalf("ledger changed on rolled-back activate: %v", sum)
	}
}

func TestCreatePromoDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := &model.PromoCode{Code: "DUP", Amount: 1, BonusType: model.BonusFixed, Active: constant.StatusNormal}
	if err := s.CreatePromo(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreatePromo(ctx, p); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestInsertWagerIdempotency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)

	w := &model.Wager{
		BillNo: "W1", UserID: 1, GameType: "more_less", Stake: 2.00,
		Chosen: "more", Actual: "5", Win: 1, Multiplier: 2.0, Payout: 4.00,
	}
	if err := s.InsertWagerWithEvent(ctx, w, nil, "idem-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// 相同幂等键重复提交
	w2 := &model.Wager{BillNo: "W2", UserID: 1, GameType: "more_less", Stake: 2.00}
	if err := s.InsertWagerWithEvent(ctx, w2, nil, "idem-1"); !errors.Is(err, ErrIdemConflict) {
		t.Fatalf("expected ErrIdemConflict, got %v", err)
	}
	// 重复注单号
	w3 := &model.Wager{BillNo: "W1", UserID: 1, GameType: "more_less", Stake: 2.00}
	if err := s.InsertWagerWithEvent(ctx, w3, nil, ""); !errors.Is(err, ErrDuplicateBillNo) {
		t.Fatalf("expected ErrDuplicateBillNo, got %v", err)
	}

	rec, err := s.GetIdemKey(ctx, "idem-1")
	if err != nil || rec == nil {
		t.Fatalf("idem record missing: %v", err)
	}
	if rec.RefID != "W1" {
		t.Fatalf("idem ref = %s, want W1", rec.RefID)
	}
}

func TestPayoutLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)

	p := &model.PayoutRequest{UserID: 1, Amount: 3.00, Currency: "USDT", SpendID: "sp-1"}
	if err := s.InsertPayout(ctx, p); err != nil {
		t.Fatalf("insert payout: %v", err)
	}

	due, err := s.DuePayouts(ctx, NowMs(), 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("due payouts: %v %d", err, len(due))
	}

	ok, err := s.MarkPayoutInflight(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("claim inflight: %v %v", ok, err)
	}
	// 二次认领必须失败
	ok, err = s.MarkPayoutInflight(ctx, p.ID)
	if err != nil || ok {
		t.Fatalf("double claim must fail: %v %v", ok, err)
	}

	// 失败：未到上限应转 requeued
	if err := s.MarkPayoutFailed(ctx, p.ID, "gateway timeout", NowMs()+5000, 8); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, err := s.GetPayout(ctx, p.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if got.Status != constant.PayoutRequeued {
		t.Fatalf("status = %d, want requeued", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.Attempts)
	}
}

func TestMarkPayoutFailedDeadAtMaxAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)

	p := &model.PayoutRequest{UserID: 1, Amount: 3.00, Currency: "USDT", SpendID: "sp-2"}
	if err := s.InsertPayout(ctx, p); err != nil {
		t.Fatalf("insert payout: %v", err)
	}
	maxAttempts := 2
	for i := 0; i < maxAttempts; i++ {
		ok, err := s.MarkPayoutInflight(ctx, p.ID)
		if err != nil || !ok {
			t.Fatalf("claim %d: %v %v", i, ok, err)
		}
		if err := s.MarkPayoutFailed(ctx, p.ID, "boom", NowMs(), maxAttempts); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
	}
	got, err := s.GetPayout(ctx, p.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if got.Status != constant.PayoutDead {
		t.Fatalf("status = %d, want dead", got.Status)
	}
	if got.Attempts != maxAttempts {
		t.Fatalf("attempts = %d, want %d", got.Attempts, maxAttempts)
	}
}

func TestRequeueStuckInflight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.EnsureUser(ctx, 1)

	p := &model.PayoutRequest{UserID: 1, Amount: 1.00, Currency: "USDT", SpendID: "sp-3"}
	_ = s.InsertPayout(ctx, p)
	if ok, _ := s.MarkPayoutInflight(ctx, p.ID); !ok {
		t.Fatal("claim failed")
	}

	n, err := s.RequeueStuckInflight(ctx)
	if err != nil {
		t.Fatalf("requeue stuck: %v", err)
	}
	if n != 1 {
		t.Fatalf("requeued %d rows, want 1", n)
	}
	got, _ := s.GetPayout(ctx, p.ID)
	if got.Status != constant.PayoutRequeued {
		t.Fatalf("status = %d, want requeued", got.Status)
	}
}

func TestOutboxFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	evt := &model.OutboxEvent{EventType: model.EventWagerSettled, BizID: "W1", Payload: `{"x":1}`}
	if err := s.CreateOutboxEvent(ctx, evt); err != nil {
		t.Fatalf("create event: %v", err)
	}

	pending, err := s.PendingOutboxEvents(ctx, 10, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v %d", err, len(pending))
	}

	if err := s.MarkOutboxRetry(ctx, pending[0].ID, 10); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := s.MarkOutboxSent(ctx, pending[0].ID); err != nil {
		t.Fatalf("sent: %v", err)
	}
	pending, _ = s.PendingOutboxEvents(ctx, 10, 10)
	if len(pending) != 0 {
		t.Fatalf("sent event still pending: %d", len(pending))
	}
}

func TestCoefficientSeedAndUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	coeffs, err := s.LoadCoefficients(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for key, def := range model.DefaultCoefficients {
		if coeffs[key] != def {
			t.Errorf("seed %s = %v, want %v", key, coeffs[key], def)
		}
	}

	if err := s.UpsertCoefficient(ctx, model.KefMoreLess, 1.95, "admin"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	coeffs, _ = s.LoadCoefficients(ctx)
	if coeffs[model.KefMoreLess] != 1.95 {
		t.Fatalf("updated value = %v, want 1.95", coeffs[model.KefMoreLess])
	}
}
