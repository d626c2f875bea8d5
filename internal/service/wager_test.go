package service

import (
	"context"
	"errors"
	"testing"

	"casino-server/common/helper"
	"casino-server/internal/game"
)

func newWagerFixture(t *testing.T) (WagerService, LedgerService, CoeffService) {
	t.Helper()
	st := newTestStore(t)
	ledger := NewLedgerService(st)
	coeff, err := NewCoeffService(context.Background(), st)
	if err != nil {
		t.Fatalf("coeff service: %v", err)
	}
	wager := NewWagerService(st, ledger, coeff)
	fundUser(t, st, ledger, 1, 10.00)
	return wager, ledger, coeff
}

func TestPlaceWagerNetEffect(t *testing.T) {
	wager, ledger, _ := newWagerFixture(t)
	ctx := context.Background()

	out, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "2.00", Chosen: game.ChoiceMore,
	})
	if err != nil {
		t.Fatalf("place wager: %v", err)
	}

	// 输：净 -stake；赢：净 -stake + stake*multiplier
	want := 10.00 - 2.00
	if out.Win {
		if out.Multiplier != 2.0 {
			t.Fatalf("multiplier = %v, want 2.0", out.Multiplier)
		}
		want = helper.Round2(want + out.Payout)
		if out.Payout != 4.00 {
			t.Fatalf("payout = %v, want 4.00", out.Payout)
		}
	} else if out.Payout != 0 {
		t.Fatalf("losing wager must have zero payout, got %v", out.Payout)
	}
	if out.BalanceAfter != want {
		t.Fatalf("balance_after = %v, want %v", out.BalanceAfter, want)
	}

	bal, _ := ledger.GetBalance(ctx, 1)
	if bal != want {
		t.Fatalf("balance = %v, want %v", bal, want)
	}
	// 结算后对账不变式必须成立
	if _, err := ledger.Replay(ctx, 1); err != nil {
		t.Fatalf("replay after settle: %v", err)
	}
}

func TestPlaceWagerBalanceSnapshotEveryOutcome(t *testing.T) {
	wager, ledger, _ := newWagerFixture(t)
	ctx := context.Background()

	// 连续结算，未中奖的返回值也必须携带扣款后的真实余额快照
	for i := 0; i < 20; i++ {
		out, err := wager.PlaceWager(ctx, WagerInput{
			UserID: 1, GameType: game.TypeNumber, Stake: "0.10", Chosen: "3",
		})
		if errors.Is(err, ErrInsufficientFunds) {
			break
		}
		if err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		bal, berr := ledger.GetBalance(ctx, 1)
		if berr != nil {
			t.Fatalf("balance: %v", berr)
		}
		if out.BalanceAfter != bal {
			t.Fatalf("balance_after = %v, ledger = %v (win=%v)", out.BalanceAfter, bal, out.Win)
		}
	}
}

func TestPlaceWagerStakeBounds(t *testing.T) {
	wager, _, _ := newWagerFixture(t)
	ctx := context.Background()

	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "0.05", Chosen: game.ChoiceMore,
	}); !errors.Is(err, ErrStakeBelowMin) {
		t.Fatalf("expected ErrStakeBelowMin, got %v", err)
	}
	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "30.01", Chosen: game.ChoiceMore,
	}); !errors.Is(err, ErrStakeAboveMax) {
		t.Fatalf("expected ErrStakeAboveMax, got %v", err)
	}
	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "abc", Chosen: game.ChoiceMore,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPlaceWagerInvalidChoice(t *testing.T) {
	wager, ledger, _ := newWagerFixture(t)
	ctx := context.Background()

	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "2.00", Chosen: "sideways",
	}); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: "poker", Stake: "2.00", Chosen: "flush",
	}); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	// 校验失败不产生任何账变
	bal, _ := ledger.GetBalance(ctx, 1)
	if bal != 10.00 {
		t.Fatalf("balance changed on rejected wager: %v", bal)
	}
}

func TestPlaceWagerInsufficientFunds(t *testing.T) {
	wager, ledger, _ := newWagerFixture(t)
	ctx := context.Background()

	// 余额 10，先押走 9.50 以上不可行，直接押 10.01 以上由上限拦截；
	// 押 10.50 超过余额但在注额上限内
	if _, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeMoreLess, Stake: "10.50", Chosen: game.ChoiceMore,
	}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	bal, _ := ledger.GetBalance(ctx, 1)
	if bal != 10.00 {
		t.Fatalf("balance changed on rejected wager: %v", bal)
	}
}

func TestPlaceWagerIdempotentReplay(t *testing.T) {
	wager, ledger, _ := newWagerFixture(t)
	ctx := context.Background()

	first, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeEvenOdd, Stake: "1.00", Chosen: game.ChoiceEven,
		IdempotencyKey: "order-abc",
	})
	if err != nil {
		t.Fatalf("first place: %v", err)
	}
	balAfterFirst, _ := ledger.GetBalance(ctx, 1)

	second, err := wager.PlaceWager(ctx, WagerInput{
		UserID: 1, GameType: game.TypeEvenOdd, Stake: "1.00", Chosen: game.ChoiceEven,
		IdempotencyKey: "order-abc",
	})
	if err != nil {
		t.Fatalf("replay place: %v", err)
	}

	if second.BillNo != first.BillNo || second.Win != first.Win || second.Payout != first.Payout {
		t.Fatalf("replay differs: first=%+v second=%+v", first, second)
	}
	// 重放不再结算
	bal, _ := ledger.GetBalance(ctx, 1)
	if bal != balAfterFirst {
		t.Fatalf("balance changed on replay: %v -> %v", balAfterFirst, bal)
	}

	history, err := wager.History(ctx, 1, 10, 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("history = %d, %v; want 1", len(history), err)
	}
}

func TestPlaceWagerSlotsTierMultiplier(t *testing.T) {
	wager, _, coeff := newWagerFixture(t)
	ctx := context.Background()

	// 多次下注验证老虎机派彩只会取三连/两连赔率之一
	three := coeff.Get("kef_slots_three")
	two := coeff.Get("kef_slots_two")
	for i := 0; i < 30; i++ {
		out, err := wager.PlaceWager(ctx, WagerInput{
			UserID: 1, GameType: game.TypeSlots, Stake: "0.10", Chosen: game.ChoiceSpin,
		})
		if errors.Is(err, ErrInsufficientFunds) {
			break
		}
		if err != nil {
			t.Fatalf("place slots: %v", err)
		}
		if out.Win && out.Multiplier != three && out.Multiplier != two {
			t.Fatalf("slots multiplier = %v, want %v or %v", out.Multiplier, three, two)
		}
		if !out.Win && out.Multiplier != 0 {
			t.Fatalf("losing slots multiplier = %v, want 0", out.Multiplier)
		}
	}
}
