package service

import (
	"context"
	"testing"

	"casino-server/common/constant"
	"casino-server/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fundUser 建用户并充值（kind=deposit），测试场景的公共铺垫
func fundUser(t *testing.T, st *store.Store, ledger LedgerService, userID int64, amount float64) {
	t.Helper()
	ctx := context.Background()
	if err := st.EnsureUser(ctx, userID); err != nil {
		t.Fatalf("ensure user %d: %v", userID, err)
	}
	if amount > 0 {
		if _, err := ledger.Credit(ctx, LedgerInput{
			UserID: userID, Amount: amount, Kind: constant.KindDeposit, Reference: "test-fund",
		}); err != nil {
			t.Fatalf("fund user %d: %v", userID, err)
		}
	}
}
