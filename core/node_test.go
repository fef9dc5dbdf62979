package core

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"hvstaking/native/staking"
	"hvstaking/state"
	"hvstaking/storage"
	"hvstaking/token"
)

const (
	testTokenCode = "hirevibeshvt"
	testSelf      = "hvtstaking"
)

type nodeHarness struct {
	node *Node
	db   *storage.MemDB
	now  int64
}

func newTestNode(t *testing.T) *nodeHarness {
	t.Helper()
	db := storage.NewMemDB()
	return newTestNodeOver(t, db)
}

func newTestNodeOver(t *testing.T, db *storage.MemDB) *nodeHarness {
	t.Helper()
	manager := state.NewManager(db)
	params := staking.DefaultParams(testTokenCode, testSelf)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node, err := NewNode(manager, params, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(node.Close)
	h := &nodeHarness{node: node, db: db, now: 1_700_000_000}
	node.SetNowFunc(func() int64 { return h.now })
	return h
}

func (h *nodeHarness) seed(t *testing.T, balances map[string]string) {
	t.Helper()
	if err := h.node.SeedGenesis(balances); err != nil {
		t.Fatal(err)
	}
}

func (h *nodeHarness) balance(t *testing.T, name string) string {
	t.Helper()
	balance, err := h.node.Balance(name)
	if err != nil {
		t.Fatal(err)
	}
	return token.NewCoin(balance).String()
}

func TestSeedGenesisIdempotent(t *testing.T) {
	h := newTestNode(t)
	balances := map[string]string{"alice": "100.0000 HVT", testSelf: "50000.0000 HVT"}
	h.seed(t, balances)
	h.seed(t, balances)

	if got := h.balance(t, "alice"); got != "100.0000 HVT" {
		t.Fatalf("alice = %s", got)
	}
	if got := h.balance(t, testSelf); got != "50000.0000 HVT" {
		t.Fatalf("custody = %s", got)
	}
}

func TestDepositStakesAtomically(t *testing.T) {
	h := newTestNode(t)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})

	quantity, _ := token.ParseCoin("40.0000 HVT")
	if err := h.node.Transfer("alice", testSelf, quantity, "stake"); err != nil {
		t.Fatal(err)
	}

	if got := h.balance(t, "alice"); got != "60.0000 HVT" {
		t.Fatalf("alice = %s", got)
	}
	if got := h.balance(t, testSelf); got != "40.0000 HVT" {
		t.Fatalf("custody = %s", got)
	}
	pos, ok, err := h.node.Position("alice")
	if err != nil || !ok {
		t.Fatalf("expected position, ok=%v err=%v", ok, err)
	}
	if pos.Quantity.Cmp(quantity.Amount) != 0 {
		t.Fatalf("staked = %s, want %s", pos.Quantity, quantity.Amount)
	}
	st, err := h.node.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalStaked.Cmp(quantity.Amount) != 0 {
		t.Fatalf("totalStaked = %s", st.TotalStaked)
	}
}

func TestFrozenDepositRollsBackBalances(t *testing.T) {
	h := newTestNode(t)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})
	if err := h.node.Freeze(); err != nil {
		t.Fatal(err)
	}

	quantity, _ := token.ParseCoin("40.0000 HVT")
	err := h.node.Transfer("alice", testSelf, quantity, "stake")
	if !errors.Is(err, staking.ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}

	// The balance move and the rejected stake abort together.
	if got := h.balance(t, "alice"); got != "100.0000 HVT" {
		t.Fatalf("alice = %s (transfer must roll back)", got)
	}
	if _, ok, _ := h.node.Position("alice"); ok {
		t.Fatal("no position should exist")
	}
}

func TestPeerTransferDoesNotStake(t *testing.T) {
	h := newTestNode(t)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})

	quantity, _ := token.ParseCoin("10.0000 HVT")
	if err := h.node.Transfer("alice", "bob", quantity, "gift"); err != nil {
		t.Fatal(err)
	}
	if got := h.balance(t, "bob"); got != "10.0000 HVT" {
		t.Fatalf("bob = %s", got)
	}
	if _, ok, _ := h.node.Position("alice"); ok {
		t.Fatal("peer transfer must not create a position")
	}
}

func TestFrozenLedgerAllowsPeerTransfers(t *testing.T) {
	h := newTestNode(t)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})
	if err := h.node.Freeze(); err != nil {
		t.Fatal(err)
	}

	// Freeze scopes to the staking ledger; token movement that never
	// touches the custody account must keep working.
	quantity, _ := token.ParseCoin("10.0000 HVT")
	if err := h.node.Transfer("alice", "bob", quantity, "gift"); err != nil {
		t.Fatalf("peer transfer while frozen: %v", err)
	}
	if got := h.balance(t, "bob"); got != "10.0000 HVT" {
		t.Fatalf("bob = %s", got)
	}
	if _, ok, _ := h.node.Position("alice"); ok {
		t.Fatal("peer transfer must not create a position")
	}
	if _, ok, _ := h.node.Position("bob"); ok {
		t.Fatal("peer transfer must not create a position")
	}
}

func TestPowerDownAndRefundRoundTrip(t *testing.T) {
	h := newTestNode(t)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})

	stake, _ := token.ParseCoin("100.0000 HVT")
	if err := h.node.Transfer("alice", testSelf, stake, "stake"); err != nil {
		t.Fatal(err)
	}
	unstake, _ := token.ParseCoin("30.0000 HVT")
	if err := h.node.PowerDown("alice", unstake); err != nil {
		t.Fatal(err)
	}

	if err := h.node.Refund("alice"); !errors.Is(err, staking.ErrRefundNotDue) {
		t.Fatalf("early refund: %v", err)
	}

	h.now += int64(staking.RefundDelay / time.Second)
	if err := h.node.Refund("alice"); err != nil {
		t.Fatal(err)
	}
	if got := h.balance(t, "alice"); got != "30.0000 HVT" {
		t.Fatalf("alice = %s after refund", got)
	}
	if got := h.balance(t, testSelf); got != "70.0000 HVT" {
		t.Fatalf("custody = %s after refund", got)
	}
	if _, ok, _ := h.node.PendingRefund("alice"); ok {
		t.Fatal("refund request should be cleared")
	}
}

func TestClaimPaysFromCustody(t *testing.T) {
	h := newTestNode(t)
	// With a single 1 HVT staker the pro-rata ratio hands the whole daily
	// budget to alice, so custody needs at least one day of emission.
	h.seed(t, map[string]string{
		"alice":  "1.0000 HVT",
		testSelf: "50000.0000 HVT",
	})

	stake, _ := token.ParseCoin("1.0000 HVT")
	if err := h.node.Transfer("alice", testSelf, stake, "stake"); err != nil {
		t.Fatal(err)
	}

	// Record the day-1 ratio, then move to day 2 so exactly one day accrues.
	if err := h.node.CalcRatio(1); err != nil {
		t.Fatal(err)
	}
	if err := h.node.SetDay(2); err != nil {
		t.Fatal(err)
	}

	reward, err := h.node.CheckReward("alice")
	if err != nil {
		t.Fatal(err)
	}
	if reward.Sign() <= 0 {
		t.Fatalf("reward = %s, want positive", reward)
	}

	if err := h.node.Claim("alice"); !errors.Is(err, staking.ErrClaimNotEligible) {
		t.Fatalf("claim without opt-in: %v", err)
	}
	if err := h.node.SetProfile("alice", true, ""); err != nil {
		t.Fatal(err)
	}
	if err := h.node.Claim("alice"); err != nil {
		t.Fatal(err)
	}

	balance, err := h.node.Balance("alice")
	if err != nil {
		t.Fatal(err)
	}
	if balance.Cmp(reward) != 0 {
		t.Fatalf("alice balance = %s, want claimed reward %s", balance, reward)
	}
	// The reward is now claimed; an immediate retry has nothing to pay.
	if err := h.node.Claim("alice"); !errors.Is(err, staking.ErrNothingToClaim) {
		t.Fatalf("second claim: %v", err)
	}
}

func TestRearmRefundsAfterRestart(t *testing.T) {
	db := storage.NewMemDB()
	h := newTestNodeOver(t, db)
	h.seed(t, map[string]string{"alice": "100.0000 HVT"})

	stake, _ := token.ParseCoin("100.0000 HVT")
	if err := h.node.Transfer("alice", testSelf, stake, "stake"); err != nil {
		t.Fatal(err)
	}
	unstake, _ := token.ParseCoin("50.0000 HVT")
	if err := h.node.PowerDown("alice", unstake); err != nil {
		t.Fatal(err)
	}
	h.node.Close()

	// A new node over the same database finds the pending refund and
	// re-arms its timer.
	restarted := newTestNodeOver(t, db)
	if err := restarted.node.RearmRefunds(); err != nil {
		t.Fatal(err)
	}
	req, ok, err := restarted.node.PendingRefund("alice")
	if err != nil || !ok {
		t.Fatalf("pending refund should survive restart, ok=%v err=%v", ok, err)
	}
	if want, _ := token.ParseCoin("50.0000 HVT"); req.Quantity.Cmp(want.Amount) != 0 {
		t.Fatalf("pending = %s", req.Quantity)
	}
}
