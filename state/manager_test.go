package state

import (
	"math/big"
	"strings"
	"testing"

	"hvstaking/native/staking"
	"hvstaking/storage"
	"hvstaking/token"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestSettingsLazyDefault(t *testing.T) {
	m := newTestManager(t)
	st, err := m.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if st.ActiveDay != 1 || st.Frozen || st.TotalStaked.Sign() != 0 {
		t.Fatalf("unexpected defaults: %+v", st)
	}
}

func TestOverlayCommit(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)

	pos := &staking.Position{Quantity: big.NewInt(100), UnclaimedTokens: big.NewInt(0), LastCalcDay: 1}
	if err := m.PutPosition("alice", pos); err != nil {
		t.Fatal(err)
	}
	if !m.Dirty() {
		t.Fatal("overlay should be dirty after a staged write")
	}

	// Staged writes are visible through the manager before commit.
	got, ok, err := m.Position("alice")
	if err != nil || !ok {
		t.Fatalf("staged read: ok=%v err=%v", ok, err)
	}
	if got.Quantity.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("staged quantity = %s", got.Quantity)
	}

	// But not in the database yet.
	fresh := NewManager(db)
	if _, ok, _ := fresh.Position("alice"); ok {
		t.Fatal("uncommitted write must not reach the database")
	}

	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	if m.Dirty() {
		t.Fatal("overlay should be clean after commit")
	}
	if _, ok, _ := fresh.Position("alice"); !ok {
		t.Fatal("committed write should be visible")
	}
}

func TestOverlayDiscard(t *testing.T) {
	m := newTestManager(t)
	if err := m.PutPosition("alice", &staking.Position{Quantity: big.NewInt(5)}); err != nil {
		t.Fatal(err)
	}
	m.Discard()
	if m.Dirty() {
		t.Fatal("overlay should be clean after discard")
	}
	if _, ok, _ := m.Position("alice"); ok {
		t.Fatal("discarded write must not be visible")
	}
}

func TestOverlayDelete(t *testing.T) {
	m := newTestManager(t)
	if err := m.PutPosition("alice", &staking.Position{Quantity: big.NewInt(5)}); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}

	if err := m.DeletePosition("alice"); err != nil {
		t.Fatal(err)
	}
	// Overlay delete shadows the committed record.
	if _, ok, _ := m.Position("alice"); ok {
		t.Fatal("staged delete should hide the record")
	}
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Position("alice"); ok {
		t.Fatal("record should be gone after committed delete")
	}
}

func TestPutPositionSanitizes(t *testing.T) {
	m := newTestManager(t)
	err := m.PutPosition("alice", &staking.Position{Quantity: big.NewInt(-1)})
	if err == nil {
		t.Fatal("negative quantity must be rejected")
	}
}

func TestRewardRatioRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if err := m.PutRewardRatio(7, 2500); err != nil {
		t.Fatal(err)
	}
	ratio, ok, err := m.RewardRatio(7)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if ratio != 2500 {
		t.Fatalf("ratio = %d", ratio)
	}
	if _, ok, _ := m.RewardRatio(8); ok {
		t.Fatal("day 8 should be absent")
	}
}

func TestPendingRefundsScan(t *testing.T) {
	m := newTestManager(t)
	owners := []string{"alice", "bob", "carol"}
	for i, owner := range owners {
		req := &staking.RefundRequest{Quantity: big.NewInt(int64(i + 1)), RequestAt: int64(1000 + i)}
		if err := m.PutRefundRequest(owner, req); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}

	var seen []string
	err := m.PendingRefunds(func(owner string, req *staking.RefundRequest) bool {
		seen = append(seen, owner)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 {
		t.Fatalf("seen = %v", seen)
	}
	for i, owner := range owners {
		if seen[i] != owner {
			t.Fatalf("scan order = %v, want %v", seen, owners)
		}
	}
}

func TestPendingRefundsSurfacesCorruptRecord(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	if err := m.PutRefundRequest("alice", &staking.RefundRequest{Quantity: big.NewInt(1), RequestAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	// A refund record that is not valid JSON must fail the scan loudly, not
	// vanish from timer re-arming.
	if err := db.Put([]byte("staking/refunds/mallory"), []byte("{corrupt")); err != nil {
		t.Fatal(err)
	}

	err := m.PendingRefunds(func(owner string, req *staking.RefundRequest) bool { return true })
	if err == nil {
		t.Fatal("corrupt refund record should abort the scan with an error")
	}
	if !strings.Contains(err.Error(), "mallory") {
		t.Fatalf("error should name the corrupt owner: %v", err)
	}
}

func TestGenesisFlag(t *testing.T) {
	m := newTestManager(t)
	applied, err := m.GenesisApplied()
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("fresh database should not be marked")
	}
	if err := m.MarkGenesisApplied(); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	applied, err = m.GenesisApplied()
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("flag should persist")
	}
}

func TestBankAccountRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if err := m.PutBankAccount("alice", &token.Account{Balance: big.NewInt(42)}); err != nil {
		t.Fatal(err)
	}
	acct, ok, err := m.BankAccount("alice")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if acct.Balance.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("balance = %s", acct.Balance)
	}
}
