package staking

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestSetDayRequiresOperator(t *testing.T) {
	h := newHarness(t)
	h.engine.SetAuthorizer(denyAll{})
	if err := h.engine.SetDay(5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	h.engine.SetAuthorizer(allowAll{})
	if err := h.engine.SetDay(5); err != nil {
		t.Fatal(err)
	}
	st, err := h.engine.SettingsView()
	if err != nil {
		t.Fatal(err)
	}
	if st.ActiveDay != 5 {
		t.Fatalf("activeDay = %d, want 5", st.ActiveDay)
	}
}

func TestCalcRatioProRata(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, "alice", 60272) // exactly twice the daily budget

	if err := h.engine.CalcRatio(7); err != nil {
		t.Fatal(err)
	}
	ratio, err := h.engine.RewardRatioOf(7)
	if err != nil {
		t.Fatal(err)
	}
	// budget * 10000 / totalStaked = 30136 * 10000 / 60272 = 5000
	if ratio != 5000 {
		t.Fatalf("ratio = %d, want 5000", ratio)
	}
}

func TestCalcRatioTruncates(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, "alice", 90000)

	if err := h.engine.CalcRatio(1); err != nil {
		t.Fatal(err)
	}
	ratio, err := h.engine.RewardRatioOf(1)
	if err != nil {
		t.Fatal(err)
	}
	// floor(30136 * 10000 / 90000) = 3348
	if ratio != 3348 {
		t.Fatalf("ratio = %d, want 3348", ratio)
	}
}

func TestCalcRatioZeroStake(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.CalcRatio(1); !errors.Is(err, ErrZeroTotalStake) {
		t.Fatalf("expected ErrZeroTotalStake, got %v", err)
	}
}

func TestCalcRatioCapsAtMaxInt32(t *testing.T) {
	h := newHarness(t)
	// One raw unit staked pushes the pro-rata ratio far past int32 range.
	h.state.settings = &Settings{TotalStaked: big.NewInt(1), ActiveDay: 1}

	if err := h.engine.CalcRatio(1); err != nil {
		t.Fatal(err)
	}
	ratio, err := h.engine.RewardRatioOf(1)
	if err != nil {
		t.Fatal(err)
	}
	if ratio != math.MaxInt32 {
		t.Fatalf("ratio = %d, want %d", ratio, int32(math.MaxInt32))
	}
}

func TestCalcRatioBlockedWhileFrozen(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, "alice", 100)
	if err := h.engine.Freeze(); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.CalcRatio(1); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestCalcRatioOverwrite(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, "alice", 60272)
	if err := h.engine.CalcRatio(3); err != nil {
		t.Fatal(err)
	}
	h.deposit(t, "bob", 60272)
	if err := h.engine.CalcRatio(3); err != nil {
		t.Fatal(err)
	}
	ratio, err := h.engine.RewardRatioOf(3)
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 2500 {
		t.Fatalf("ratio = %d, want 2500 after recompute", ratio)
	}
}

func TestSetProfile(t *testing.T) {
	h := newHarness(t)
	h.addAccount("alice")

	if err := h.engine.SetProfile("alice", true, "early supporter"); err != nil {
		t.Fatal(err)
	}
	profile, ok, err := h.engine.ProfileOf("alice")
	if err != nil || !ok {
		t.Fatalf("expected profile, ok=%v err=%v", ok, err)
	}
	if !profile.Active || profile.Note != "early supporter" {
		t.Fatalf("profile = %+v", profile)
	}

	if err := h.engine.SetProfile("alice", false, ""); err != nil {
		t.Fatal(err)
	}
	profile, _, err = h.engine.ProfileOf("alice")
	if err != nil {
		t.Fatal(err)
	}
	if profile.Active {
		t.Fatal("profile should be inactive after update")
	}
}

func TestSetProfileValidation(t *testing.T) {
	h := newHarness(t)
	h.addAccount("alice")

	long := make([]byte, MaxNoteLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := h.engine.SetProfile("alice", true, string(long)); !errors.Is(err, ErrNoteTooLong) {
		t.Fatalf("expected ErrNoteTooLong, got %v", err)
	}
	if err := h.engine.SetProfile("ghost", true, ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	h.engine.SetAuthorizer(denyAll{})
	if err := h.engine.SetProfile("alice", true, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFreezeEvents(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Freeze(); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Unfreeze(); err != nil {
		t.Fatal(err)
	}
	if len(h.emitter.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(h.emitter.Events))
	}
	if h.emitter.Events[0].Type != EventTypeFrozen || h.emitter.Events[1].Type != EventTypeUnfrozen {
		t.Fatalf("events = %+v", h.emitter.Events)
	}
}
