package staking

import (
	"fmt"
	"math/big"
	"strings"
)

// Settings is the singleton ledger state: the aggregate staked amount, the
// externally advanced accrual day counter and the freeze flag. It is created
// lazily with documented defaults on first read and never deleted.
type Settings struct {
	TotalStaked *big.Int `json:"totalStaked"`
	ActiveDay   uint64   `json:"activeDay"`
	Frozen      bool     `json:"frozen"`
}

// DefaultSettings returns the lazily-constructed initial state.
func DefaultSettings() *Settings {
	return &Settings{TotalStaked: big.NewInt(0), ActiveDay: 1, Frozen: false}
}

// Clone returns a deep copy so callers can mutate safely.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return DefaultSettings()
	}
	clone := &Settings{ActiveDay: s.ActiveDay, Frozen: s.Frozen}
	clone.TotalStaked = copyBigInt(s.TotalStaked)
	return clone
}

// Normalize fills nil amounts so arithmetic never trips over a zero value.
func (s *Settings) Normalize() *Settings {
	if s == nil {
		return DefaultSettings()
	}
	if s.TotalStaked == nil {
		s.TotalStaked = big.NewInt(0)
	}
	return s
}

// Position is the per-owner resource ledger entry. Quantity is the bonded
// stake, UnclaimedTokens the reward folded in but not yet paid out, and
// LastCalcDay the accrual cursor: rewards for days before it have already
// been accounted.
type Position struct {
	Quantity        *big.Int `json:"quantity"`
	UnclaimedTokens *big.Int `json:"unclaimedTokens"`
	LastClaimTime   int64    `json:"lastClaimTime"`
	LastCalcDay     uint64   `json:"lastCalcDay"`
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{LastClaimTime: p.LastClaimTime, LastCalcDay: p.LastCalcDay}
	clone.Quantity = copyBigInt(p.Quantity)
	clone.UnclaimedTokens = copyBigInt(p.UnclaimedTokens)
	return clone
}

// Normalize fills nil amounts.
func (p *Position) Normalize() *Position {
	if p == nil {
		return nil
	}
	if p.Quantity == nil {
		p.Quantity = big.NewInt(0)
	}
	if p.UnclaimedTokens == nil {
		p.UnclaimedTokens = big.NewInt(0)
	}
	return p
}

// SanitizePosition validates the invariants every stored position must hold.
func SanitizePosition(p *Position) (*Position, error) {
	if p == nil {
		return nil, fmt.Errorf("staking: nil position")
	}
	clone := p.Clone().Normalize()
	if clone.Quantity.Sign() < 0 {
		return nil, fmt.Errorf("staking: position quantity must be non-negative")
	}
	if clone.UnclaimedTokens.Sign() < 0 {
		return nil, fmt.Errorf("staking: unclaimed tokens must be non-negative")
	}
	return clone, nil
}

// RefundRequest is the single pending delayed withdrawal for an owner.
// Repeated unstakes merge into it and reset RequestAt, so the release clock
// restarts on every additional unstake.
type RefundRequest struct {
	Quantity  *big.Int `json:"quantity"`
	RequestAt int64    `json:"requestAt"`
}

// Clone returns a deep copy of the refund request.
func (r *RefundRequest) Clone() *RefundRequest {
	if r == nil {
		return nil
	}
	clone := &RefundRequest{RequestAt: r.RequestAt}
	clone.Quantity = copyBigInt(r.Quantity)
	return clone
}

// Normalize fills nil amounts.
func (r *RefundRequest) Normalize() *RefundRequest {
	if r == nil {
		return nil
	}
	if r.Quantity == nil {
		r.Quantity = big.NewInt(0)
	}
	return r
}

// DueAt returns the first instant the refund may execute.
func (r *RefundRequest) DueAt(delaySeconds int64) int64 {
	if r == nil {
		return 0
	}
	return r.RequestAt + delaySeconds
}

// Profile gates reward claims. Claims require an admin opt-in, not
// self-service: only the operator flips Active. Note is an operator-facing
// annotation.
type Profile struct {
	Owner  string `json:"owner"`
	Active bool   `json:"active"`
	Note   string `json:"note,omitempty"`
}

// Clone returns a copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// NormalizeAccountName canonicalises an account identifier.
func NormalizeAccountName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
