package staking

import (
	"fmt"
	"math/big"
	"time"

	"hvstaking/token"
)

const (
	// RatioScale is the fixed-point denominator of the daily reward ratio:
	// ratio/RatioScale is the fractional daily reward rate.
	RatioScale = 10000
	// RefundDelay is the mandatory wait between an unstake request and its
	// payout. Every additional unstake restarts the clock.
	RefundDelay = 3 * 24 * time.Hour
	// MaxAccrualDays bounds how many skipped days one accrual pass walks.
	// This is a cost cap, not a business rule: the cursor simply advances
	// at most this far per invocation.
	MaxAccrualDays = 100
	// MaxNoteLength bounds operator-supplied profile notes.
	MaxNoteLength = 256
)

// DefaultDailyRewardBudget is the fixed aggregate emission per accrual day:
// 30136.0000 HVT, divided pro-rata across all currently staked tokens.
func DefaultDailyRewardBudget() *big.Int {
	return token.NewCoinFromUnits(30136).Amount
}

// Params carries the deployment-specific knobs of the engine. The excluded
// set replaces the source system's hardcoded privileged-account list: those
// accounts' transfers are never treated as stakes.
type Params struct {
	// TokenCode is the identity of the token contract whose transfer
	// notifications fund the ledger.
	TokenCode string
	// SelfAccount is the ledger's own custody account.
	SelfAccount string
	// DailyRewardBudget is the emission divided across stakers per day.
	DailyRewardBudget *big.Int
	// RefundDelay overrides the default unbonding delay when positive.
	RefundDelay time.Duration
	// ExcludedAccounts are ineligible to stake; their deposits are ignored.
	ExcludedAccounts []string

	excluded map[string]struct{}
}

// DefaultParams returns production defaults with no exclusions configured.
func DefaultParams(tokenCode, selfAccount string) Params {
	return Params{
		TokenCode:         tokenCode,
		SelfAccount:       selfAccount,
		DailyRewardBudget: DefaultDailyRewardBudget(),
		RefundDelay:       RefundDelay,
	}
}

// Validate ensures the parameters fall within safe operating ranges.
func (p *Params) Validate() error {
	if NormalizeAccountName(p.TokenCode) == "" {
		return fmt.Errorf("staking: token code required")
	}
	if NormalizeAccountName(p.SelfAccount) == "" {
		return fmt.Errorf("staking: self account required")
	}
	if p.DailyRewardBudget == nil || p.DailyRewardBudget.Sign() <= 0 {
		return fmt.Errorf("staking: daily reward budget must be positive")
	}
	if p.RefundDelay <= 0 {
		return fmt.Errorf("staking: refund delay must be positive")
	}
	return nil
}

// IsExcluded reports whether the named account is barred from staking.
func (p *Params) IsExcluded(name string) bool {
	if p == nil {
		return false
	}
	if p.excluded == nil {
		p.excluded = make(map[string]struct{}, len(p.ExcludedAccounts))
		for _, acct := range p.ExcludedAccounts {
			normalized := NormalizeAccountName(acct)
			if normalized != "" {
				p.excluded[normalized] = struct{}{}
			}
		}
	}
	_, ok := p.excluded[NormalizeAccountName(name)]
	return ok
}

func (p *Params) refundDelaySeconds() int64 {
	delay := p.RefundDelay
	if delay <= 0 {
		delay = RefundDelay
	}
	return int64(delay / time.Second)
}
