package staking

import (
	"math"
	"math/big"
)

// SetDay moves the active accrual day. Rewinding is permitted and not
// validated: the counter is an operator responsibility, and the accrual walk
// itself refuses to move a position's cursor backwards.
func (e *Engine) SetDay(day uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireOperator(); err != nil {
		return err
	}
	st, err := e.settings()
	if err != nil {
		return err
	}
	st.ActiveDay = day
	if err := e.state.PutSettings(st); err != nil {
		return err
	}
	e.emit(NewDaySetEvent(day))
	return nil
}

// CalcRatio recomputes the reward ratio for the given day by dividing the
// fixed daily emission budget pro-rata across everything currently staked:
// ratio = floor(budget * RatioScale / totalStaked). With nothing staked the
// division has no meaningful result and the operation fails.
func (e *Engine) CalcRatio(day uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireNotFrozen(); err != nil {
		return err
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireOperator(); err != nil {
		return err
	}
	st, err := e.settings()
	if err != nil {
		return err
	}
	if st.TotalStaked.Sign() == 0 {
		return ErrZeroTotalStake
	}
	budget := e.params.DailyRewardBudget
	if budget == nil {
		budget = DefaultDailyRewardBudget()
	}
	scaled := new(big.Int).Mul(budget, big.NewInt(RatioScale))
	scaled.Quo(scaled, st.TotalStaked)
	// A near-empty ledger can push the pro-rata ratio past the stored
	// width; cap it rather than wrap.
	ratio := int32(math.MaxInt32)
	if scaled.IsInt64() && scaled.Int64() <= math.MaxInt32 {
		ratio = int32(scaled.Int64())
	}
	if err := e.state.PutRewardRatio(day, ratio); err != nil {
		return err
	}
	e.emit(NewRatioSetEvent(day, ratio, st.TotalStaked))
	return nil
}

// Freeze blocks PowerUp, PowerDown, Claim and CalcRatio until unfrozen.
// Refund execution and the other admin operations keep working.
func (e *Engine) Freeze() error {
	return e.setFrozen(true)
}

// Unfreeze lifts the freeze flag.
func (e *Engine) Unfreeze() error {
	return e.setFrozen(false)
}

func (e *Engine) setFrozen(frozen bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireOperator(); err != nil {
		return err
	}
	st, err := e.settings()
	if err != nil {
		return err
	}
	st.Frozen = frozen
	if err := e.state.PutSettings(st); err != nil {
		return err
	}
	e.emit(NewFrozenEvent(frozen))
	return nil
}

// SetProfile upserts the claim-eligibility flag for an owner. The note is an
// operator-facing annotation and only its length is enforced.
func (e *Engine) SetProfile(owner string, active bool, note string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner = NormalizeAccountName(owner)
	if err := e.requireAccount(owner); err != nil {
		return err
	}
	if len(note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireOperator(); err != nil {
		return err
	}
	profile, ok, err := e.state.Profile(owner)
	if err != nil {
		return err
	}
	if !ok {
		profile = &Profile{Owner: owner}
	}
	profile.Active = active
	profile.Note = note
	if err := e.state.PutProfile(owner, profile); err != nil {
		return err
	}
	e.emit(NewProfileUpdatedEvent(owner, active))
	return nil
}

// ProfileOf returns the claim-eligibility record for an owner.
func (e *Engine) ProfileOf(owner string) (*Profile, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	profile, ok, err := e.state.Profile(NormalizeAccountName(owner))
	if err != nil || !ok {
		return nil, false, err
	}
	return profile.Clone(), true, nil
}
