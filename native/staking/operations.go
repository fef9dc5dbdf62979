package staking

import (
	"fmt"
	"math/big"

	"hvstaking/token"
)

// HandleIncomingTransfer processes a transfer notification delivered by the
// token contract (PowerUp). Validation failures abort the enclosing transfer;
// transfers that merely fail the business gate (sent by the ledger itself,
// not addressed to it, or sent by an excluded account) are ignored without
// error so ordinary token movement keeps working.
func (e *Engine) HandleIncomingTransfer(tokenCode, from, to string, quantity token.Coin, memo string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	from = NormalizeAccountName(from)
	to = NormalizeAccountName(to)
	if err := e.requireNotFrozen(); err != nil {
		return err
	}
	if err := e.requireAccount(from); err != nil {
		return err
	}
	if err := e.validateQuantity(quantity); err != nil {
		return err
	}
	if NormalizeAccountName(tokenCode) != NormalizeAccountName(e.params.TokenCode) {
		return fmt.Errorf("%w: %s", ErrUnknownTokenContract, tokenCode)
	}
	self := NormalizeAccountName(e.params.SelfAccount)
	if from == self || to != self || e.params.IsExcluded(from) {
		return nil
	}
	if err := e.addResources(from, quantity.Amount); err != nil {
		return err
	}
	pos, _, err := e.state.Position(from)
	if err != nil {
		return err
	}
	e.emit(NewPoweredUpEvent(from, quantity.Amount, pos.Normalize().Quantity))
	return nil
}

// PowerDown unbonds quantity from the owner's stake and merges it into the
// single pending refund, restarting the release clock. Only one delayed
// refund invocation is ever outstanding per owner: scheduling replaces any
// prior timer.
func (e *Engine) PowerDown(owner string, quantity token.Coin) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner = NormalizeAccountName(owner)
	if err := e.requireNotFrozen(); err != nil {
		return err
	}
	if err := e.requireAccount(owner); err != nil {
		return err
	}
	if err := e.validateQuantity(quantity); err != nil {
		return err
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireAuthorized(owner); err != nil {
		return err
	}
	if err := e.subResources(owner, quantity.Amount); err != nil {
		return err
	}
	now := e.now()
	req, ok, err := e.state.RefundRequest(owner)
	if err != nil {
		return err
	}
	if ok {
		req = req.Normalize()
		req.Quantity = new(big.Int).Add(req.Quantity, quantity.Amount)
		req.RequestAt = now
	} else {
		req = &RefundRequest{Quantity: new(big.Int).Set(quantity.Amount), RequestAt: now}
	}
	if err := e.state.PutRefundRequest(owner, req); err != nil {
		return err
	}
	delay := e.params.RefundDelay
	if delay <= 0 {
		delay = RefundDelay
	}
	if e.scheduler != nil {
		e.scheduler.Schedule(owner, delay)
	}
	e.emit(NewPoweredDownEvent(owner, quantity.Amount, req.Quantity, req.RequestAt))
	e.emit(NewRefundScheduledEvent(owner, req.DueAt(e.params.refundDelaySeconds())))
	return nil
}

// Refund pays out the merged pending withdrawal once the mandatory delay has
// elapsed. The check is enforced here, not by the scheduler, so any caller
// may attempt it early and be rejected. Freeze does not block refunds: the
// obligation was committed when the stake was unbonded.
func (e *Engine) Refund(owner string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner = NormalizeAccountName(owner)
	if err := e.requireAccount(owner); err != nil {
		return err
	}
	req, ok, err := e.state.RefundRequest(owner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingRefund, owner)
	}
	req = req.Normalize()
	if e.now() < req.DueAt(e.params.refundDelaySeconds()) {
		return ErrRefundNotDue
	}
	if err := e.sendTokens(owner, req.Quantity, refundMemo); err != nil {
		return err
	}
	if err := e.state.DeleteRefundRequest(owner); err != nil {
		return err
	}
	if e.scheduler != nil {
		e.scheduler.Cancel(owner)
	}
	e.emit(NewRefundedEvent(owner, req.Quantity))
	return nil
}

// Claim pays out all accrued reward and resets the unclaimed balance. Claims
// are deliberately admin-gated through the profile flag rather than
// self-service.
func (e *Engine) Claim(owner string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner = NormalizeAccountName(owner)
	if err := e.requireNotFrozen(); err != nil {
		return err
	}
	if err := e.requireAccount(owner); err != nil {
		return err
	}
	profile, ok, err := e.state.Profile(owner)
	if err != nil {
		return err
	}
	if !ok || !profile.Active {
		return ErrClaimNotEligible
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.RequireAuthorized(owner); err != nil {
		return err
	}
	st, err := e.settings()
	if err != nil {
		return err
	}
	pos, ok, err := e.state.Position(owner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoStakeFound, owner)
	}
	pos = pos.Normalize()
	reward, _, err := e.accrue(pos, st.ActiveDay)
	if err != nil {
		return err
	}
	total := new(big.Int).Add(pos.UnclaimedTokens, reward)
	if total.Sign() <= 0 {
		return ErrNothingToClaim
	}
	if err := e.sendTokens(owner, total, claimMemo); err != nil {
		return err
	}
	pos.UnclaimedTokens = big.NewInt(0)
	pos.LastClaimTime = e.now()
	pos.LastCalcDay = st.ActiveDay
	if err := e.state.PutPosition(owner, pos); err != nil {
		return err
	}
	e.emit(NewRewardsClaimedEvent(owner, total, st.ActiveDay))
	return nil
}

// CheckReward reports the total reward a claim would pay right now: the
// already-folded unclaimed balance plus whatever the accrual walk would add.
// It is a true read: nothing is persisted, and the accrual cursor stays put.
func (e *Engine) CheckReward(owner string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	owner = NormalizeAccountName(owner)
	st, err := e.settings()
	if err != nil {
		return nil, err
	}
	pos, ok, err := e.state.Position(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	pos = pos.Normalize()
	reward, _, err := e.accrue(pos, st.ActiveDay)
	if err != nil {
		return nil, err
	}
	return reward.Add(reward, pos.UnclaimedTokens), nil
}

// PositionOf returns a copy of the owner's ledger entry.
func (e *Engine) PositionOf(owner string) (*Position, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	pos, ok, err := e.state.Position(NormalizeAccountName(owner))
	if err != nil || !ok {
		return nil, false, err
	}
	return pos.Clone().Normalize(), true, nil
}

// PendingRefundOf returns a copy of the owner's pending withdrawal, if any.
func (e *Engine) PendingRefundOf(owner string) (*RefundRequest, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	req, ok, err := e.state.RefundRequest(NormalizeAccountName(owner))
	if err != nil || !ok {
		return nil, false, err
	}
	return req.Clone().Normalize(), true, nil
}

// SettingsView returns a copy of the global ledger settings.
func (e *Engine) SettingsView() (*Settings, error) {
	st, err := e.settings()
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// RewardRatioOf returns the ratio recorded for the given day, zero if absent.
func (e *Engine) RewardRatioOf(day uint64) (int32, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	ratio, ok, err := e.state.RewardRatio(day)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return ratio, nil
}
