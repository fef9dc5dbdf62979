package staking

import (
	"math/big"
	"strconv"

	"hvstaking/core/events"
)

const (
	EventTypePoweredUp       = "staking.powered_up"
	EventTypePoweredDown     = "staking.powered_down"
	EventTypeRefundScheduled = "staking.refund_scheduled"
	EventTypeRefunded        = "staking.refunded"
	EventTypeRewardsClaimed  = "staking.rewards_claimed"
	EventTypeDaySet          = "staking.day_set"
	EventTypeRatioSet        = "staking.ratio_set"
	EventTypeFrozen          = "staking.frozen"
	EventTypeUnfrozen        = "staking.unfrozen"
	EventTypeProfileUpdated  = "staking.profile_updated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewPoweredUpEvent reports a stake deposit folded into the ledger.
func NewPoweredUpEvent(owner string, amount, quantity *big.Int) *events.Event {
	return &events.Event{Type: EventTypePoweredUp, Attributes: map[string]string{
		"owner":    owner,
		"amount":   formatAmount(amount),
		"quantity": formatAmount(quantity),
	}}
}

// NewPoweredDownEvent reports an unstake merged into the pending refund.
func NewPoweredDownEvent(owner string, amount, pending *big.Int, requestAt int64) *events.Event {
	return &events.Event{Type: EventTypePoweredDown, Attributes: map[string]string{
		"owner":     owner,
		"amount":    formatAmount(amount),
		"pending":   formatAmount(pending),
		"requestAt": strconv.FormatInt(requestAt, 10),
	}}
}

// NewRefundScheduledEvent reports the (re)armed delayed payout.
func NewRefundScheduledEvent(owner string, dueAt int64) *events.Event {
	return &events.Event{Type: EventTypeRefundScheduled, Attributes: map[string]string{
		"owner": owner,
		"dueAt": strconv.FormatInt(dueAt, 10),
	}}
}

// NewRefundedEvent reports a completed delayed withdrawal.
func NewRefundedEvent(owner string, amount *big.Int) *events.Event {
	return &events.Event{Type: EventTypeRefunded, Attributes: map[string]string{
		"owner":  owner,
		"amount": formatAmount(amount),
	}}
}

// NewRewardsClaimedEvent reports a reward payout.
func NewRewardsClaimedEvent(owner string, amount *big.Int, day uint64) *events.Event {
	return &events.Event{Type: EventTypeRewardsClaimed, Attributes: map[string]string{
		"owner":  owner,
		"amount": formatAmount(amount),
		"day":    strconv.FormatUint(day, 10),
	}}
}

// NewDaySetEvent reports an operator change of the active day.
func NewDaySetEvent(day uint64) *events.Event {
	return &events.Event{Type: EventTypeDaySet, Attributes: map[string]string{
		"day": strconv.FormatUint(day, 10),
	}}
}

// NewRatioSetEvent reports a recomputed daily reward ratio.
func NewRatioSetEvent(day uint64, ratio int32, totalStaked *big.Int) *events.Event {
	return &events.Event{Type: EventTypeRatioSet, Attributes: map[string]string{
		"day":         strconv.FormatUint(day, 10),
		"ratio":       strconv.FormatInt(int64(ratio), 10),
		"totalStaked": formatAmount(totalStaked),
	}}
}

// NewFrozenEvent reports the ledger freeze toggle.
func NewFrozenEvent(frozen bool) *events.Event {
	eventType := EventTypeFrozen
	if !frozen {
		eventType = EventTypeUnfrozen
	}
	return &events.Event{Type: eventType, Attributes: map[string]string{}}
}

// NewProfileUpdatedEvent reports an operator change to claim eligibility.
func NewProfileUpdatedEvent(owner string, active bool) *events.Event {
	return &events.Event{Type: EventTypeProfileUpdated, Attributes: map[string]string{
		"owner":  owner,
		"active": strconv.FormatBool(active),
	}}
}
