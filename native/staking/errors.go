package staking

import "errors"

var (
	// ErrInvalidAmount marks a nil or malformed quantity.
	ErrInvalidAmount = errors.New("staking: invalid quantity")
	// ErrNonPositiveAmount marks a zero or negative stake/unstake quantity.
	ErrNonPositiveAmount = errors.New("staking: must stake positive quantity")
	// ErrSymbolMismatch marks a quantity denominated in anything but HVT at
	// the ledger precision.
	ErrSymbolMismatch = errors.New("staking: symbol precision mismatch")
	// ErrUnknownTokenContract marks a transfer notification that did not
	// originate from the configured token contract.
	ErrUnknownTokenContract = errors.New("staking: invalid token contract")
	// ErrAccountNotFound marks an owner account unknown to the registry.
	ErrAccountNotFound = errors.New("staking: account does not exist")
	// ErrUnauthorized marks a caller without the required authority.
	ErrUnauthorized = errors.New("staking: unauthorized")
	// ErrFrozen blocks user operations while the ledger is frozen.
	ErrFrozen = errors.New("staking: staking is not available")
	// ErrInsufficientStake marks an unstake exceeding the bonded quantity.
	ErrInsufficientStake = errors.New("staking: overdrawn stake")
	// ErrNoStakeFound marks a missing resource ledger entry.
	ErrNoStakeFound = errors.New("staking: no stake found")
	// ErrNoPendingRefund marks a refund execution without a pending request.
	ErrNoPendingRefund = errors.New("staking: no pending refund")
	// ErrRefundNotDue marks a refund executed before the mandatory delay.
	ErrRefundNotDue = errors.New("staking: refund is not available yet")
	// ErrClaimNotEligible marks a claim without the admin profile opt-in.
	ErrClaimNotEligible = errors.New("staking: profile not eligible to claim")
	// ErrNothingToClaim marks a claim with zero accrued reward.
	ErrNothingToClaim = errors.New("staking: reward already claimed")
	// ErrZeroTotalStake marks a ratio recompute against an empty ledger,
	// which would divide by zero.
	ErrZeroTotalStake = errors.New("staking: total stake is zero")
	// ErrNoteTooLong marks a profile note above the 256 byte bound.
	ErrNoteTooLong = errors.New("staking: note exceeds 256 bytes")
)
