package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrBankState           = errors.New("token: bank state not configured")
	ErrAccountUnknown      = errors.New("token: account does not exist")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrNonPositiveTransfer = errors.New("token: transfer amount must be positive")
)

// Account holds the custody balance for one named account.
type Account struct {
	Balance *big.Int `json:"balance"`
}

func ensureAccount(acct *Account) *Account {
	if acct == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acct.Balance == nil {
		acct.Balance = big.NewInt(0)
	}
	return acct
}

// BankState is the storage surface the bank needs from the state manager.
type BankState interface {
	BankAccount(name string) (*Account, bool, error)
	PutBankAccount(name string, acct *Account) error
}

// TransferListener receives incoming-transfer notifications after balances
// have moved. Returning an error aborts the whole transfer, mirroring how the
// token contract's notify hook can reject a deposit.
type TransferListener interface {
	OnTransfer(from, to string, quantity Coin, memo string) error
}

// Bank is the HVT custody ledger. It models the external token contract at
// its interface: balance moves plus notification delivery. Because it writes
// through the same state overlay as the staking ledger, a transfer and the
// staking mutation it triggers commit or abort together.
type Bank struct {
	code      string
	state     BankState
	listeners []TransferListener
}

// NewBank creates a bank identified by the token contract code (the
// notification origin the staking engine validates against).
func NewBank(code string, state BankState) *Bank {
	return &Bank{code: strings.TrimSpace(code), state: state}
}

// Code returns the token contract identity transfers originate from.
func (b *Bank) Code() string { return b.code }

// Subscribe registers a listener for transfer notifications.
func (b *Bank) Subscribe(l TransferListener) {
	if l == nil {
		return
	}
	b.listeners = append(b.listeners, l)
}

// AccountExists reports whether the named account holds a balance record.
func (b *Bank) AccountExists(name string) bool {
	if b == nil || b.state == nil {
		return false
	}
	_, ok, err := b.state.BankAccount(strings.TrimSpace(name))
	return err == nil && ok
}

// BalanceOf returns the current balance for the named account, zero if the
// account is unknown.
func (b *Bank) BalanceOf(name string) (*big.Int, error) {
	if b == nil || b.state == nil {
		return nil, ErrBankState
	}
	acct, ok, err := b.state.BankAccount(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return ensureAccount(acct).Balance, nil
}

// Mint credits newly issued tokens to an account, creating it if necessary.
// Used for genesis seeding; it delivers no notifications.
func (b *Bank) Mint(name string, quantity Coin) error {
	if b == nil || b.state == nil {
		return ErrBankState
	}
	if err := quantity.Validate(); err != nil {
		return err
	}
	if quantity.Amount.Sign() < 0 {
		return ErrNonPositiveTransfer
	}
	name = strings.TrimSpace(name)
	acct, _, err := b.state.BankAccount(name)
	if err != nil {
		return err
	}
	acct = ensureAccount(acct)
	acct.Balance = new(big.Int).Add(acct.Balance, quantity.Amount)
	return b.state.PutBankAccount(name, acct)
}

// Transfer moves tokens between accounts and then notifies subscribers. The
// sender must exist and hold sufficient balance; the recipient account is
// created on first receipt.
func (b *Bank) Transfer(from, to string, quantity Coin, memo string) error {
	if b == nil || b.state == nil {
		return ErrBankState
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if err := quantity.Validate(); err != nil {
		return err
	}
	if !quantity.IsPositive() {
		return ErrNonPositiveTransfer
	}
	if from == "" || to == "" || from == to {
		return fmt.Errorf("token: invalid transfer %q -> %q", from, to)
	}
	fromAcct, ok, err := b.state.BankAccount(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountUnknown, from)
	}
	fromAcct = ensureAccount(fromAcct)
	if fromAcct.Balance.Cmp(quantity.Amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, from)
	}
	toAcct, _, err := b.state.BankAccount(to)
	if err != nil {
		return err
	}
	toAcct = ensureAccount(toAcct)
	fromAcct.Balance = new(big.Int).Sub(fromAcct.Balance, quantity.Amount)
	toAcct.Balance = new(big.Int).Add(toAcct.Balance, quantity.Amount)
	if err := b.state.PutBankAccount(from, fromAcct); err != nil {
		return err
	}
	if err := b.state.PutBankAccount(to, toAcct); err != nil {
		return err
	}
	for _, l := range b.listeners {
		if err := l.OnTransfer(from, to, quantity.Clone(), memo); err != nil {
			return err
		}
	}
	return nil
}
