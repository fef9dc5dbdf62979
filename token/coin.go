package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Symbol is the only denomination the staking ledger tracks.
	Symbol = "HVT"
	// Decimals is the fixed precision of the denomination. Raw amounts are
	// integers scaled by 10^Decimals.
	Decimals = 4
)

var (
	ErrInvalidCoin    = errors.New("token: invalid coin")
	ErrUnknownSymbol  = errors.New("token: unknown symbol")
	ErrPrecisionRange = errors.New("token: too many decimal places")

	scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
)

// Coin is a raw integer amount paired with its denomination symbol. The raw
// amount carries the fixed precision, so 1.0000 HVT is Amount == 10000.
type Coin struct {
	Amount *big.Int
	Symbol string
}

// NewCoin wraps a raw amount in the ledger denomination.
func NewCoin(amount *big.Int) Coin {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return Coin{Amount: new(big.Int).Set(amount), Symbol: Symbol}
}

// NewCoinFromUnits builds a coin from whole tokens, e.g. NewCoinFromUnits(50000)
// is 50000.0000 HVT.
func NewCoinFromUnits(units int64) Coin {
	raw := new(big.Int).Mul(big.NewInt(units), scale)
	return Coin{Amount: raw, Symbol: Symbol}
}

// ParseCoin parses the canonical asset string form "1234.5678 HVT". The
// fractional part may be shorter than the full precision but never longer.
func ParseCoin(s string) (Coin, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}
	symbol := strings.ToUpper(fields[1])
	if symbol != Symbol {
		return Coin{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, fields[1])
	}
	numeric := fields[0]
	negative := strings.HasPrefix(numeric, "-")
	if negative {
		numeric = numeric[1:]
	}
	whole, frac := numeric, ""
	if idx := strings.IndexByte(numeric, '.'); idx >= 0 {
		whole, frac = numeric[:idx], numeric[idx+1:]
	}
	if whole == "" && frac == "" {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}
	if len(frac) > Decimals {
		return Coin{}, fmt.Errorf("%w: %q", ErrPrecisionRange, s)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", Decimals-len(frac))
	raw, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}
	if negative {
		raw.Neg(raw)
	}
	return Coin{Amount: raw, Symbol: symbol}, nil
}

// String renders the canonical asset form with the full fixed precision.
func (c Coin) String() string {
	amount := c.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	sign := ""
	abs := new(big.Int).Abs(amount)
	if amount.Sign() < 0 {
		sign = "-"
	}
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))
	symbol := c.Symbol
	if symbol == "" {
		symbol = Symbol
	}
	return fmt.Sprintf("%s%s.%0*d %s", sign, whole.String(), Decimals, frac, symbol)
}

// Validate reports whether the coin is well formed and denominated in the
// ledger symbol.
func (c Coin) Validate() error {
	if c.Amount == nil {
		return ErrInvalidCoin
	}
	if strings.ToUpper(strings.TrimSpace(c.Symbol)) != Symbol {
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, c.Symbol)
	}
	return nil
}

// IsPositive reports whether the coin holds a strictly positive amount.
func (c Coin) IsPositive() bool {
	return c.Amount != nil && c.Amount.Sign() > 0
}

// Clone returns a deep copy so callers can mutate safely.
func (c Coin) Clone() Coin {
	clone := Coin{Symbol: c.Symbol}
	if c.Amount != nil {
		clone.Amount = new(big.Int).Set(c.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return clone
}
