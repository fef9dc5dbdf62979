package staking

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"hvstaking/core/events"
	"hvstaking/token"
)

var errNilState = errors.New("staking engine: state not configured")

const (
	refundMemo = "refund hvt"
	claimMemo  = "staking reward"
)

// State is the storage surface the engine needs: the five keyed stores of the
// ledger. Implementations must be transactional at the operation level; the
// engine itself never commits.
type State interface {
	Settings() (*Settings, error)
	PutSettings(*Settings) error
	Position(owner string) (*Position, bool, error)
	PutPosition(owner string, pos *Position) error
	DeletePosition(owner string) error
	RewardRatio(day uint64) (int32, bool, error)
	PutRewardRatio(day uint64, ratio int32) error
	RefundRequest(owner string) (*RefundRequest, bool, error)
	PutRefundRequest(owner string, req *RefundRequest) error
	DeleteRefundRequest(owner string) error
	Profile(owner string) (*Profile, bool, error)
	PutProfile(owner string, profile *Profile) error
}

// TokenSender moves tokens out of the ledger's custody.
type TokenSender interface {
	Send(to string, quantity token.Coin, memo string) error
}

// RefundScheduler arms the delayed refund re-invocation. Schedule must
// atomically cancel any prior schedule for the same owner, which is what
// gives the refund queue its debounce semantics.
type RefundScheduler interface {
	Schedule(owner string, delay time.Duration)
	Cancel(owner string)
}

// Authorizer is the host's caller-authentication surface.
type Authorizer interface {
	RequireAuthorized(owner string) error
	RequireOperator() error
}

// AccountRegistry answers account existence checks.
type AccountRegistry interface {
	AccountExists(name string) bool
}

// Engine implements the staking ledger and reward accrual rules over the
// external collaborators. All methods are synchronous and bounded; the host
// serializes invocations and owns commit/rollback of the state.
type Engine struct {
	params    Params
	state     State
	tokens    TokenSender
	scheduler RefundScheduler
	auth      Authorizer
	accounts  AccountRegistry
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine creates a staking engine with a no-op emitter. Collaborators are
// wired via the setters before first use.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetTokenSender configures the outbound token transfer primitive.
func (e *Engine) SetTokenSender(tokens TokenSender) { e.tokens = tokens }

// SetScheduler configures the delayed refund scheduler.
func (e *Engine) SetScheduler(scheduler RefundScheduler) { e.scheduler = scheduler }

// SetAuthorizer configures the caller-authentication collaborator.
func (e *Engine) SetAuthorizer(auth Authorizer) { e.auth = auth }

// SetAccountRegistry configures the account existence collaborator.
func (e *Engine) SetAccountRegistry(accounts AccountRegistry) { e.accounts = accounts }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Params returns the engine configuration.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(evt *events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) settings() (*Settings, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.Settings()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = DefaultSettings()
	}
	return st.Normalize(), nil
}

func (e *Engine) requireNotFrozen() error {
	st, err := e.settings()
	if err != nil {
		return err
	}
	if st.Frozen {
		return ErrFrozen
	}
	return nil
}

func (e *Engine) requireAccount(owner string) error {
	if e.accounts == nil || !e.accounts.AccountExists(owner) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, owner)
	}
	return nil
}

func (e *Engine) validateQuantity(quantity token.Coin) error {
	if quantity.Amount == nil {
		return ErrInvalidAmount
	}
	if err := quantity.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrSymbolMismatch, quantity.Symbol)
	}
	if !quantity.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// addResources folds pending reward into an existing position (or creates
// one) and adds the deposited quantity. TotalStaked moves in the same call so
// the aggregate never drifts from the per-owner sum.
func (e *Engine) addResources(owner string, amount *big.Int) error {
	st, err := e.settings()
	if err != nil {
		return err
	}
	pos, ok, err := e.state.Position(owner)
	if err != nil {
		return err
	}
	if ok {
		pos = pos.Normalize()
		reward, _, err := e.accrue(pos, st.ActiveDay)
		if err != nil {
			return err
		}
		pos.UnclaimedTokens = new(big.Int).Add(pos.UnclaimedTokens, reward)
		pos.Quantity = new(big.Int).Add(pos.Quantity, amount)
		pos.LastCalcDay = st.ActiveDay
	} else {
		pos = &Position{
			Quantity:        new(big.Int).Set(amount),
			UnclaimedTokens: big.NewInt(0),
			LastCalcDay:     st.ActiveDay,
		}
	}
	if err := e.state.PutPosition(owner, pos); err != nil {
		return err
	}
	st.TotalStaked = new(big.Int).Add(st.TotalStaked, amount)
	return e.state.PutSettings(st)
}

// subResources removes bonded quantity. A subtraction that zeroes the stake
// while nothing is left unclaimed deletes the entry outright, skipping
// accrual for the final window; any other subtraction folds pending reward
// first and advances the accrual cursor.
func (e *Engine) subResources(owner string, amount *big.Int) error {
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
	if pos.Quantity.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	if pos.Quantity.Cmp(amount) == 0 && pos.UnclaimedTokens.Sign() == 0 {
		if err := e.state.DeletePosition(owner); err != nil {
			return err
		}
	} else {
		reward, advanced, err := e.accrue(pos, st.ActiveDay)
		if err != nil {
			return err
		}
		pos.UnclaimedTokens = new(big.Int).Add(pos.UnclaimedTokens, reward)
		pos.Quantity = new(big.Int).Sub(pos.Quantity, amount)
		pos.LastCalcDay = advanced
		if err := e.state.PutPosition(owner, pos); err != nil {
			return err
		}
	}
	st.TotalStaked = new(big.Int).Sub(st.TotalStaked, amount)
	return e.state.PutSettings(st)
}

func (e *Engine) sendTokens(to string, amount *big.Int, memo string) error {
	if e.tokens == nil {
		return fmt.Errorf("staking engine: token sender not configured")
	}
	return e.tokens.Send(to, token.NewCoin(amount), memo)
}
