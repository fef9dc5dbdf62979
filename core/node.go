package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"hvstaking/core/events"
	"hvstaking/native/staking"
	"hvstaking/observability"
	"hvstaking/schedule"
	"hvstaking/state"
	"hvstaking/token"
)

// Node is the execution host around the staking engine. It serializes
// operations into a single total order, owns the commit/discard of the state
// overlay (so every operation is atomic), authenticates principals, and
// re-arms delayed refunds across restarts.
type Node struct {
	mu        sync.Mutex
	state     *state.Manager
	engine    *staking.Engine
	bank      *token.Bank
	scheduler *schedule.Scheduler
	logger    *slog.Logger
	metrics   *observability.StakingMetrics

	// principal is the authenticated caller of the operation currently
	// executing under mu. The engine's Authorizer reads it.
	principal principal
}

type principal struct {
	owner    string
	operator bool
}

// NewNode wires the engine, bank and scheduler over the given state manager.
func NewNode(manager *state.Manager, params staking.Params, logger *slog.Logger) (*Node, error) {
	if manager == nil {
		return nil, fmt.Errorf("core: state manager required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		state:   manager,
		logger:  logger,
		metrics: observability.Staking(),
	}
	n.bank = token.NewBank(params.TokenCode, manager)
	n.scheduler = schedule.New(n.runScheduledRefund)

	engine := staking.NewEngine(params)
	engine.SetState(manager)
	engine.SetTokenSender(custodySender{bank: n.bank, from: params.SelfAccount})
	engine.SetScheduler(n.scheduler)
	engine.SetAuthorizer(nodeAuthorizer{node: n})
	engine.SetAccountRegistry(n.bank)
	engine.SetEmitter(nodeEmitter{node: n})
	n.engine = engine

	n.bank.Subscribe(incomingTransfers{node: n})
	return n, nil
}

// Engine exposes the staking engine for read paths and tests.
func (n *Node) Engine() *staking.Engine { return n.engine }

// Bank exposes the custody token ledger.
func (n *Node) Bank() *token.Bank { return n.bank }

// SetNowFunc overrides the engine clock. Test helper.
func (n *Node) SetNowFunc(now func() int64) { n.engine.SetNowFunc(now) }

// Close stops all outstanding refund timers.
func (n *Node) Close() {
	n.scheduler.Close()
}

// custodySender moves tokens out of the ledger's custody account.
type custodySender struct {
	bank *token.Bank
	from string
}

func (s custodySender) Send(to string, quantity token.Coin, memo string) error {
	return s.bank.Transfer(s.from, to, quantity, memo)
}

// incomingTransfers forwards deposit notifications into the engine. The
// engine must only ever see transfers the custody account receives: outgoing
// movement (refunds, reward payouts) and peer-to-peer transfers between third
// parties are filtered here, so ledger-level gates like the freeze flag never
// touch ordinary token movement.
type incomingTransfers struct {
	node *Node
}

func (h incomingTransfers) OnTransfer(from, to string, quantity token.Coin, memo string) error {
	n := h.node
	self := staking.NormalizeAccountName(n.engine.Params().SelfAccount)
	if staking.NormalizeAccountName(from) == self || staking.NormalizeAccountName(to) != self {
		return nil
	}
	return n.engine.HandleIncomingTransfer(n.bank.Code(), from, to, quantity, memo)
}

// nodeAuthorizer checks engine-level authorization against the principal the
// node authenticated for the current operation.
type nodeAuthorizer struct {
	node *Node
}

func (a nodeAuthorizer) RequireAuthorized(owner string) error {
	p := a.node.principal
	if p.operator || (p.owner != "" && staking.NormalizeAccountName(p.owner) == staking.NormalizeAccountName(owner)) {
		return nil
	}
	return staking.ErrUnauthorized
}

func (a nodeAuthorizer) RequireOperator() error {
	if a.node.principal.operator {
		return nil
	}
	return staking.ErrUnauthorized
}

// nodeEmitter logs emitted ledger events and counts them.
type nodeEmitter struct {
	node *Node
}

func (e nodeEmitter) Emit(evt *events.Event) {
	if evt == nil {
		return
	}
	e.node.metrics.CountEvent(evt.Type)
	e.node.logger.Info("ledger event",
		slog.String("type", evt.Type),
		slog.Any("attributes", evt.Attributes),
	)
}

// execute runs one operation under the node lock with the given principal,
// committing the state overlay on success and discarding it on failure.
func (n *Node) execute(operation string, p principal, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.principal = p
	defer func() { n.principal = principal{} }()

	start := time.Now()
	err := fn()
	if err == nil {
		err = n.state.Commit()
	}
	if err != nil {
		n.state.Discard()
		n.logger.Warn("operation failed",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}
	n.metrics.ObserveOperation(operation, err, time.Since(start))
	return err
}

// read runs a side-effect-free query under the node lock. Any writes staged
// by accident are discarded.
func (n *Node) read(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	defer n.state.Discard()
	return fn()
}

// Transfer moves tokens between accounts; deposits addressed to the custody
// account drive PowerUp through the notification hook, atomically with the
// balance move.
func (n *Node) Transfer(from, to string, quantity token.Coin, memo string) error {
	return n.execute("transfer", principal{owner: from}, func() error {
		return n.bank.Transfer(from, to, quantity, memo)
	})
}

// PowerDown unbonds stake for owner and schedules the delayed refund.
func (n *Node) PowerDown(owner string, quantity token.Coin) error {
	return n.execute("powerDown", principal{owner: owner}, func() error {
		return n.engine.PowerDown(owner, quantity)
	})
}

// Refund executes the delayed withdrawal for owner. Callable by anyone; the
// engine enforces the timing gate itself.
func (n *Node) Refund(owner string) error {
	return n.execute("refund", principal{}, func() error {
		return n.engine.Refund(owner)
	})
}

// Claim pays out accrued staking rewards to owner.
func (n *Node) Claim(owner string) error {
	return n.execute("claim", principal{owner: owner}, func() error {
		return n.engine.Claim(owner)
	})
}

// CheckReward reports the claimable reward without mutating anything.
func (n *Node) CheckReward(owner string) (*big.Int, error) {
	var reward *big.Int
	err := n.read(func() error {
		var err error
		reward, err = n.engine.CheckReward(owner)
		return err
	})
	return reward, err
}

// Position returns the owner's ledger entry.
func (n *Node) Position(owner string) (*staking.Position, bool, error) {
	var (
		pos *staking.Position
		ok  bool
	)
	err := n.read(func() error {
		var err error
		pos, ok, err = n.engine.PositionOf(owner)
		return err
	})
	return pos, ok, err
}

// PendingRefund returns the owner's pending withdrawal, if any.
func (n *Node) PendingRefund(owner string) (*staking.RefundRequest, bool, error) {
	var (
		req *staking.RefundRequest
		ok  bool
	)
	err := n.read(func() error {
		var err error
		req, ok, err = n.engine.PendingRefundOf(owner)
		return err
	})
	return req, ok, err
}

// Settings returns the global ledger settings.
func (n *Node) Settings() (*staking.Settings, error) {
	var st *staking.Settings
	err := n.read(func() error {
		var err error
		st, err = n.engine.SettingsView()
		return err
	})
	return st, err
}

// RewardRatio returns the ratio recorded for day, zero if absent.
func (n *Node) RewardRatio(day uint64) (int32, error) {
	var ratio int32
	err := n.read(func() error {
		var err error
		ratio, err = n.engine.RewardRatioOf(day)
		return err
	})
	return ratio, err
}

// Profile returns the claim-eligibility record for owner.
func (n *Node) Profile(owner string) (*staking.Profile, bool, error) {
	var (
		profile *staking.Profile
		ok      bool
	)
	err := n.read(func() error {
		var err error
		profile, ok, err = n.engine.ProfileOf(owner)
		return err
	})
	return profile, ok, err
}

// Balance returns the custody balance for an account.
func (n *Node) Balance(name string) (*big.Int, error) {
	var balance *big.Int
	err := n.read(func() error {
		var err error
		balance, err = n.bank.BalanceOf(name)
		return err
	})
	return balance, err
}

// SetDay sets the active accrual day. Operator only.
func (n *Node) SetDay(day uint64) error {
	return n.execute("setDay", principal{operator: true}, func() error {
		return n.engine.SetDay(day)
	})
}

// CalcRatio recomputes the reward ratio for day. Operator only.
func (n *Node) CalcRatio(day uint64) error {
	return n.execute("calcRatio", principal{operator: true}, func() error {
		return n.engine.CalcRatio(day)
	})
}

// Freeze blocks user operations. Operator only.
func (n *Node) Freeze() error {
	return n.execute("freeze", principal{operator: true}, func() error {
		return n.engine.Freeze()
	})
}

// Unfreeze lifts the freeze flag. Operator only.
func (n *Node) Unfreeze() error {
	return n.execute("unfreeze", principal{operator: true}, func() error {
		return n.engine.Unfreeze()
	})
}

// SetProfile upserts claim eligibility for owner. Operator only.
func (n *Node) SetProfile(owner string, active bool, note string) error {
	return n.execute("setProfile", principal{operator: true}, func() error {
		return n.engine.SetProfile(owner, active, note)
	})
}

// SeedGenesis mints the configured genesis balances exactly once per
// database. Amounts are canonical asset strings ("100.0000 HVT").
func (n *Node) SeedGenesis(balances map[string]string) error {
	if len(balances) == 0 {
		return nil
	}
	return n.execute("seedGenesis", principal{operator: true}, func() error {
		applied, err := n.state.GenesisApplied()
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		for name, amount := range balances {
			coin, err := token.ParseCoin(amount)
			if err != nil {
				return fmt.Errorf("core: genesis balance for %s: %w", name, err)
			}
			if err := n.bank.Mint(staking.NormalizeAccountName(name), coin); err != nil {
				return err
			}
		}
		return n.state.MarkGenesisApplied()
	})
}

// RearmRefunds re-schedules the delayed payout for every pending withdrawal
// found in committed state. Requests already past due are armed with a
// minimal delay rather than executed inline so startup stays fast.
func (n *Node) RearmRefunds() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	params := n.engine.Params()
	delaySeconds := int64(params.RefundDelay / time.Second)
	return n.state.PendingRefunds(func(owner string, req *staking.RefundRequest) bool {
		remaining := time.Duration(req.DueAt(delaySeconds)-time.Now().Unix()) * time.Second
		if remaining < time.Second {
			remaining = time.Second
		}
		n.scheduler.Schedule(owner, remaining)
		n.logger.Info("re-armed pending refund",
			slog.String("owner", owner),
			slog.Duration("remaining", remaining),
		)
		return true
	})
}

// runScheduledRefund is the scheduler callback: it re-enters the node like
// any external caller and logs (rather than propagates) failures, since a
// too-early invocation is simply retried by the next schedule.
func (n *Node) runScheduledRefund(owner string) {
	if err := n.Refund(owner); err != nil {
		n.logger.Warn("scheduled refund did not execute",
			slog.String("owner", owner),
			slog.Any("error", err),
		)
	}
}
