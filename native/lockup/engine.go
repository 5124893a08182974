package lockup

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"lockvault/core/events"
	nativecommon "lockvault/native/common"
)

// Engine implements the split-variant deposit pool: every deposit is divided
// between a naked locked position and a zapped LP position according to the
// caller's split, and member credit is minted against the naked portion.
type Engine struct {
	state       engineState
	ledger      TokenLedger
	swapRouter  SwapRouter
	zapper      Zapper
	zapperAddr  [20]byte
	pools       PoolRegistry
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	params      Params
	vault       [20]byte
	blockHeight uint64
	nowFn       func() int64

	// reentry serialises mutating operations; collaborator calls are the
	// only suspension points and custody deltas measured around them must
	// not observe nested mutations.
	reentry sync.Mutex
	// paramsMu guards params and blockHeight for readers running outside
	// the reentry lock. Writers hold both, so a mutation mid-flight never
	// observes a parameter or height change.
	paramsMu sync.RWMutex
}

// NewEngine constructs a split-variant engine. Collaborators are wired through
// the Set* methods before first use.
func NewEngine(params Params) *Engine {
	params.Normalize()
	return &Engine{
		params:  params,
		vault:   VaultAddress(moduleName),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the fungible-token collaborator.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetPoolRegistry wires the registry used for circulating-supply exclusions.
func (e *Engine) SetPoolRegistry(pools PoolRegistry) { e.pools = pools }

// SetSwapRouter wires the conversion collaborator used by DepositStable and
// grants it a standing allowance over the stable asset. Wire the ledger first.
func (e *Engine) SetSwapRouter(router SwapRouter, addr [20]byte) error {
	e.swapRouter = router
	if e.ledger == nil || addr == zeroAddress {
		return nil
	}
	return e.ledger.Approve(e.params.StableAsset, e.vault, addr, new(big.Int).Set(maxAllowance))
}

// SetZapper wires the liquidity-provisioning collaborator and grants it a
// standing allowance over the deposit asset. Wire the ledger first.
func (e *Engine) SetZapper(zapper Zapper, addr [20]byte) error {
	e.zapper = zapper
	e.zapperAddr = addr
	if e.ledger == nil || addr == zeroAddress {
		return nil
	}
	return e.ledger.Approve(e.params.DepositAsset, e.vault, addr, new(big.Int).Set(maxAllowance))
}

// SetPauses wires the pause registry consulted before mutating calls.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetBlockHeight records the block height used by lock and start checks. The
// update waits for any mutation in flight so a single call never sees two
// different heights.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.reentry.Lock()
	e.paramsMu.Lock()
	e.blockHeight = height
	e.paramsMu.Unlock()
	e.reentry.Unlock()
}

// SetNowFunc overrides the time source used for swap deadlines. Primarily
// intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Params returns a copy of the current engine parameters.
func (e *Engine) Params() Params {
	if e == nil {
		return Params{}
	}
	e.paramsMu.RLock()
	p := e.params
	e.paramsMu.RUnlock()
	if p.AbsoluteCap != nil {
		p.AbsoluteCap = new(big.Int).Set(p.AbsoluteCap)
	}
	return p
}

// Vault returns the custody address holding pooled deposits.
func (e *Engine) Vault() [20]byte { return e.vault }

// MaxNakedDepositCap computes the dynamic ceiling on naked deposits. Safe to
// call from any read context; it has no side effects.
func (e *Engine) MaxNakedDepositCap() (*big.Int, error) {
	if e == nil {
		return nil, errNilState
	}
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return maxNakedDepositCap(e.ledger, e.pools, e.params.DepositAsset, e.params.Treasury, e.params.AbsoluteCap, e.params.CirculatingCapBps)
}

// VaultHeld returns the vault's current deposit-asset custody.
func (e *Engine) VaultHeld() (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilLedger
	}
	e.paramsMu.RLock()
	asset := e.params.DepositAsset
	e.paramsMu.RUnlock()
	return e.ledger.BalanceOf(asset, e.vault)
}

// GetUser returns the account record for addr, if any.
func (e *Engine) GetUser(addr [20]byte) (*UserAccount, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	user, ok, err := e.state.GetUser(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	return user.Clone(), true, nil
}

// GetSplit returns the split configuration for id, if any.
func (e *Engine) GetSplit(id uint32) (*SplitConfig, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	split, ok, err := e.state.GetSplit(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return split.Clone(), true, nil
}

// ListSplits returns every configured split ordered by identifier.
func (e *Engine) ListSplits() ([]*SplitConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	splits, err := e.state.ListSplits()
	if err != nil {
		return nil, err
	}
	out := make([]*SplitConfig, 0, len(splits))
	for _, s := range splits {
		out = append(out, s.Clone())
	}
	return out, nil
}

// Deposit pulls amount of the deposit asset from the caller, routes the LP
// portion through the zapper and mints member credit against the naked
// portion. The caller's split binding is write-once.
func (e *Engine) Deposit(caller [20]byte, amount *big.Int, splitID uint32) (*DepositReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if !e.reentry.TryLock() {
		return nil, ErrReentrantCall
	}
	defer e.reentry.Unlock()

	if err := e.checkDepositPreconditions(caller, amount); err != nil {
		return nil, err
	}
	user, split, naked, lp, err := e.validateSplitDeposit(caller, amount, splitID, nil)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFrom(e.params.DepositAsset, e.vault, caller, e.vault, amount); err != nil {
		return nil, fmt.Errorf("lockup engine: pull deposit: %w", err)
	}
	return e.settleDeposit(caller, user, split, amount, naked, lp)
}

// DepositStable pulls a stable-like asset from the caller, converts it to the
// deposit asset along the configured path and deposits the realised output.
// The realised amount is measured as the vault's deposit-asset balance delta
// around the swap, never trusted from the router's return values.
func (e *Engine) DepositStable(caller [20]byte, amountStable, minOut *big.Int, splitID uint32) (*DepositReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if e.swapRouter == nil {
		return nil, errNilSwapRouter
	}
	if !e.reentry.TryLock() {
		return nil, ErrReentrantCall
	}
	defer e.reentry.Unlock()

	if err := e.checkDepositPreconditions(caller, amountStable); err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFrom(e.params.StableAsset, e.vault, caller, e.vault, amountStable); err != nil {
		return nil, fmt.Errorf("lockup engine: pull stable deposit: %w", err)
	}

	before, err := e.ledger.BalanceOf(e.params.DepositAsset, e.vault)
	if err != nil {
		return nil, e.compensate(e.params.StableAsset, caller, amountStable, err)
	}
	deadline := e.nowFn() + e.params.SwapDeadlineSeconds
	routed, err := e.swapRouter.Execute(amountStable, minOut, e.params.SwapPath, e.vault, deadline)
	if err != nil {
		return nil, e.compensate(e.params.StableAsset, caller, amountStable, fmt.Errorf("lockup engine: swap: %w", err))
	}
	after, err := e.ledger.BalanceOf(e.params.DepositAsset, e.vault)
	if err != nil {
		// The custody delta is unreadable; the router-reported output is
		// the only figure left to refund against.
		out := big.NewInt(0)
		if len(routed) > 0 {
			out = routed[len(routed)-1]
		}
		return nil, e.compensate(e.params.DepositAsset, caller, out, err)
	}
	realized := new(big.Int).Sub(after, before)
	if realized.Sign() <= 0 || (minOut != nil && realized.Cmp(minOut) < 0) {
		return nil, e.compensate(e.params.DepositAsset, caller, realized, ErrSwapOutputBelowMin)
	}

	user, split, naked, lp, err := e.validateSplitDeposit(caller, realized, splitID, realized)
	if err != nil {
		// The stable leg is already converted; compensation is paid in
		// the deposit asset.
		return nil, e.compensate(e.params.DepositAsset, caller, realized, err)
	}
	return e.settleDeposit(caller, user, split, realized, naked, lp)
}

func (e *Engine) checkDepositPreconditions(caller [20]byte, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !hasOpenRole(e.state, RoleLockupDepositor, caller) {
		return ErrNotAllowlisted
	}
	if e.blockHeight < e.params.StartBlock {
		return ErrNotStarted
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// validateSplitDeposit runs the split, binding and capacity checks and derives
// the naked/LP portions. heldAdjust is subtracted from the vault balance when
// the amount under evaluation already sits in custody (the stable path).
func (e *Engine) validateSplitDeposit(caller [20]byte, amount *big.Int, splitID uint32, heldAdjust *big.Int) (*UserAccount, *SplitConfig, *big.Int, *big.Int, error) {
	split, ok, err := e.state.GetSplit(splitID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !ok || !split.Valid() {
		return nil, nil, nil, nil, ErrSplitNotConfigured
	}

	user, ok, err := e.state.GetUser(caller)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !ok {
		user = (&UserAccount{Address: caller}).Normalize()
	}
	if user.SplitBound && user.SplitID != splitID {
		return nil, nil, nil, nil, ErrSplitMismatch
	}

	lp := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(splitID)))
	lp.Quo(lp, basisPoints)
	naked := new(big.Int).Sub(amount, lp)

	vaultHeld, err := e.ledger.BalanceOf(e.params.DepositAsset, e.vault)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if heldAdjust != nil {
		vaultHeld = new(big.Int).Sub(vaultHeld, heldAdjust)
	}
	cap, err := e.MaxNakedDepositCap()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if new(big.Int).Add(vaultHeld, naked).Cmp(cap) > 0 {
		return nil, nil, nil, nil, ErrDepositCapExceeded
	}
	// A zero per-user cap means the split is uncapped.
	if split.PerUserNakedCap.Sign() > 0 && new(big.Int).Add(user.LockedNaked, naked).Cmp(split.PerUserNakedCap) > 0 {
		return nil, nil, nil, nil, ErrUserCapExceeded
	}
	return user, split, naked, lp, nil
}

// settleDeposit runs once the full deposit amount sits in vault custody. The
// credit mint happens before the zap so that every later failure can be
// compensated exactly (burn the credit, refund the deposit asset).
func (e *Engine) settleDeposit(caller [20]byte, user *UserAccount, split *SplitConfig, amount, naked, lp *big.Int) (*DepositReceipt, error) {
	credit := new(big.Int).Mul(naked, new(big.Int).SetUint64(uint64(split.CreditMultiplierPercent)))
	credit.Quo(credit, oneHundred)
	if credit.Sign() > 0 {
		if err := e.ledger.Mint(e.params.CreditAsset, caller, credit); err != nil {
			return nil, e.compensate(e.params.DepositAsset, caller, amount, fmt.Errorf("lockup engine: mint credit: %w", err))
		}
	}

	lpOut := big.NewInt(0)
	if lp.Sign() > 0 {
		if e.zapper == nil {
			return nil, e.unwindDeposit(caller, amount, credit, errNilZapper)
		}
		lpBefore, err := e.ledger.BalanceOf(e.params.LPAsset, e.vault)
		if err != nil {
			return nil, e.unwindDeposit(caller, amount, credit, err)
		}
		if err := e.zapper.Zap(e.params.DepositAsset, lp, e.params.LPAsset); err != nil {
			return nil, e.unwindDeposit(caller, amount, credit, fmt.Errorf("lockup engine: zap: %w", err))
		}
		lpAfter, err := e.ledger.BalanceOf(e.params.LPAsset, e.vault)
		if err != nil {
			// The zap itself settled; its LP output stays in vault
			// custody for manual reconciliation while the member is
			// made whole.
			return nil, e.unwindDeposit(caller, amount, credit, err)
		}
		lpOut.Sub(lpAfter, lpBefore)
		if lpOut.Sign() < 0 {
			lpOut.SetInt64(0)
		}
	}

	if !user.SplitBound {
		user.SplitID = split.ID
		user.SplitBound = true
	}
	user.LockedNaked.Add(user.LockedNaked, naked)
	user.LockedLP.Add(user.LockedLP, lpOut)
	user.CreditBalance.Add(user.CreditBalance, credit)
	// A deposit made before the lock-free window has elapsed restarts the
	// lock clock; a later deposit leaves the existing clock untouched.
	if user.LockStartBlock+split.LockFreeWindowBlocks > e.blockHeight {
		user.LockStartBlock = e.blockHeight
	}
	user.LastActivityBlock = e.blockHeight

	split.TotalNakedDeposited.Add(split.TotalNakedDeposited, naked)

	if err := e.state.PutUser(user); err != nil {
		return nil, err
	}
	if err := e.state.PutSplit(split); err != nil {
		return nil, err
	}

	e.emit(events.LockupDeposited{
		Account:        caller,
		SplitID:        split.ID,
		Amount:         new(big.Int).Set(amount),
		NakedAmount:    new(big.Int).Set(naked),
		LPAmount:       new(big.Int).Set(lpOut),
		CreditMinted:   new(big.Int).Set(credit),
		LockStartBlock: user.LockStartBlock,
	})

	return &DepositReceipt{
		SplitID:        split.ID,
		Amount:         new(big.Int).Set(amount),
		NakedAmount:    new(big.Int).Set(naked),
		LPAmount:       new(big.Int).Set(lpOut),
		CreditMinted:   new(big.Int).Set(credit),
		LockStartBlock: user.LockStartBlock,
	}, nil
}

// compensate returns custody pulled for a failed operation back to the caller
// and reports the original cause. A failed compensation is joined to the cause
// so operators can reconcile custody manually.
func (e *Engine) compensate(asset [20]byte, caller [20]byte, amount *big.Int, cause error) error {
	if amount == nil || amount.Sign() <= 0 {
		return cause
	}
	if err := e.ledger.Transfer(asset, e.vault, caller, amount); err != nil {
		return fmt.Errorf("lockup engine: refund failed (%v) after: %w", err, cause)
	}
	return cause
}

// unwindDeposit reverts a deposit whose credit was already minted: the credit
// is burned back and the deposit asset refunded.
func (e *Engine) unwindDeposit(caller [20]byte, amount, credit *big.Int, cause error) error {
	if credit != nil && credit.Sign() > 0 {
		if err := e.ledger.BurnFrom(e.params.CreditAsset, caller, credit); err != nil {
			return fmt.Errorf("lockup engine: credit burn failed (%v) after: %w", err, cause)
		}
	}
	return e.compensate(e.params.DepositAsset, caller, amount, cause)
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
