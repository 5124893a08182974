package lockup

import (
	"fmt"
	"math/big"
	"sync"

	"lockvault/core/events"
	nativecommon "lockvault/native/common"
)

// CreditEngine implements the credit-burning pool variant: deposits are kept
// entirely naked, member credit is minted at a basis-point multiplier, and
// withdrawals burn the proportional credit from the caller's own custody.
// Locked claims can be transferred between members under role gating.
type CreditEngine struct {
	state       engineState
	ledger      TokenLedger
	pools       PoolRegistry
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	params      CreditParams
	vault       [20]byte
	blockHeight uint64

	// reentry serialises mutating operations; paramsMu guards params and
	// blockHeight for readers running outside the reentry lock. Writers
	// hold both.
	reentry  sync.Mutex
	paramsMu sync.RWMutex
}

// NewCreditEngine constructs a credit-burning engine. Collaborators are wired
// through the Set* methods before first use.
func NewCreditEngine(params CreditParams) *CreditEngine {
	params.Normalize()
	return &CreditEngine{
		params:  params,
		vault:   VaultAddress(creditModuleName),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *CreditEngine) SetState(state engineState) { e.state = state }

// SetLedger wires the fungible-token collaborator.
func (e *CreditEngine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetPoolRegistry wires the registry used for circulating-supply exclusions.
func (e *CreditEngine) SetPoolRegistry(pools PoolRegistry) { e.pools = pools }

// SetPauses wires the pause registry consulted before deposits. Withdrawals
// are exempt from the pause switch.
func (e *CreditEngine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *CreditEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetBlockHeight records the block height used by lock and start checks. The
// update waits for any mutation in flight so a single call never sees two
// different heights.
func (e *CreditEngine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.reentry.Lock()
	e.paramsMu.Lock()
	e.blockHeight = height
	e.paramsMu.Unlock()
	e.reentry.Unlock()
}

// Params returns a copy of the current engine parameters.
func (e *CreditEngine) Params() CreditParams {
	if e == nil {
		return CreditParams{}
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
func (e *CreditEngine) Vault() [20]byte { return e.vault }

// MaxNakedDepositCap computes the dynamic ceiling on naked deposits.
func (e *CreditEngine) MaxNakedDepositCap() (*big.Int, error) {
	if e == nil {
		return nil, errNilState
	}
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return maxNakedDepositCap(e.ledger, e.pools, e.params.DepositAsset, e.params.Treasury, e.params.AbsoluteCap, e.params.CirculatingCapBps)
}

// VaultHeld returns the vault's current deposit-asset custody.
func (e *CreditEngine) VaultHeld() (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilLedger
	}
	e.paramsMu.RLock()
	asset := e.params.DepositAsset
	e.paramsMu.RUnlock()
	return e.ledger.BalanceOf(asset, e.vault)
}

// GetUser returns the account record for addr, if any.
func (e *CreditEngine) GetUser(addr [20]byte) (*UserAccount, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	user, ok, err := e.state.GetUser(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	return user.Clone(), true, nil
}

func (e *CreditEngine) creditFor(amount *big.Int) *big.Int {
	credit := new(big.Int).Mul(amount, new(big.Int).SetUint64(e.params.MultiplierBps))
	return credit.Quo(credit, basisPoints)
}

// resetLockIfDue restarts the account's lock clock on first-ever deposit or
// once the lock-free window measured from the pool start has elapsed. Note the
// trigger direction is the opposite of the split variant's; both are kept
// exactly as each pool behaves.
func (e *CreditEngine) resetLockIfDue(user *UserAccount) {
	if user.LockStartBlock == 0 || e.blockHeight > e.params.StartBlock+e.params.LockFreeBlocks {
		user.LockStartBlock = e.blockHeight
	}
}

// Deposit pulls amount of the deposit asset from the caller and mints member
// credit at the configured basis-point multiplier.
func (e *CreditEngine) Deposit(caller [20]byte, amount *big.Int) (*DepositReceipt, error) {
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

	if err := nativecommon.Guard(e.pauses, creditModuleName); err != nil {
		return nil, err
	}
	if !hasOpenRole(e.state, RoleLockupDepositor, caller) {
		return nil, ErrNotAllowlisted
	}
	if e.blockHeight < e.params.StartBlock {
		return nil, ErrNotStarted
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	vaultHeld, err := e.ledger.BalanceOf(e.params.DepositAsset, e.vault)
	if err != nil {
		return nil, err
	}
	cap, err := e.MaxNakedDepositCap()
	if err != nil {
		return nil, err
	}
	if new(big.Int).Add(vaultHeld, amount).Cmp(cap) > 0 {
		return nil, ErrDepositCapExceeded
	}

	user, ok, err := e.state.GetUser(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		user = (&UserAccount{Address: caller}).Normalize()
	}

	if err := e.ledger.TransferFrom(e.params.DepositAsset, e.vault, caller, e.vault, amount); err != nil {
		return nil, fmt.Errorf("lockup engine: pull deposit: %w", err)
	}
	credit := e.creditFor(amount)
	if credit.Sign() > 0 {
		if err := e.ledger.Mint(e.params.CreditAsset, caller, credit); err != nil {
			if refundErr := e.ledger.Transfer(e.params.DepositAsset, e.vault, caller, amount); refundErr != nil {
				return nil, fmt.Errorf("lockup engine: refund failed (%v) after mint: %w", refundErr, err)
			}
			return nil, fmt.Errorf("lockup engine: mint credit: %w", err)
		}
	}

	user.LockedNaked.Add(user.LockedNaked, amount)
	user.CreditBalance.Add(user.CreditBalance, credit)
	e.resetLockIfDue(user)
	user.LastActivityBlock = e.blockHeight

	if err := e.state.PutUser(user); err != nil {
		return nil, err
	}

	e.emit(events.LockupDeposited{
		Account:        caller,
		Amount:         new(big.Int).Set(amount),
		NakedAmount:    new(big.Int).Set(amount),
		LPAmount:       big.NewInt(0),
		CreditMinted:   new(big.Int).Set(credit),
		LockStartBlock: user.LockStartBlock,
	})

	return &DepositReceipt{
		Amount:         new(big.Int).Set(amount),
		NakedAmount:    new(big.Int).Set(amount),
		LPAmount:       big.NewInt(0),
		CreditMinted:   new(big.Int).Set(credit),
		LockStartBlock: user.LockStartBlock,
	}, nil
}

// Withdraw releases amount of the caller's locked deposit once the lock has
// expired (or the unlock override is set) and burns the proportional credit
// from the caller's custody. Withdrawals are deliberately exempt from pause.
func (e *CreditEngine) Withdraw(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()

	if e.blockHeight < e.params.StartBlock {
		return ErrNotStarted
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	user, ok, err := e.state.GetUser(caller)
	if err != nil {
		return err
	}
	if !ok || user.LockedNaked.Cmp(amount) < 0 {
		return ErrInsufficientLocked
	}
	if !e.params.UnlockOverride && e.blockHeight <= user.LockStartBlock+e.params.LockDurationBlocks {
		return ErrStillLocked
	}

	// Burn first so a failing payout can be compensated by re-minting.
	credit := e.creditFor(amount)
	if credit.Sign() > 0 {
		if err := e.ledger.BurnFrom(e.params.CreditAsset, caller, credit); err != nil {
			return fmt.Errorf("lockup engine: burn credit: %w", err)
		}
	}
	if err := e.ledger.Transfer(e.params.DepositAsset, e.vault, caller, amount); err != nil {
		if credit.Sign() > 0 {
			if mintErr := e.ledger.Mint(e.params.CreditAsset, caller, credit); mintErr != nil {
				return fmt.Errorf("lockup engine: credit restore failed (%v) after payout: %w", mintErr, err)
			}
		}
		return fmt.Errorf("lockup engine: payout: %w", err)
	}

	user.LockedNaked.Sub(user.LockedNaked, amount)
	user.CreditBalance.Sub(user.CreditBalance, credit)
	if user.CreditBalance.Sign() < 0 {
		user.CreditBalance.SetInt64(0)
	}

	if err := e.state.PutUser(user); err != nil {
		return err
	}

	e.emit(events.LockupWithdrawn{
		Account:      caller,
		Amount:       new(big.Int).Set(amount),
		CreditBurned: new(big.Int).Set(credit),
	})
	return nil
}

// WithdrawAll releases the caller's entire locked deposit.
func (e *CreditEngine) WithdrawAll(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	user, ok, err := e.state.GetUser(caller)
	if err != nil {
		return err
	}
	if !ok || user.LockedNaked.Sign() == 0 {
		return ErrInsufficientLocked
	}
	return e.Withdraw(caller, new(big.Int).Set(user.LockedNaked))
}

// Transfer moves part of the caller's locked claim, plus the proportional
// member credit from the caller's own holdings, to the recipient. The caller
// needs the transfer role unless the role is open (granted to the zero
// address).
func (e *CreditEngine) Transfer(caller, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()

	if !hasOpenRole(e.state, RoleLockupTransfer, caller) {
		return ErrUnauthorized
	}
	if recipient == zeroAddress {
		return ErrZeroAddress
	}
	if recipient == caller {
		return ErrSelfTransfer
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	sender, ok, err := e.state.GetUser(caller)
	if err != nil {
		return err
	}
	if !ok || sender.LockedNaked.Cmp(amount) < 0 {
		return ErrInsufficientLocked
	}
	receiver, ok, err := e.state.GetUser(recipient)
	if err != nil {
		return err
	}
	if !ok {
		receiver = (&UserAccount{Address: recipient}).Normalize()
	}

	// The credit moves from the sender's existing custody; nothing is
	// minted here.
	credit := e.creditFor(amount)
	if credit.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.params.CreditAsset, e.vault, caller, recipient, credit); err != nil {
			return fmt.Errorf("lockup engine: move credit: %w", err)
		}
	}

	sender.LockedNaked.Sub(sender.LockedNaked, amount)
	sender.CreditBalance.Sub(sender.CreditBalance, credit)
	if sender.CreditBalance.Sign() < 0 {
		sender.CreditBalance.SetInt64(0)
	}

	receiver.LockedNaked.Add(receiver.LockedNaked, amount)
	receiver.CreditBalance.Add(receiver.CreditBalance, credit)
	e.resetLockIfDue(receiver)
	receiver.LastActivityBlock = e.blockHeight

	if err := e.state.PutUser(sender); err != nil {
		return err
	}
	if err := e.state.PutUser(receiver); err != nil {
		return err
	}

	e.emit(events.LockupClaimTransferred{
		From:        caller,
		To:          recipient,
		Amount:      new(big.Int).Set(amount),
		CreditMoved: new(big.Int).Set(credit),
	})
	return nil
}

func (e *CreditEngine) requireAdmin(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.state.HasRole(RoleLockupAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

// UpdateStartAndLockBlocks moves the pool start and lock duration while the
// pool has not started yet.
func (e *CreditEngine) UpdateStartAndLockBlocks(caller [20]byte, startBlock, lockDurationBlocks uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if e.blockHeight >= e.params.StartBlock {
		return ErrAlreadyStarted
	}
	if startBlock <= e.blockHeight {
		return fmt.Errorf("lockup engine: new start block %d not in the future", startBlock)
	}
	e.paramsMu.Lock()
	e.params.StartBlock = startBlock
	e.params.LockDurationBlocks = lockDurationBlocks
	e.paramsMu.Unlock()
	e.emit(events.LockupParamUpdated{Param: "startBlock", Value: fmt.Sprintf("%d", startBlock)})
	e.emit(events.LockupParamUpdated{Param: "lockDurationBlocks", Value: fmt.Sprintf("%d", lockDurationBlocks)})
	return nil
}

// SetMaxCap updates the absolute ceiling on naked deposits.
func (e *CreditEngine) SetMaxCap(caller [20]byte, cap *big.Int) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if cap == nil || cap.Sign() < 0 {
		return ErrInvalidAmount
	}
	e.paramsMu.Lock()
	e.params.AbsoluteCap = new(big.Int).Set(cap)
	e.paramsMu.Unlock()
	e.emit(events.LockupParamUpdated{Param: "absoluteCap", Value: cap.String()})
	return nil
}

// SetMaxCapCirculatingBP updates the circulating-supply cap fraction.
func (e *CreditEngine) SetMaxCapCirculatingBP(caller [20]byte, bps uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if bps > 10_000 {
		return fmt.Errorf("lockup engine: circulating cap %d exceeds 10000 basis points", bps)
	}
	e.paramsMu.Lock()
	e.params.CirculatingCapBps = bps
	e.paramsMu.Unlock()
	e.emit(events.LockupParamUpdated{Param: "circulatingCapBps", Value: fmt.Sprintf("%d", bps)})
	return nil
}

// SetUnlock toggles the global unlock override waiving lock-expiry checks.
func (e *CreditEngine) SetUnlock(caller [20]byte, unlocked bool) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	e.paramsMu.Lock()
	e.params.UnlockOverride = unlocked
	e.paramsMu.Unlock()
	e.emit(events.LockupParamUpdated{Param: "unlockOverride", Value: fmt.Sprintf("%t", unlocked)})
	return nil
}

// SetTreasury updates the treasury exclusion address.
func (e *CreditEngine) SetTreasury(caller [20]byte, treasury [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if treasury == zeroAddress {
		return ErrZeroAddress
	}
	e.paramsMu.Lock()
	e.params.Treasury = treasury
	e.paramsMu.Unlock()
	e.emit(events.LockupParamUpdated{Param: "treasury", Value: fmt.Sprintf("%x", treasury)})
	return nil
}

// Pause halts the deposit surface. Withdrawals stay open.
func (e *CreditEngine) Pause(caller [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := e.state.SetPaused(creditModuleName, true); err != nil {
		return err
	}
	e.emit(events.LockupPauseToggled{Paused: true})
	return nil
}

// Resume reopens the deposit surface.
func (e *CreditEngine) Resume(caller [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := e.state.SetPaused(creditModuleName, false); err != nil {
		return err
	}
	e.emit(events.LockupPauseToggled{Paused: false})
	return nil
}

// RecoverWrongTokens sweeps a token that was sent to the vault by mistake.
func (e *CreditEngine) RecoverWrongTokens(caller [20]byte, token, recipient [20]byte, amount *big.Int) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if e.ledger == nil {
		return errNilLedger
	}
	if token == e.params.DepositAsset || token == e.params.CreditAsset {
		return ErrManagedToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if recipient == zeroAddress {
		return ErrZeroAddress
	}
	if err := e.ledger.Transfer(token, e.vault, recipient, amount); err != nil {
		return err
	}
	e.emit(events.LockupTokensRecovered{Token: token, Recipient: recipient, Amount: new(big.Int).Set(amount)})
	return nil
}

func (e *CreditEngine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
