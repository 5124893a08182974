package lockup

import (
	"fmt"
	"math/big"

	"lockvault/core/events"
)

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.state.HasRole(RoleLockupAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

// ConfigureSplit creates or updates a split configuration. The running naked
// total of an existing split is preserved across updates.
func (e *Engine) ConfigureSplit(caller [20]byte, split *SplitConfig) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := split.Validate(); err != nil {
		return err
	}
	next := split.Clone()
	existing, ok, err := e.state.GetSplit(next.ID)
	if err != nil {
		return err
	}
	if ok {
		next.TotalNakedDeposited = new(big.Int).Set(existing.TotalNakedDeposited)
	} else {
		next.TotalNakedDeposited = big.NewInt(0)
	}
	if err := e.state.PutSplit(next); err != nil {
		return err
	}
	e.emit(events.LockupSplitConfigured{
		SplitID:                 next.ID,
		CreditMultiplierPercent: next.CreditMultiplierPercent,
		LockFreeWindowBlocks:    next.LockFreeWindowBlocks,
		PerUserNakedCap:         new(big.Int).Set(next.PerUserNakedCap),
	})
	return nil
}

// SeedSplit installs a split configuration without a role check. It exists for
// startup-time seeding from declarative configuration and refuses to touch an
// already-configured split.
func (e *Engine) SeedSplit(split *SplitConfig) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := split.Validate(); err != nil {
		return err
	}
	if _, ok, err := e.state.GetSplit(split.ID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("lockup engine: split %d already configured", split.ID)
	}
	next := split.Clone()
	next.TotalNakedDeposited = big.NewInt(0)
	return e.state.PutSplit(next)
}

// UpdateStartAndLockBlocks moves the pool start and lock duration. The change
// is only permitted while the current start block has not been reached and the
// new start must still be in the future.
func (e *Engine) UpdateStartAndLockBlocks(caller [20]byte, startBlock, lockDurationBlocks uint64) error {
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
func (e *Engine) SetMaxCap(caller [20]byte, cap *big.Int) error {
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
func (e *Engine) SetMaxCapCirculatingBP(caller [20]byte, bps uint64) error {
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

// SetTreasury updates the treasury exclusion address.
func (e *Engine) SetTreasury(caller [20]byte, treasury [20]byte) error {
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

// RotateZapper replaces the zapper collaborator. The allowance given to the
// outgoing zapper is reset to zero before the incoming one is approved so a
// revoked collaborator can never spend against a stale grant.
func (e *Engine) RotateZapper(caller [20]byte, zapper Zapper, addr [20]byte) error {
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
	if zapper == nil || addr == zeroAddress {
		return ErrZeroAddress
	}
	if e.zapperAddr != zeroAddress {
		if err := e.ledger.Approve(e.params.DepositAsset, e.vault, e.zapperAddr, big.NewInt(0)); err != nil {
			return fmt.Errorf("lockup engine: revoke zapper allowance: %w", err)
		}
	}
	if err := e.SetZapper(zapper, addr); err != nil {
		return err
	}
	e.emit(events.LockupParamUpdated{Param: "zapper", Value: fmt.Sprintf("%x", addr)})
	return nil
}

// Pause halts the deposit surface.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := e.state.SetPaused(moduleName, true); err != nil {
		return err
	}
	e.emit(events.LockupPauseToggled{Paused: true})
	return nil
}

// Resume reopens the deposit surface.
func (e *Engine) Resume(caller [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !e.reentry.TryLock() {
		return ErrReentrantCall
	}
	defer e.reentry.Unlock()
	if err := e.state.SetPaused(moduleName, false); err != nil {
		return err
	}
	e.emit(events.LockupPauseToggled{Paused: false})
	return nil
}

// RecoverWrongTokens sweeps a token that was sent to the vault by mistake.
// Managed assets can never be swept.
func (e *Engine) RecoverWrongTokens(caller [20]byte, token, recipient [20]byte, amount *big.Int) error {
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
	if token == e.params.DepositAsset || token == e.params.LPAsset || token == e.params.CreditAsset || token == e.params.StableAsset {
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
