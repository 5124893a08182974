package lockup

import (
	"errors"
	"math/big"
	"testing"

	"lockvault/core/events"
	"lockvault/native/ledger"
)

type creditRig struct {
	ms     *memStore
	ledger *ledger.Ledger
	engine *CreditEngine
	rec    *recorder
}

func defaultCreditParams() CreditParams {
	return CreditParams{
		StartBlock:         5,
		LockDurationBlocks: 100,
		LockFreeBlocks:     50,
		MultiplierBps:      5000,
		AbsoluteCap:        big.NewInt(1_000_000),
		CirculatingCapBps:  10_000,
		Treasury:           treasuryAddr,
		DepositAsset:       depositAsset,
		CreditAsset:        creditAsset,
	}
}

func newCreditRig(t *testing.T, params CreditParams) *creditRig {
	t.Helper()
	ms := newMemStore()
	store := NewStore(ms, "credit-test")
	lgr := ledger.New(ms)
	rec := &recorder{}

	engine := NewCreditEngine(params)
	engine.SetState(store)
	engine.SetLedger(lgr)
	engine.SetPauses(store)
	engine.SetEmitter(rec)
	engine.SetPoolRegistry(NewStaticPoolRegistry(nil))
	engine.SetBlockHeight(10)

	ms.grant(RoleLockupDepositor, zeroAddress)
	ms.grant(RoleLockupAdmin, adminAddr)

	return &creditRig{ms: ms, ledger: lgr, engine: engine, rec: rec}
}

func (r *creditRig) fundAndApprove(t *testing.T, holder [20]byte, amount int64) {
	t.Helper()
	if err := r.ledger.Mint(depositAsset, holder, big.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.ledger.Approve(depositAsset, holder, r.engine.Vault(), big.NewInt(amount)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func TestCreditDepositMintsAtMultiplier(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 10_000)

	receipt, err := rig.engine.Deposit(aliceAddr, big.NewInt(1001))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// 1001 * 5000 / 10000 = 500, truncating division.
	if receipt.CreditMinted.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected credit 500, got %s", receipt.CreditMinted)
	}
	if got, _ := rig.ledger.BalanceOf(creditAsset, aliceAddr); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected credit custody 500, got %s", got)
	}
	user, ok, err := rig.engine.GetUser(aliceAddr)
	if err != nil || !ok {
		t.Fatalf("load user: ok=%t err=%v", ok, err)
	}
	if user.LockedNaked.Cmp(big.NewInt(1001)) != 0 {
		t.Fatalf("expected locked 1001, got %s", user.LockedNaked)
	}
	if user.LockStartBlock != 10 {
		t.Fatalf("expected lock start 10, got %d", user.LockStartBlock)
	}
}

func TestCreditLockResetAfterWindow(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 10_000)

	// First-ever deposit always anchors the lock clock.
	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Inside the window measured from the pool start (5+50=55): no reset.
	rig.engine.SetBlockHeight(40)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	user, _, _ := rig.engine.GetUser(aliceAddr)
	if user.LockStartBlock != 10 {
		t.Fatalf("expected lock start to stay 10, got %d", user.LockStartBlock)
	}

	// Past the window the clock restarts on every deposit.
	rig.engine.SetBlockHeight(60)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	user, _, _ = rig.engine.GetUser(aliceAddr)
	if user.LockStartBlock != 60 {
		t.Fatalf("expected lock restart at 60, got %d", user.LockStartBlock)
	}
}

func TestCreditWithdrawLockBoundary(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 1000)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Lock runs until block 10+100; the boundary block itself still fails.
	rig.engine.SetBlockHeight(110)
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(1000)); !errors.Is(err, ErrStillLocked) {
		t.Fatalf("expected ErrStillLocked at boundary, got %v", err)
	}
	rig.engine.SetBlockHeight(111)
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("withdraw one past boundary: %v", err)
	}
}

func TestCreditWithdrawConservation(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 1000)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	rig.engine.SetBlockHeight(200)

	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(400)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// 400 * 5000 / 10000 = 200 credit burned from the caller's custody.
	if got, _ := rig.ledger.BalanceOf(creditAsset, aliceAddr); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected remaining credit 300, got %s", got)
	}
	if got, _ := rig.ledger.BalanceOf(depositAsset, aliceAddr); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected deposit custody 400, got %s", got)
	}
	user, _, _ := rig.engine.GetUser(aliceAddr)
	if user.LockedNaked.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected locked 600, got %s", user.LockedNaked)
	}
}

func TestCreditWithdrawAll(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 750)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(750)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	rig.engine.SetBlockHeight(200)
	if err := rig.engine.WithdrawAll(aliceAddr); err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	user, _, _ := rig.engine.GetUser(aliceAddr)
	if user.LockedNaked.Sign() != 0 {
		t.Fatalf("expected zero locked, got %s", user.LockedNaked)
	}
	if got, _ := rig.ledger.BalanceOf(depositAsset, aliceAddr); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected full payout, got %s", got)
	}
}

func TestCreditUnlockOverride(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 100)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	rig.engine.SetBlockHeight(20)
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(100)); !errors.Is(err, ErrStillLocked) {
		t.Fatalf("expected ErrStillLocked, got %v", err)
	}
	if err := rig.engine.SetUnlock(adminAddr, true); err != nil {
		t.Fatalf("set unlock: %v", err)
	}
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw under override: %v", err)
	}
}

func TestCreditWithdrawExemptFromPause(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 100)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := rig.engine.Pause(adminAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1)); err == nil {
		t.Fatalf("expected deposit blocked while paused")
	}
	rig.engine.SetBlockHeight(200)
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw must stay open while paused: %v", err)
	}
}

func TestCreditTransferRoleGating(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 1000)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Role checks fail closed.
	if err := rig.engine.Transfer(aliceAddr, bobAddr, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Granting the role to the zero address opens it to everyone.
	rig.ms.grant(RoleLockupTransfer, zeroAddress)
	if err := rig.ledger.Approve(creditAsset, aliceAddr, rig.engine.Vault(), big.NewInt(1000)); err != nil {
		t.Fatalf("approve credit: %v", err)
	}
	if err := rig.engine.Transfer(aliceAddr, bobAddr, big.NewInt(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
}

func TestCreditTransferConservation(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 1000)
	rig.ms.grant(RoleLockupTransfer, aliceAddr)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := rig.ledger.Approve(creditAsset, aliceAddr, rig.engine.Vault(), big.NewInt(1000)); err != nil {
		t.Fatalf("approve credit: %v", err)
	}

	rig.engine.SetBlockHeight(70)
	if err := rig.engine.Transfer(aliceAddr, bobAddr, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	sender, _, _ := rig.engine.GetUser(aliceAddr)
	receiver, _, _ := rig.engine.GetUser(bobAddr)
	if sender.LockedNaked.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected sender locked 600, got %s", sender.LockedNaked)
	}
	if receiver.LockedNaked.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected receiver locked 400, got %s", receiver.LockedNaked)
	}
	// Zero net change in total locked amount.
	total := new(big.Int).Add(sender.LockedNaked, receiver.LockedNaked)
	if total.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected total locked 1000, got %s", total)
	}
	// 400 * 5000 / 10000 = 200 credit moved, not minted.
	if got, _ := rig.ledger.BalanceOf(creditAsset, bobAddr); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected receiver credit 200, got %s", got)
	}
	if got, _ := rig.ledger.BalanceOf(creditAsset, aliceAddr); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected sender credit 300, got %s", got)
	}
	supply, _ := rig.ledger.TotalSupply(creditAsset)
	if supply.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected credit supply unchanged at 500, got %s", supply)
	}
	// Past the lock-free window the receiver's clock anchors at the transfer.
	if receiver.LockStartBlock != 70 {
		t.Fatalf("expected receiver lock start 70, got %d", receiver.LockStartBlock)
	}
	if receiver.LastActivityBlock != 70 {
		t.Fatalf("expected receiver activity 70, got %d", receiver.LastActivityBlock)
	}
}

func TestCreditTransferInsufficientLocked(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 100)
	rig.ms.grant(RoleLockupTransfer, aliceAddr)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := rig.engine.Transfer(aliceAddr, bobAddr, big.NewInt(200)); !errors.Is(err, ErrInsufficientLocked) {
		t.Fatalf("expected ErrInsufficientLocked, got %v", err)
	}
}

// reentrantPayoutLedger re-enters the engine from inside the payout transfer,
// the way a hostile token contract would.
type reentrantPayoutLedger struct {
	*ledger.Ledger
	engine *CreditEngine
	caller [20]byte
	inner  error
	fired  bool
}

func (l *reentrantPayoutLedger) Transfer(asset, from, to [20]byte, amount *big.Int) error {
	if !l.fired {
		l.fired = true
		l.inner = l.engine.Withdraw(l.caller, big.NewInt(1))
	}
	return l.Ledger.Transfer(asset, from, to, amount)
}

func TestCreditWithdrawRejectsNestedCall(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 1000)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	rig.engine.SetBlockHeight(200)

	hostile := &reentrantPayoutLedger{Ledger: rig.ledger, engine: rig.engine, caller: aliceAddr}
	rig.engine.SetLedger(hostile)

	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(400)); err != nil {
		t.Fatalf("outer withdraw: %v", err)
	}
	if !errors.Is(hostile.inner, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall from nested withdraw, got %v", hostile.inner)
	}
	// Only the outer withdrawal moved funds.
	if got, _ := rig.ledger.BalanceOf(depositAsset, aliceAddr); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected payout 400, got %s", got)
	}
	user, _, _ := rig.engine.GetUser(aliceAddr)
	if user.LockedNaked.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected locked 600, got %s", user.LockedNaked)
	}
	if got, _ := rig.ledger.BalanceOf(creditAsset, aliceAddr); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected remaining credit 300, got %s", got)
	}
}

func TestCreditWithdrawEmitsEvent(t *testing.T) {
	rig := newCreditRig(t, defaultCreditParams())
	rig.fundAndApprove(t, aliceAddr, 100)

	rig.engine.SetBlockHeight(10)
	if _, err := rig.engine.Deposit(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	rig.engine.SetBlockHeight(200)
	if err := rig.engine.Withdraw(aliceAddr, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	evt, ok := rig.rec.last().(events.LockupWithdrawn)
	if !ok {
		t.Fatalf("expected LockupWithdrawn, got %T", rig.rec.last())
	}
	if evt.CreditBurned.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected burned 50, got %s", evt.CreditBurned)
	}
}
