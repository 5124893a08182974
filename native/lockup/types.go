package lockup

import (
	"fmt"
	"math/big"
)

// UserAccount tracks the locked position of a single member address.
//
// All monetary values are expressed in the smallest denomination of the
// respective token (wei-style integers).
type UserAccount struct {
	Address           [20]byte `json:"address"`
	LockedNaked       *big.Int `json:"lockedNaked"`
	LockedLP          *big.Int `json:"lockedLP"`
	CreditBalance     *big.Int `json:"creditBalance"`
	SplitID           uint32   `json:"splitId"`
	SplitBound        bool     `json:"splitBound"`
	LockStartBlock    uint64   `json:"lockStartBlock"`
	LastActivityBlock uint64   `json:"lastActivityBlock"`
}

// Normalize ensures all pointer fields are non-nil for ease of use. The method
// returns the receiver to allow chaining.
func (u *UserAccount) Normalize() *UserAccount {
	if u == nil {
		return nil
	}
	if u.LockedNaked == nil {
		u.LockedNaked = big.NewInt(0)
	}
	if u.LockedLP == nil {
		u.LockedLP = big.NewInt(0)
	}
	if u.CreditBalance == nil {
		u.CreditBalance = big.NewInt(0)
	}
	return u
}

// Clone produces a deep copy of the account record.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	clone := &UserAccount{
		Address:           u.Address,
		SplitID:           u.SplitID,
		SplitBound:        u.SplitBound,
		LockStartBlock:    u.LockStartBlock,
		LastActivityBlock: u.LastActivityBlock,
	}
	if u.LockedNaked != nil {
		clone.LockedNaked = new(big.Int).Set(u.LockedNaked)
	}
	if u.LockedLP != nil {
		clone.LockedLP = new(big.Int).Set(u.LockedLP)
	}
	if u.CreditBalance != nil {
		clone.CreditBalance = new(big.Int).Set(u.CreditBalance)
	}
	return clone.Normalize()
}

// SplitConfig describes one deposit/LP routing configuration. The identifier
// doubles as the basis-point fraction of every deposit routed into the LP leg.
type SplitConfig struct {
	ID                      uint32   `json:"id"`
	CreditMultiplierPercent uint32   `json:"creditMultiplierPercent"`
	LockFreeWindowBlocks    uint64   `json:"lockFreeWindowBlocks"`
	PerUserNakedCap         *big.Int `json:"perUserNakedCap"`
	TotalNakedDeposited     *big.Int `json:"totalNakedDeposited"`
}

// Valid reports whether deposits may be taken against the split. Unconfigured
// splits carry a zero multiplier and are rejected.
func (s *SplitConfig) Valid() bool {
	return s != nil && s.CreditMultiplierPercent > 0
}

// Normalize ensures all pointer fields are non-nil.
func (s *SplitConfig) Normalize() *SplitConfig {
	if s == nil {
		return nil
	}
	if s.PerUserNakedCap == nil {
		s.PerUserNakedCap = big.NewInt(0)
	}
	if s.TotalNakedDeposited == nil {
		s.TotalNakedDeposited = big.NewInt(0)
	}
	return s
}

// Clone produces a deep copy of the split configuration.
func (s *SplitConfig) Clone() *SplitConfig {
	if s == nil {
		return nil
	}
	clone := &SplitConfig{
		ID:                      s.ID,
		CreditMultiplierPercent: s.CreditMultiplierPercent,
		LockFreeWindowBlocks:    s.LockFreeWindowBlocks,
	}
	if s.PerUserNakedCap != nil {
		clone.PerUserNakedCap = new(big.Int).Set(s.PerUserNakedCap)
	}
	if s.TotalNakedDeposited != nil {
		clone.TotalNakedDeposited = new(big.Int).Set(s.TotalNakedDeposited)
	}
	return clone.Normalize()
}

// Validate performs static validation of a split submitted for configuration.
func (s *SplitConfig) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil split", ErrInvalidSplit)
	}
	if s.ID > 10_000 {
		return fmt.Errorf("%w: id %d exceeds 10000 basis points", ErrInvalidSplit, s.ID)
	}
	if s.CreditMultiplierPercent == 0 {
		return fmt.Errorf("%w: credit multiplier must be positive", ErrInvalidSplit)
	}
	if s.PerUserNakedCap != nil && s.PerUserNakedCap.Sign() < 0 {
		return fmt.Errorf("%w: per-user cap must not be negative", ErrInvalidSplit)
	}
	return nil
}

// Params configures the split-variant engine. Mutable fields change through
// the role-checked administrative surface only.
type Params struct {
	StartBlock          uint64
	LockDurationBlocks  uint64
	AbsoluteCap         *big.Int
	CirculatingCapBps   uint64
	Treasury            [20]byte
	DepositAsset        [20]byte
	LPAsset             [20]byte
	CreditAsset         [20]byte
	StableAsset         [20]byte
	SwapPath            [][20]byte
	SwapDeadlineSeconds int64
}

// Normalize fills nil pointer fields and defaults the swap deadline.
func (p *Params) Normalize() *Params {
	if p == nil {
		return nil
	}
	if p.AbsoluteCap == nil {
		p.AbsoluteCap = big.NewInt(0)
	}
	if p.SwapDeadlineSeconds <= 0 {
		p.SwapDeadlineSeconds = 600
	}
	return p
}

// Validate performs static validation of the engine parameters.
func (p *Params) Validate() error {
	if p == nil {
		return errParamsRequired
	}
	if p.CirculatingCapBps > 10_000 {
		return fmt.Errorf("lockup engine: circulating cap %d exceeds 10000 basis points", p.CirculatingCapBps)
	}
	if p.AbsoluteCap != nil && p.AbsoluteCap.Sign() < 0 {
		return fmt.Errorf("lockup engine: absolute cap must not be negative")
	}
	if p.Treasury == ([20]byte{}) {
		return fmt.Errorf("lockup engine: treasury address must be configured")
	}
	return nil
}

// CreditParams configures the credit-burning engine variant.
type CreditParams struct {
	StartBlock         uint64
	LockDurationBlocks uint64
	LockFreeBlocks     uint64
	MultiplierBps      uint64
	AbsoluteCap        *big.Int
	CirculatingCapBps  uint64
	UnlockOverride     bool
	Treasury           [20]byte
	DepositAsset       [20]byte
	CreditAsset        [20]byte
}

// Normalize fills nil pointer fields.
func (p *CreditParams) Normalize() *CreditParams {
	if p == nil {
		return nil
	}
	if p.AbsoluteCap == nil {
		p.AbsoluteCap = big.NewInt(0)
	}
	return p
}

// Validate performs static validation of the engine parameters.
func (p *CreditParams) Validate() error {
	if p == nil {
		return errParamsRequired
	}
	if p.CirculatingCapBps > 10_000 {
		return fmt.Errorf("lockup engine: circulating cap %d exceeds 10000 basis points", p.CirculatingCapBps)
	}
	if p.MultiplierBps == 0 {
		return fmt.Errorf("lockup engine: credit multiplier must be positive")
	}
	if p.AbsoluteCap != nil && p.AbsoluteCap.Sign() < 0 {
		return fmt.Errorf("lockup engine: absolute cap must not be negative")
	}
	if p.Treasury == ([20]byte{}) {
		return fmt.Errorf("lockup engine: treasury address must be configured")
	}
	return nil
}

// DepositReceipt reports the realised amounts of a successful deposit.
type DepositReceipt struct {
	SplitID        uint32   `json:"splitId"`
	Amount         *big.Int `json:"amount"`
	NakedAmount    *big.Int `json:"nakedAmount"`
	LPAmount       *big.Int `json:"lpAmount"`
	CreditMinted   *big.Int `json:"creditMinted"`
	LockStartBlock uint64   `json:"lockStartBlock"`
}
