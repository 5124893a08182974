package events

import "math/big"

const (
	// TypeLockupDeposited captures a locked deposit and the credit minted for it.
	TypeLockupDeposited = "lockup.deposited"
	// TypeLockupWithdrawn captures a lock release and the credit burned for it.
	TypeLockupWithdrawn = "lockup.withdrawn"
	// TypeLockupClaimTransferred is emitted when a locked claim moves between members.
	TypeLockupClaimTransferred = "lockup.claimTransferred"
	// TypeLockupSplitConfigured is emitted when a split configuration is created or updated.
	TypeLockupSplitConfigured = "lockup.splitConfigured"
	// TypeLockupParamUpdated is emitted when an economically sensitive parameter changes.
	TypeLockupParamUpdated = "lockup.paramUpdated"
	// TypeLockupPauseToggled is emitted when the deposit surface is paused or resumed.
	TypeLockupPauseToggled = "lockup.pauseToggled"
	// TypeLockupTokensRecovered is emitted when a non-managed token is swept by the admin.
	TypeLockupTokensRecovered = "lockup.tokensRecovered"
)

// LockupDeposited captures the realised amounts of a successful deposit.
type LockupDeposited struct {
	Account        [20]byte
	SplitID        uint32
	Amount         *big.Int
	NakedAmount    *big.Int
	LPAmount       *big.Int
	CreditMinted   *big.Int
	LockStartBlock uint64
}

// EventType satisfies the Event interface.
func (LockupDeposited) EventType() string { return TypeLockupDeposited }

// LockupWithdrawn captures the payout and credit burn of a withdrawal.
type LockupWithdrawn struct {
	Account      [20]byte
	Amount       *big.Int
	CreditBurned *big.Int
}

// EventType satisfies the Event interface.
func (LockupWithdrawn) EventType() string { return TypeLockupWithdrawn }

// LockupClaimTransferred captures a locked-claim move between two members.
type LockupClaimTransferred struct {
	From        [20]byte
	To          [20]byte
	Amount      *big.Int
	CreditMoved *big.Int
}

// EventType satisfies the Event interface.
func (LockupClaimTransferred) EventType() string { return TypeLockupClaimTransferred }

// LockupSplitConfigured captures a split registry mutation.
type LockupSplitConfigured struct {
	SplitID                 uint32
	CreditMultiplierPercent uint32
	LockFreeWindowBlocks    uint64
	PerUserNakedCap         *big.Int
}

// EventType satisfies the Event interface.
func (LockupSplitConfigured) EventType() string { return TypeLockupSplitConfigured }

// LockupParamUpdated records a single administrative parameter change.
type LockupParamUpdated struct {
	Param string
	Value string
}

// EventType satisfies the Event interface.
func (LockupParamUpdated) EventType() string { return TypeLockupParamUpdated }

// LockupPauseToggled records a pause switch flip on the deposit surface.
type LockupPauseToggled struct {
	Paused bool
}

// EventType satisfies the Event interface.
func (LockupPauseToggled) EventType() string { return TypeLockupPauseToggled }

// LockupTokensRecovered records an administrative sweep of a wrong token.
type LockupTokensRecovered struct {
	Token     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// EventType satisfies the Event interface.
func (LockupTokensRecovered) EventType() string { return TypeLockupTokensRecovered }
