package lockup

import "errors"

var (
	errNilState       = errors.New("lockup engine: state not configured")
	errNilLedger      = errors.New("lockup engine: token ledger not configured")
	errNilZapper      = errors.New("lockup engine: zapper not configured")
	errNilSwapRouter  = errors.New("lockup engine: swap router not configured")
	errNilPoolList    = errors.New("lockup engine: pool registry not configured")
	errParamsRequired = errors.New("lockup engine: params not configured")

	// ErrReentrantCall is returned when a guarded mutating operation is
	// entered while another one is still in flight.
	ErrReentrantCall = errors.New("lockup engine: reentrant call")
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("lockup engine: amount must be positive")
	// ErrNotStarted rejects calls before the configured start block.
	ErrNotStarted = errors.New("lockup engine: start block not reached")
	// ErrAlreadyStarted rejects start-block mutations once deposits opened.
	ErrAlreadyStarted = errors.New("lockup engine: pool already started")
	// ErrNotAllowlisted rejects callers outside the depositor allowlist.
	ErrNotAllowlisted = errors.New("lockup engine: caller not allowlisted")
	// ErrUnauthorized rejects administrative calls without the admin role.
	ErrUnauthorized = errors.New("lockup engine: caller lacks required role")
	// ErrSplitNotConfigured rejects deposits against an unknown or invalid split.
	ErrSplitNotConfigured = errors.New("lockup engine: split not configured")
	// ErrSplitMismatch rejects deposits that do not match the caller's bound split.
	ErrSplitMismatch = errors.New("lockup engine: account bound to a different split")
	// ErrSplitBound rejects attempts to rebind an account's split.
	ErrSplitBound = errors.New("lockup engine: split binding is write-once")
	// ErrDepositCapExceeded rejects deposits above the dynamic naked-deposit ceiling.
	ErrDepositCapExceeded = errors.New("lockup engine: naked deposit cap exceeded")
	// ErrUserCapExceeded rejects deposits above the per-user split cap.
	ErrUserCapExceeded = errors.New("lockup engine: per-user naked cap exceeded")
	// ErrInsufficientLocked rejects withdrawals and transfers above the locked balance.
	ErrInsufficientLocked = errors.New("lockup engine: insufficient locked balance")
	// ErrStillLocked rejects withdrawals before lock expiry without the unlock override.
	ErrStillLocked = errors.New("lockup engine: lock period not elapsed")
	// ErrManagedToken rejects recovery sweeps that target a managed asset.
	ErrManagedToken = errors.New("lockup engine: cannot recover a managed token")
	// ErrSwapOutputBelowMin rejects swap results under the caller-supplied minimum.
	ErrSwapOutputBelowMin = errors.New("lockup engine: swap output below minimum")
	// ErrInvalidSplit rejects split configurations that fail validation.
	ErrInvalidSplit = errors.New("lockup engine: invalid split configuration")
	// ErrZeroAddress rejects parameter updates pointing at the zero address.
	ErrZeroAddress = errors.New("lockup engine: zero address not allowed")
	// ErrSelfTransfer rejects claim transfers from an account to itself.
	ErrSelfTransfer = errors.New("lockup engine: cannot transfer claim to self")
)
