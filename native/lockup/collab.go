package lockup

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Role identifiers evaluated against the state role registry. Granting a role
// to the zero address opens it to every caller.
const (
	RoleLockupAdmin     = "ROLE_LOCKUP_ADMIN"
	RoleLockupDepositor = "ROLE_LOCKUP_DEPOSITOR"
	RoleLockupTransfer  = "ROLE_LOCKUP_TRANSFER"
)

const (
	moduleName       = "lockup"
	creditModuleName = "creditpool"
)

var (
	basisPoints = big.NewInt(10_000)
	oneHundred  = big.NewInt(100)

	// maxAllowance is granted to collaborators that pull custody on the
	// engine's behalf (zapper, swap router).
	maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	zeroAddress [20]byte
)

// TokenLedger is the fungible-balance collaborator consumed by the engines.
// Transfers performed by an engine always spend from its own vault address;
// TransferFrom draws on an allowance granted to the spender.
type TokenLedger interface {
	BalanceOf(asset, holder [20]byte) (*big.Int, error)
	TotalSupply(asset [20]byte) (*big.Int, error)
	Transfer(asset, from, to [20]byte, amount *big.Int) error
	TransferFrom(asset, spender, from, to [20]byte, amount *big.Int) error
	Approve(asset, owner, spender [20]byte, amount *big.Int) error
	Mint(asset, to [20]byte, amount *big.Int) error
	BurnFrom(asset, holder [20]byte, amount *big.Int) error
}

// SwapRouter converts one asset into another along a conversion path. Execute
// must settle before the supplied unix deadline or fail.
type SwapRouter interface {
	Quote(amountIn *big.Int, path [][20]byte) ([]*big.Int, error)
	Execute(amountIn, minAmountOut *big.Int, path [][20]byte, recipient [20]byte, deadline int64) ([]*big.Int, error)
}

// Zapper turns an amount of a single asset into a paired liquidity asset,
// crediting the caller. Results are trusted only via custody balance deltas.
type Zapper interface {
	Zap(sourceAsset [20]byte, amount *big.Int, pairAsset [20]byte) error
}

// PoolRegistry enumerates external pools whose deposit-asset custody is
// excluded from the circulating-supply estimate.
type PoolRegistry interface {
	Count() (int, error)
	PoolAt(i int) ([20]byte, error)
}

type engineState interface {
	GetUser(addr [20]byte) (*UserAccount, bool, error)
	PutUser(*UserAccount) error
	GetSplit(id uint32) (*SplitConfig, bool, error)
	PutSplit(*SplitConfig) error
	ListSplits() ([]*SplitConfig, error)
	HasRole(role string, addr []byte) bool
	SetPaused(module string, paused bool) error
}

// VaultAddress derives the custody address used by the named pool. The
// derivation is deterministic so off-chain observers can reconstruct it.
func VaultAddress(pool string) [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("lockvault/vault/" + pool))
	copy(addr[:], hash[12:])
	return addr
}

// hasOpenRole reports whether addr carries the role directly or the role has
// been opened to everyone by granting it to the zero address.
func hasOpenRole(st engineState, role string, addr [20]byte) bool {
	if st == nil {
		return false
	}
	if st.HasRole(role, zeroAddress[:]) {
		return true
	}
	return st.HasRole(role, addr[:])
}
