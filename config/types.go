package config

// Node carries process-level settings for the daemon.
type Node struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
}

// Chain derives block heights from wall-clock time. Height is
// (now - GenesisUnix) / BlockIntervalSeconds, floored at zero.
type Chain struct {
	GenesisUnix          int64  `toml:"GenesisUnix"`
	BlockIntervalSeconds uint64 `toml:"BlockIntervalSeconds"`
}

// RPC controls the HTTP surface.
type RPC struct {
	AdminJWTSecretEnv  string  `toml:"AdminJWTSecretEnv"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

// Roles seeds the role registry at startup. The Open switches are declarative
// and grant (or revoke) the role on the zero address, which the engines treat
// as open to every caller; named grants are additive.
type Roles struct {
	OpenDeposits  bool     `toml:"OpenDeposits"`
	Depositors    []string `toml:"Depositors"`
	OpenTransfers bool     `toml:"OpenTransfers"`
	Transferers   []string `toml:"Transferers"`
}

// SplitSeed declares one split configuration applied at startup.
type SplitSeed struct {
	ID                      uint32 `toml:"ID"`
	CreditMultiplierPercent uint32 `toml:"CreditMultiplierPercent"`
	LockFreeWindowBlocks    uint64 `toml:"LockFreeWindowBlocks"`
	PerUserNakedCap         string `toml:"PerUserNakedCap"`
}

// SplitPool configures the LP-splitting pool variant. Monetary values are
// decimal strings in the token's smallest denomination; addresses are hex.
type SplitPool struct {
	Enabled             bool        `toml:"Enabled"`
	StartBlock          uint64      `toml:"StartBlock"`
	LockDurationBlocks  uint64      `toml:"LockDurationBlocks"`
	AbsoluteCap         string      `toml:"AbsoluteCap"`
	CirculatingCapBps   uint64      `toml:"CirculatingCapBps"`
	Treasury            string      `toml:"Treasury"`
	DepositAsset        string      `toml:"DepositAsset"`
	LPAsset             string      `toml:"LPAsset"`
	CreditAsset         string      `toml:"CreditAsset"`
	StableAsset         string      `toml:"StableAsset"`
	SwapDeadlineSeconds int64       `toml:"SwapDeadlineSeconds"`
	Splits              []SplitSeed `toml:"Splits"`
}

// CreditPool configures the credit-burning pool variant.
type CreditPool struct {
	Enabled            bool   `toml:"Enabled"`
	StartBlock         uint64 `toml:"StartBlock"`
	LockDurationBlocks uint64 `toml:"LockDurationBlocks"`
	LockFreeBlocks     uint64 `toml:"LockFreeBlocks"`
	MultiplierBps      uint64 `toml:"MultiplierBps"`
	AbsoluteCap        string `toml:"AbsoluteCap"`
	CirculatingCapBps  uint64 `toml:"CirculatingCapBps"`
	UnlockOverride     bool   `toml:"UnlockOverride"`
	Treasury           string `toml:"Treasury"`
	DepositAsset       string `toml:"DepositAsset"`
	CreditAsset        string `toml:"CreditAsset"`
}

// Config is the root of the daemon configuration file.
type Config struct {
	Node           Node       `toml:"Node"`
	Chain          Chain      `toml:"Chain"`
	RPC            RPC        `toml:"RPC"`
	Roles          Roles      `toml:"Roles"`
	SplitPool      SplitPool  `toml:"SplitPool"`
	CreditPool     CreditPool `toml:"CreditPool"`
	PoolExclusions []string   `toml:"PoolExclusions"`
}
