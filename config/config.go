package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"lockvault/native/lockup"
)

// Load loads the configuration from the given path. A missing file is
// replaced by a persisted default so a fresh checkout starts cleanly.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Node.ListenAddress) == "" {
		cfg.Node.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.Node.DataDir) == "" {
		cfg.Node.DataDir = "./lockvault-data"
	}
	if strings.TrimSpace(cfg.Node.Environment) == "" {
		cfg.Node.Environment = "local"
	}
	if cfg.Chain.BlockIntervalSeconds == 0 {
		cfg.Chain.BlockIntervalSeconds = 12
	}
	if cfg.RPC.RateLimitPerSecond <= 0 {
		cfg.RPC.RateLimitPerSecond = 25
	}
	if cfg.RPC.RateLimitBurst <= 0 {
		cfg.RPC.RateLimitBurst = 50
	}
	if strings.TrimSpace(cfg.RPC.AdminJWTSecretEnv) == "" {
		cfg.RPC.AdminJWTSecretEnv = "LOCKVAULT_ADMIN_JWT_SECRET"
	}
	if cfg.SplitPool.SwapDeadlineSeconds <= 0 {
		cfg.SplitPool.SwapDeadlineSeconds = 600
	}
}

// createDefault creates and saves a default configuration file. The starter
// file opens both member roles; production deployments narrow them to explicit
// grants.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Roles.OpenDeposits = true
	cfg.Roles.OpenTransfers = true
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func parseAmount(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: %s: invalid amount %q", field, raw)
	}
	return value, nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return [20]byte{}, fmt.Errorf("config: %s: address required", field)
	}
	if !ethcommon.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("config: %s: invalid address %q", field, raw)
	}
	return ethcommon.HexToAddress(raw), nil
}

// SplitParams converts the split-pool section into engine parameters.
func (c *Config) SplitParams() (lockup.Params, error) {
	p := lockup.Params{
		StartBlock:          c.SplitPool.StartBlock,
		LockDurationBlocks:  c.SplitPool.LockDurationBlocks,
		CirculatingCapBps:   c.SplitPool.CirculatingCapBps,
		SwapDeadlineSeconds: c.SplitPool.SwapDeadlineSeconds,
	}
	var err error
	if p.AbsoluteCap, err = parseAmount("SplitPool.AbsoluteCap", c.SplitPool.AbsoluteCap); err != nil {
		return p, err
	}
	if p.Treasury, err = parseAddress("SplitPool.Treasury", c.SplitPool.Treasury); err != nil {
		return p, err
	}
	if p.DepositAsset, err = parseAddress("SplitPool.DepositAsset", c.SplitPool.DepositAsset); err != nil {
		return p, err
	}
	if p.LPAsset, err = parseAddress("SplitPool.LPAsset", c.SplitPool.LPAsset); err != nil {
		return p, err
	}
	if p.CreditAsset, err = parseAddress("SplitPool.CreditAsset", c.SplitPool.CreditAsset); err != nil {
		return p, err
	}
	if strings.TrimSpace(c.SplitPool.StableAsset) != "" {
		if p.StableAsset, err = parseAddress("SplitPool.StableAsset", c.SplitPool.StableAsset); err != nil {
			return p, err
		}
		p.SwapPath = [][20]byte{p.StableAsset, p.DepositAsset}
	}
	return p, nil
}

// CreditParams converts the credit-pool section into engine parameters.
func (c *Config) CreditParams() (lockup.CreditParams, error) {
	p := lockup.CreditParams{
		StartBlock:         c.CreditPool.StartBlock,
		LockDurationBlocks: c.CreditPool.LockDurationBlocks,
		LockFreeBlocks:     c.CreditPool.LockFreeBlocks,
		MultiplierBps:      c.CreditPool.MultiplierBps,
		CirculatingCapBps:  c.CreditPool.CirculatingCapBps,
		UnlockOverride:     c.CreditPool.UnlockOverride,
	}
	var err error
	if p.AbsoluteCap, err = parseAmount("CreditPool.AbsoluteCap", c.CreditPool.AbsoluteCap); err != nil {
		return p, err
	}
	if p.Treasury, err = parseAddress("CreditPool.Treasury", c.CreditPool.Treasury); err != nil {
		return p, err
	}
	if p.DepositAsset, err = parseAddress("CreditPool.DepositAsset", c.CreditPool.DepositAsset); err != nil {
		return p, err
	}
	if p.CreditAsset, err = parseAddress("CreditPool.CreditAsset", c.CreditPool.CreditAsset); err != nil {
		return p, err
	}
	return p, nil
}

// SeedSplits converts the declared split seeds into engine configurations.
func (c *Config) SeedSplits() ([]*lockup.SplitConfig, error) {
	splits := make([]*lockup.SplitConfig, 0, len(c.SplitPool.Splits))
	for _, seed := range c.SplitPool.Splits {
		cap, err := parseAmount(fmt.Sprintf("SplitPool.Splits[%d].PerUserNakedCap", seed.ID), seed.PerUserNakedCap)
		if err != nil {
			return nil, err
		}
		split := &lockup.SplitConfig{
			ID:                      seed.ID,
			CreditMultiplierPercent: seed.CreditMultiplierPercent,
			LockFreeWindowBlocks:    seed.LockFreeWindowBlocks,
			PerUserNakedCap:         cap,
		}
		if err := split.Validate(); err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}
	return splits, nil
}

// DepositorAddresses parses the named deposit-allowlist grants.
func (c *Config) DepositorAddresses() ([][20]byte, error) {
	return parseAddressList("Roles.Depositors", c.Roles.Depositors)
}

// TransferAddresses parses the named claim-transfer grants.
func (c *Config) TransferAddresses() ([][20]byte, error) {
	return parseAddressList("Roles.Transferers", c.Roles.Transferers)
}

func parseAddressList(field string, raw []string) ([][20]byte, error) {
	addrs := make([][20]byte, 0, len(raw))
	for i, entry := range raw {
		addr, err := parseAddress(fmt.Sprintf("%s[%d]", field, i), entry)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// ExclusionAddresses parses the additional circulating-supply exclusions.
func (c *Config) ExclusionAddresses() ([][20]byte, error) {
	return parseAddressList("PoolExclusions", c.PoolExclusions)
}
