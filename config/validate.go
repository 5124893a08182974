package config

import "fmt"

// Validate rejects configurations the daemon cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if cfg.Chain.BlockIntervalSeconds == 0 {
		return fmt.Errorf("chain: BlockIntervalSeconds must be positive")
	}
	if cfg.SplitPool.Enabled {
		if cfg.SplitPool.CirculatingCapBps > 10_000 {
			return fmt.Errorf("splitpool: CirculatingCapBps exceeds 10000")
		}
		if _, err := cfg.SplitParams(); err != nil {
			return err
		}
		if _, err := cfg.SeedSplits(); err != nil {
			return err
		}
	}
	if cfg.CreditPool.Enabled {
		if cfg.CreditPool.CirculatingCapBps > 10_000 {
			return fmt.Errorf("creditpool: CirculatingCapBps exceeds 10000")
		}
		if cfg.CreditPool.MultiplierBps == 0 {
			return fmt.Errorf("creditpool: MultiplierBps must be positive")
		}
		if _, err := cfg.CreditParams(); err != nil {
			return err
		}
	}
	if _, err := cfg.DepositorAddresses(); err != nil {
		return err
	}
	if _, err := cfg.TransferAddresses(); err != nil {
		return err
	}
	if _, err := cfg.ExclusionAddresses(); err != nil {
		return err
	}
	return nil
}
