package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.ListenAddress != ":8545" {
		t.Fatalf("expected default listen address, got %q", cfg.Node.ListenAddress)
	}
	if cfg.Chain.BlockIntervalSeconds != 12 {
		t.Fatalf("expected default block interval, got %d", cfg.Chain.BlockIntervalSeconds)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default file persisted: %v", err)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
PoolExclusions = ["0x0000000000000000000000000000000000000099"]

[Node]
ListenAddress = ":9000"
DataDir = "/tmp/lockvault"
Environment = "staging"

[Chain]
GenesisUnix = 1700000000
BlockIntervalSeconds = 6

[RPC]
RateLimitPerSecond = 10.0
RateLimitBurst = 20

[SplitPool]
Enabled = true
StartBlock = 100
LockDurationBlocks = 10000
AbsoluteCap = "500000000000000000000"
CirculatingCapBps = 2500
Treasury = "0x0000000000000000000000000000000000000050"
DepositAsset = "0x0000000000000000000000000000000000000001"
LPAsset = "0x0000000000000000000000000000000000000002"
CreditAsset = "0x0000000000000000000000000000000000000003"
StableAsset = "0x0000000000000000000000000000000000000004"
SwapDeadlineSeconds = 300

[[SplitPool.Splits]]
ID = 2500
CreditMultiplierPercent = 150
LockFreeWindowBlocks = 100
PerUserNakedCap = "1000000000000000000"

[CreditPool]
Enabled = true
StartBlock = 50
LockDurationBlocks = 20000
LockFreeBlocks = 500
MultiplierBps = 5000
AbsoluteCap = "1000000000000000000000"
CirculatingCapBps = 10000
Treasury = "0x0000000000000000000000000000000000000050"
DepositAsset = "0x0000000000000000000000000000000000000001"
CreditAsset = "0x0000000000000000000000000000000000000003"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	params, err := cfg.SplitParams()
	if err != nil {
		t.Fatalf("split params: %v", err)
	}
	want, _ := new(big.Int).SetString("500000000000000000000", 10)
	if params.AbsoluteCap.Cmp(want) != 0 {
		t.Fatalf("unexpected absolute cap %s", params.AbsoluteCap)
	}
	if params.Treasury[19] != 0x50 {
		t.Fatalf("unexpected treasury %x", params.Treasury)
	}
	if len(params.SwapPath) != 2 {
		t.Fatalf("expected stable swap path, got %d hops", len(params.SwapPath))
	}

	credit, err := cfg.CreditParams()
	if err != nil {
		t.Fatalf("credit params: %v", err)
	}
	if credit.MultiplierBps != 5000 || credit.LockFreeBlocks != 500 {
		t.Fatalf("unexpected credit params: %+v", credit)
	}

	splits, err := cfg.SeedSplits()
	if err != nil {
		t.Fatalf("seed splits: %v", err)
	}
	if len(splits) != 1 || splits[0].ID != 2500 || splits[0].CreditMultiplierPercent != 150 {
		t.Fatalf("unexpected splits: %+v", splits)
	}

	excl, err := cfg.ExclusionAddresses()
	if err != nil {
		t.Fatalf("exclusions: %v", err)
	}
	if len(excl) != 1 || excl[0][19] != 0x99 {
		t.Fatalf("unexpected exclusions: %x", excl)
	}
}

func TestLoadRolesSection(t *testing.T) {
	path := writeConfig(t, `
[Chain]
BlockIntervalSeconds = 6

[Roles]
OpenDeposits = true
Depositors = ["0x00000000000000000000000000000000000000a1"]
OpenTransfers = false
Transferers = ["0x00000000000000000000000000000000000000b1", "0x00000000000000000000000000000000000000b2"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Roles.OpenDeposits || cfg.Roles.OpenTransfers {
		t.Fatalf("unexpected role switches: %+v", cfg.Roles)
	}
	depositors, err := cfg.DepositorAddresses()
	if err != nil {
		t.Fatalf("depositors: %v", err)
	}
	if len(depositors) != 1 || depositors[0][19] != 0xA1 {
		t.Fatalf("unexpected depositors: %x", depositors)
	}
	transferers, err := cfg.TransferAddresses()
	if err != nil {
		t.Fatalf("transferers: %v", err)
	}
	if len(transferers) != 2 || transferers[1][19] != 0xB2 {
		t.Fatalf("unexpected transferers: %x", transferers)
	}
}

func TestDefaultConfigOpensMemberRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Roles.OpenDeposits || !cfg.Roles.OpenTransfers {
		t.Fatalf("expected starter file to open member roles: %+v", cfg.Roles)
	}
}

func TestLoadRejectsBadRoleAddress(t *testing.T) {
	path := writeConfig(t, `
[Chain]
BlockIntervalSeconds = 6

[Roles]
Depositors = ["not-an-address"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected rejection of invalid depositor address")
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := writeConfig(t, `
[Chain]
BlockIntervalSeconds = 6

[SplitPool]
Enabled = true
Treasury = "not-an-address"
DepositAsset = "0x0000000000000000000000000000000000000001"
LPAsset = "0x0000000000000000000000000000000000000002"
CreditAsset = "0x0000000000000000000000000000000000000003"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected rejection of invalid address")
	}
}

func TestLoadRejectsBadAmount(t *testing.T) {
	path := writeConfig(t, `
[Chain]
BlockIntervalSeconds = 6

[CreditPool]
Enabled = true
MultiplierBps = 100
AbsoluteCap = "-5"
Treasury = "0x0000000000000000000000000000000000000050"
DepositAsset = "0x0000000000000000000000000000000000000001"
CreditAsset = "0x0000000000000000000000000000000000000003"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected rejection of negative amount")
	}
}

func TestLoadRejectsExcessiveBps(t *testing.T) {
	path := writeConfig(t, `
[Chain]
BlockIntervalSeconds = 6

[CreditPool]
Enabled = true
MultiplierBps = 100
CirculatingCapBps = 10001
Treasury = "0x0000000000000000000000000000000000000050"
DepositAsset = "0x0000000000000000000000000000000000000001"
CreditAsset = "0x0000000000000000000000000000000000000003"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected rejection of bps above 10000")
	}
}
