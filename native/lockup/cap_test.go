package lockup

import (
	"math/big"
	"testing"

	"lockvault/native/ledger"
)

func capFixture(t *testing.T) (*ledger.Ledger, [20]byte, [20]byte, [20]byte) {
	t.Helper()
	ms := newMemStore()
	lgr := ledger.New(ms)
	asset := makeAddr(0x01)
	treasury := makeAddr(0x50)
	pool := makeAddr(0x60)
	return lgr, asset, treasury, pool
}

func TestMaxNakedDepositCapExclusions(t *testing.T) {
	lgr, asset, treasury, pool := capFixture(t)
	mustMint := func(to [20]byte, amount int64) {
		if err := lgr.Mint(asset, to, big.NewInt(amount)); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	mustMint(makeAddr(0x99), 700)
	mustMint(treasury, 200)
	mustMint(pool, 100)

	pools := NewStaticPoolRegistry([][20]byte{pool})

	// circulating = 1000 - 200 - 100 = 700; ratio = 700*5000/10000 = 350.
	cap, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(10_000), 5000)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if cap.Cmp(big.NewInt(350)) != 0 {
		t.Fatalf("expected 350, got %s", cap)
	}

	// The absolute cap wins when smaller.
	cap, err = maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(300), 5000)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if cap.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected 300, got %s", cap)
	}
}

func TestMaxNakedDepositCapUnderflowClampsToZero(t *testing.T) {
	lgr, asset, treasury, pool := capFixture(t)
	// Treasury alone holds the full supply; the pool exclusion would push the
	// estimate negative. The cap must evaluate as if circulating were zero.
	if err := lgr.Mint(asset, treasury, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := lgr.Mint(asset, pool, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// Register the pool twice to force exclusions past total supply.
	pools := NewStaticPoolRegistry([][20]byte{pool, pool})

	cap, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(10_000), 10_000)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if cap.Sign() != 0 {
		t.Fatalf("expected zero cap, got %s", cap)
	}
}

func TestMaxNakedDepositCapMonotonicity(t *testing.T) {
	lgr, asset, treasury, _ := capFixture(t)
	if err := lgr.Mint(asset, makeAddr(0x99), big.NewInt(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	pools := NewStaticPoolRegistry(nil)

	// Non-increasing as the basis-point fraction shrinks.
	prev := new(big.Int).Set(big.NewInt(-1))
	for _, bps := range []uint64{10_000, 7500, 5000, 2500, 0} {
		cap, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(1_000_000), bps)
		if err != nil {
			t.Fatalf("cap: %v", err)
		}
		if prev.Sign() >= 0 && cap.Cmp(prev) > 0 {
			t.Fatalf("cap grew as bps shrank: %s > %s", cap, prev)
		}
		prev.Set(cap)
	}

	// Non-decreasing as the absolute cap grows.
	prev.SetInt64(-1)
	for _, abs := range []int64{0, 100, 5000, 50_000} {
		cap, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(abs), 5000)
		if err != nil {
			t.Fatalf("cap: %v", err)
		}
		if prev.Sign() >= 0 && cap.Cmp(prev) < 0 {
			t.Fatalf("cap shrank as absolute cap grew: %s < %s", cap, prev)
		}
		prev.Set(cap)
	}
}

func TestMaxNakedDepositCapIdempotent(t *testing.T) {
	lgr, asset, treasury, pool := capFixture(t)
	if err := lgr.Mint(asset, makeAddr(0x99), big.NewInt(12_345)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	pools := NewStaticPoolRegistry([][20]byte{pool})

	first, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(9999), 3333)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	second, err := maxNakedDepositCap(lgr, pools, asset, treasury, big.NewInt(9999), 3333)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if first.Cmp(second) != 0 {
		t.Fatalf("expected identical results, got %s then %s", first, second)
	}
}
