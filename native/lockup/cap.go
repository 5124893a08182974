package lockup

import "math/big"

// maxNakedDepositCap derives the current admissible naked-deposit ceiling.
//
// The circulating-supply estimate is the total supply of the deposit asset
// minus the treasury balance and minus the balances held by every pool in the
// registry. When the exclusions exceed total supply the estimate evaluates as
// zero rather than wrapping. The result is the smaller of the absolute cap and
// the basis-point fraction of the estimate.
func maxNakedDepositCap(ledger TokenLedger, pools PoolRegistry, asset, treasury [20]byte, absoluteCap *big.Int, circulatingBps uint64) (*big.Int, error) {
	if ledger == nil {
		return nil, errNilLedger
	}
	if pools == nil {
		return nil, errNilPoolList
	}
	supply, err := ledger.TotalSupply(asset)
	if err != nil {
		return nil, err
	}
	circulating := new(big.Int).Set(supply)

	treasuryHeld, err := ledger.BalanceOf(asset, treasury)
	if err != nil {
		return nil, err
	}
	circulating.Sub(circulating, treasuryHeld)

	count, err := pools.Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		pool, err := pools.PoolAt(i)
		if err != nil {
			return nil, err
		}
		held, err := ledger.BalanceOf(asset, pool)
		if err != nil {
			return nil, err
		}
		circulating.Sub(circulating, held)
	}
	if circulating.Sign() < 0 {
		circulating.SetInt64(0)
	}

	ratioCap := new(big.Int).Mul(circulating, new(big.Int).SetUint64(circulatingBps))
	ratioCap.Quo(ratioCap, basisPoints)

	cap := new(big.Int)
	if absoluteCap == nil || absoluteCap.Cmp(ratioCap) > 0 {
		cap.Set(ratioCap)
	} else {
		cap.Set(absoluteCap)
	}
	return cap, nil
}
