// Package amm provides fixed-rate development implementations of the swap and
// zap collaborators. They let the daemon and integration tests run against the
// in-process token ledger without a real market maker; they implement no
// pricing algorithm.
package amm

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"lockvault/native/lockup"
)

var (
	errNilLedger    = errors.New("static amm: token ledger not configured")
	errEmptyPath    = errors.New("static amm: conversion path required")
	errBadAmount    = errors.New("static amm: amount must be positive")
	errPastDeadline = errors.New("static amm: deadline exceeded")
	errBelowMin     = errors.New("static amm: output below minimum")
)

// StaticRouter converts along a path at a fixed numerator/denominator rate.
// Output is paid from the router's own pre-funded reserve, input is pulled
// from the recipient (the engines always swap into their own vault).
type StaticRouter struct {
	ledger  lockup.TokenLedger
	addr    [20]byte
	rateNum *big.Int
	rateDen *big.Int
	nowFn   func() int64
}

// NewStaticRouter builds a router paying out at rateNum/rateDen.
func NewStaticRouter(ledger lockup.TokenLedger, addr [20]byte, rateNum, rateDen int64) *StaticRouter {
	return &StaticRouter{
		ledger:  ledger,
		addr:    addr,
		rateNum: big.NewInt(rateNum),
		rateDen: big.NewInt(rateDen),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the deadline clock, primarily for tests.
func (r *StaticRouter) SetNowFunc(now func() int64) {
	if now != nil {
		r.nowFn = now
	}
}

// Address returns the router's custody/spender address.
func (r *StaticRouter) Address() [20]byte { return r.addr }

func (r *StaticRouter) out(amountIn *big.Int) *big.Int {
	out := new(big.Int).Mul(amountIn, r.rateNum)
	return out.Quo(out, r.rateDen)
}

// Quote returns the expected amounts along the path.
func (r *StaticRouter) Quote(amountIn *big.Int, path [][20]byte) ([]*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errBadAmount
	}
	if len(path) < 2 {
		return nil, errEmptyPath
	}
	return []*big.Int{new(big.Int).Set(amountIn), r.out(amountIn)}, nil
}

// Execute pulls the input asset from the recipient and pays the output asset
// from the router reserve.
func (r *StaticRouter) Execute(amountIn, minAmountOut *big.Int, path [][20]byte, recipient [20]byte, deadline int64) ([]*big.Int, error) {
	if r == nil || r.ledger == nil {
		return nil, errNilLedger
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errBadAmount
	}
	if len(path) < 2 {
		return nil, errEmptyPath
	}
	if deadline > 0 && r.nowFn() > deadline {
		return nil, errPastDeadline
	}
	out := r.out(amountIn)
	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return nil, errBelowMin
	}
	if err := r.ledger.TransferFrom(path[0], r.addr, recipient, r.addr, amountIn); err != nil {
		return nil, fmt.Errorf("static amm: pull input: %w", err)
	}
	if err := r.ledger.Transfer(path[len(path)-1], r.addr, recipient, out); err != nil {
		return nil, fmt.Errorf("static amm: pay output: %w", err)
	}
	return []*big.Int{new(big.Int).Set(amountIn), out}, nil
}

// StaticZapper turns the source asset into the paired liquidity asset at a
// fixed rate, crediting its single configured client (the engine vault).
type StaticZapper struct {
	ledger  lockup.TokenLedger
	addr    [20]byte
	client  [20]byte
	rateNum *big.Int
	rateDen *big.Int
}

// NewStaticZapper builds a zapper serving the given client address.
func NewStaticZapper(ledger lockup.TokenLedger, addr, client [20]byte, rateNum, rateDen int64) *StaticZapper {
	return &StaticZapper{
		ledger:  ledger,
		addr:    addr,
		client:  client,
		rateNum: big.NewInt(rateNum),
		rateDen: big.NewInt(rateDen),
	}
}

// Address returns the zapper's custody/spender address.
func (z *StaticZapper) Address() [20]byte { return z.addr }

// Zap pulls amount of the source asset from the client and pays the paired
// asset back from the zapper reserve.
func (z *StaticZapper) Zap(sourceAsset [20]byte, amount *big.Int, pairAsset [20]byte) error {
	if z == nil || z.ledger == nil {
		return errNilLedger
	}
	if amount == nil || amount.Sign() <= 0 {
		return errBadAmount
	}
	if err := z.ledger.TransferFrom(sourceAsset, z.addr, z.client, z.addr, amount); err != nil {
		return fmt.Errorf("static amm: pull source: %w", err)
	}
	out := new(big.Int).Mul(amount, z.rateNum)
	out.Quo(out, z.rateDen)
	if err := z.ledger.Transfer(pairAsset, z.addr, z.client, out); err != nil {
		return fmt.Errorf("static amm: pay pair asset: %w", err)
	}
	return nil
}
