package rpc

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lockvault/native/lockup"
)

const splitPoolLabel = "lockup"

var errPoolDisabled = errors.New("pool not enabled")

func (s *Server) handleLockupCap(w http.ResponseWriter, _ *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	height := s.syncHeight()
	cap, err := s.split.MaxNakedDepositCap()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		f, _ := new(big.Float).SetInt(cap).Float64()
		s.metrics.SetDepositCap(splitPoolLabel, f)
	}
	writeJSON(w, http.StatusOK, capResult{Pool: splitPoolLabel, Cap: formatAmount(cap), BlockHeight: height})
}

func (s *Server) handleLockupSplits(w http.ResponseWriter, _ *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	splits, err := s.split.ListSplits()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]splitResult, 0, len(splits))
	for _, split := range splits {
		out = append(out, splitResult{
			ID:                      split.ID,
			CreditMultiplierPercent: split.CreditMultiplierPercent,
			LockFreeWindowBlocks:    split.LockFreeWindowBlocks,
			PerUserNakedCap:         formatAmount(split.PerUserNakedCap),
			TotalNakedDeposited:     formatAmount(split.TotalNakedDeposited),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLockupAccount(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, ok, err := s.split.GetUser(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("account not found"))
		return
	}
	writeJSON(w, http.StatusOK, accountToResult(user))
}

func accountToResult(user *lockup.UserAccount) accountResult {
	return accountResult{
		Address:           formatAddress(user.Address),
		LockedNaked:       formatAmount(user.LockedNaked),
		LockedLP:          formatAmount(user.LockedLP),
		CreditBalance:     formatAmount(user.CreditBalance),
		SplitID:           user.SplitID,
		SplitBound:        user.SplitBound,
		LockStartBlock:    user.LockStartBlock,
		LastActivityBlock: user.LastActivityBlock,
	}
}

func receiptToResult(receipt *lockup.DepositReceipt) depositResult {
	return depositResult{
		SplitID:        receipt.SplitID,
		Amount:         formatAmount(receipt.Amount),
		NakedAmount:    formatAmount(receipt.NakedAmount),
		LPAmount:       formatAmount(receipt.LPAmount),
		CreditMinted:   formatAmount(receipt.CreditMinted),
		LockStartBlock: receipt.LockStartBlock,
	}
}

func (s *Server) handleLockupDeposit(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.syncHeight()
	receipt, err := s.split.Deposit(caller, amount, req.SplitID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveDepositRejected(splitPoolLabel, rejectionReason(err))
		}
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveDeposit(splitPoolLabel, "direct")
	}
	s.observeSplitVault()
	writeJSON(w, http.StatusOK, receiptToResult(receipt))
}

func (s *Server) handleLockupDepositStable(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	var req depositStableRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount("amountStable", req.AmountStable)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var minOut *big.Int
	if req.MinAmountOut != "" {
		if minOut, err = parseAmount("minAmountOut", req.MinAmountOut); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	s.syncHeight()
	receipt, err := s.split.DepositStable(caller, amount, minOut, req.SplitID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveDepositRejected(splitPoolLabel, rejectionReason(err))
		}
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveDeposit(splitPoolLabel, "stable")
	}
	s.observeSplitVault()
	writeJSON(w, http.StatusOK, receiptToResult(receipt))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, lockup.ErrDepositCapExceeded):
		return "pool_cap"
	case errors.Is(err, lockup.ErrUserCapExceeded):
		return "user_cap"
	case errors.Is(err, lockup.ErrNotAllowlisted):
		return "allowlist"
	case errors.Is(err, lockup.ErrNotStarted):
		return "not_started"
	case errors.Is(err, lockup.ErrSwapOutputBelowMin):
		return "slippage"
	case errors.Is(err, lockup.ErrSplitMismatch), errors.Is(err, lockup.ErrSplitNotConfigured):
		return "split"
	default:
		return "other"
	}
}
