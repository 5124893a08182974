package rpc

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const creditPoolLabel = "creditpool"

func (s *Server) handleCreditCap(w http.ResponseWriter, _ *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	height := s.syncHeight()
	cap, err := s.credit.MaxNakedDepositCap()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		f, _ := new(big.Float).SetInt(cap).Float64()
		s.metrics.SetDepositCap(creditPoolLabel, f)
	}
	writeJSON(w, http.StatusOK, capResult{Pool: creditPoolLabel, Cap: formatAmount(cap), BlockHeight: height})
}

func (s *Server) handleCreditAccount(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, ok, err := s.credit.GetUser(addr)
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

func (s *Server) handleCreditDeposit(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
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
	receipt, err := s.credit.Deposit(caller, amount)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveDepositRejected(creditPoolLabel, rejectionReason(err))
		}
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveDeposit(creditPoolLabel, "direct")
	}
	s.observeCreditVault()
	writeJSON(w, http.StatusOK, receiptToResult(receipt))
}

func (s *Server) handleCreditWithdraw(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	var req withdrawRequest
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
	if err := s.credit.Withdraw(caller, amount); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveWithdrawal(creditPoolLabel)
	}
	s.observeCreditVault()
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditWithdrawAll(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	var req withdrawAllRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.syncHeight()
	if err := s.credit.WithdrawAll(caller); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveWithdrawal(creditPoolLabel)
	}
	s.observeCreditVault()
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditTransfer(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress("recipient", req.Recipient)
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
	if err := s.credit.Transfer(caller, recipient, amount); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveClaimTransfer()
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}
