package rpc

import (
	"math/big"
	"net/http"

	"lockvault/native/lockup"
)

func (s *Server) handleLockupConfigureSplit(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req configureSplitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	split := &lockup.SplitConfig{
		ID:                      req.ID,
		CreditMultiplierPercent: req.CreditMultiplierPercent,
		LockFreeWindowBlocks:    req.LockFreeWindowBlocks,
	}
	if req.PerUserNakedCap != "" {
		cap, err := parseAmount("perUserNakedCap", req.PerUserNakedCap)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		split.PerUserNakedCap = cap
	}
	s.syncHeight()
	if err := s.split.ConfigureSplit(caller, split); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupSchedule(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.syncHeight()
	if err := s.split.UpdateStartAndLockBlocks(caller, req.StartBlock, req.LockDurationBlocks); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupSetCap(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req capRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cap, err := parseAmount("cap", req.Cap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.split.SetMaxCap(caller, cap); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupSetCapBps(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req bpsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.split.SetMaxCapCirculatingBP(caller, req.Bps); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupSetTreasury(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req treasuryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	treasury, err := parseAddress("treasury", req.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.split.SetTreasury(caller, treasury); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupRotateZapper(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if s.zapperFn == nil {
		writeError(w, http.StatusNotImplemented, errNoZapper)
		return
	}
	var req zapperRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress("zapper", req.Zapper)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.split.RotateZapper(caller, s.zapperFn(addr), addr); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupPause(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if err := s.split.Pause(caller); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupResume(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if err := s.split.Resume(caller); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleLockupRecover(w http.ResponseWriter, r *http.Request) {
	if s.split == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	token, recipient, amount, err := decodeRecover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.split.RecoverWrongTokens(caller, token, recipient, amount); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditSchedule(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.syncHeight()
	if err := s.credit.UpdateStartAndLockBlocks(caller, req.StartBlock, req.LockDurationBlocks); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditSetCap(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req capRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cap, err := parseAmount("cap", req.Cap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.credit.SetMaxCap(caller, cap); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditSetCapBps(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req bpsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.credit.SetMaxCapCirculatingBP(caller, req.Bps); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditSetTreasury(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req treasuryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	treasury, err := parseAddress("treasury", req.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.credit.SetTreasury(caller, treasury); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditSetUnlock(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	var req unlockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.credit.SetUnlock(caller, req.Unlocked); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditPause(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if err := s.credit.Pause(caller); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditResume(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if err := s.credit.Resume(caller); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func (s *Server) handleCreditRecover(w http.ResponseWriter, r *http.Request) {
	if s.credit == nil {
		writeError(w, http.StatusNotFound, errPoolDisabled)
		return
	}
	caller, ok := adminCaller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	token, recipient, amount, err := decodeRecover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.credit.RecoverWrongTokens(caller, token, recipient, amount); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

func decodeRecover(r *http.Request) (token, recipient [20]byte, amount *big.Int, err error) {
	var req recoverRequest
	if err = decodeBody(r, &req); err != nil {
		return
	}
	if token, err = parseAddress("token", req.Token); err != nil {
		return
	}
	if recipient, err = parseAddress("recipient", req.Recipient); err != nil {
		return
	}
	amount, err = parseAmount("amount", req.Amount)
	return
}
