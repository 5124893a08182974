package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	raw = strings.TrimSpace(raw)
	if !ethcommon.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("%s: invalid address %q", field, raw)
	}
	return ethcommon.HexToAddress(raw), nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s: amount required", field)
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid amount %q", field, raw)
	}
	return value, nil
}

func formatAddress(addr [20]byte) string {
	return ethcommon.Address(addr).Hex()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type depositRequest struct {
	Caller  string `json:"caller"`
	Amount  string `json:"amount"`
	SplitID uint32 `json:"splitId"`
}

type depositStableRequest struct {
	Caller       string `json:"caller"`
	AmountStable string `json:"amountStable"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
	SplitID      uint32 `json:"splitId"`
}

type withdrawRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type withdrawAllRequest struct {
	Caller string `json:"caller"`
}

type transferRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type depositResult struct {
	SplitID        uint32 `json:"splitId,omitempty"`
	Amount         string `json:"amount"`
	NakedAmount    string `json:"nakedAmount"`
	LPAmount       string `json:"lpAmount"`
	CreditMinted   string `json:"creditMinted"`
	LockStartBlock uint64 `json:"lockStartBlock"`
}

type accountResult struct {
	Address           string `json:"address"`
	LockedNaked       string `json:"lockedNaked"`
	LockedLP          string `json:"lockedLP"`
	CreditBalance     string `json:"creditBalance"`
	SplitID           uint32 `json:"splitId"`
	SplitBound        bool   `json:"splitBound"`
	LockStartBlock    uint64 `json:"lockStartBlock"`
	LastActivityBlock uint64 `json:"lastActivityBlock"`
}

type splitResult struct {
	ID                      uint32 `json:"id"`
	CreditMultiplierPercent uint32 `json:"creditMultiplierPercent"`
	LockFreeWindowBlocks    uint64 `json:"lockFreeWindowBlocks"`
	PerUserNakedCap         string `json:"perUserNakedCap"`
	TotalNakedDeposited     string `json:"totalNakedDeposited"`
}

type capResult struct {
	Pool        string `json:"pool"`
	Cap         string `json:"cap"`
	BlockHeight uint64 `json:"blockHeight"`
}

type statusResult struct {
	Status string `json:"status"`
}

type configureSplitRequest struct {
	ID                      uint32 `json:"id"`
	CreditMultiplierPercent uint32 `json:"creditMultiplierPercent"`
	LockFreeWindowBlocks    uint64 `json:"lockFreeWindowBlocks"`
	PerUserNakedCap         string `json:"perUserNakedCap,omitempty"`
}

type scheduleRequest struct {
	StartBlock         uint64 `json:"startBlock"`
	LockDurationBlocks uint64 `json:"lockDurationBlocks"`
}

type capRequest struct {
	Cap string `json:"cap"`
}

type bpsRequest struct {
	Bps uint64 `json:"bps"`
}

type treasuryRequest struct {
	Treasury string `json:"treasury"`
}

type zapperRequest struct {
	Zapper string `json:"zapper"`
}

type unlockRequest struct {
	Unlocked bool `json:"unlocked"`
}

type recoverRequest struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}
