package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilStorage = errors.New("token ledger: storage not configured")

	// ErrInsufficientBalance rejects debits above the holder's balance.
	ErrInsufficientBalance = errors.New("token ledger: insufficient balance")
	// ErrInsufficientAllowance rejects delegated debits above the approved amount.
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("token ledger: invalid amount")
)

// Storage abstracts the subset of state-manager functionality required by the
// ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is an in-process fungible-token ledger keyed by asset address. It
// backs the deposit, LP-pair and member-credit assets when the engines run
// without an external chain. Authorisation is the responsibility of whoever
// holds the Ledger handle; balance and allowance arithmetic is enforced here.
type Ledger struct {
	st Storage
}

// New wraps the provided storage.
func New(st Storage) *Ledger {
	return &Ledger{st: st}
}

func balanceKey(asset, holder [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/bal/%s", hex.EncodeToString(asset[:]), hex.EncodeToString(holder[:])))
}

func supplyKey(asset [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/supply", hex.EncodeToString(asset[:])))
}

func allowanceKey(asset, owner, spender [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/allow/%s/%s", hex.EncodeToString(asset[:]), hex.EncodeToString(owner[:]), hex.EncodeToString(spender[:])))
}

func (l *Ledger) load(key []byte) (*big.Int, error) {
	if l == nil || l.st == nil {
		return nil, errNilStorage
	}
	var raw string
	ok, err := l.st.KVGet(key, &raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(raw, 10)
	if !valid {
		return nil, fmt.Errorf("token ledger: corrupt value under %q", string(key))
	}
	return value, nil
}

func (l *Ledger) store(key []byte, value *big.Int) error {
	if l == nil || l.st == nil {
		return errNilStorage
	}
	return l.st.KVPut(key, value.String())
}

// BalanceOf returns the holder's balance of the asset.
func (l *Ledger) BalanceOf(asset, holder [20]byte) (*big.Int, error) {
	return l.load(balanceKey(asset, holder))
}

// TotalSupply returns the asset's total minted supply.
func (l *Ledger) TotalSupply(asset [20]byte) (*big.Int, error) {
	return l.load(supplyKey(asset))
}

// Allowance returns what spender may still draw from owner's balance.
func (l *Ledger) Allowance(asset, owner, spender [20]byte) (*big.Int, error) {
	return l.load(allowanceKey(asset, owner, spender))
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (l *Ledger) move(asset, from, to [20]byte, amount *big.Int) error {
	fromBal, err := l.load(balanceKey(asset, from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.load(balanceKey(asset, to))
	if err != nil {
		return err
	}
	if err := l.store(balanceKey(asset, from), new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.store(balanceKey(asset, to), new(big.Int).Add(toBal, amount))
}

// Transfer moves amount from the from address to the to address.
func (l *Ledger) Transfer(asset, from, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.move(asset, from, to, amount)
}

// TransferFrom moves amount from the from address on behalf of spender,
// drawing down spender's allowance. Self-spends skip the allowance check.
func (l *Ledger) TransferFrom(asset, spender, from, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if spender != from {
		allowed, err := l.load(allowanceKey(asset, from, spender))
		if err != nil {
			return err
		}
		if allowed.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.store(allowanceKey(asset, from, spender), new(big.Int).Sub(allowed, amount)); err != nil {
			return err
		}
	}
	return l.move(asset, from, to, amount)
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(asset, owner, spender [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.store(allowanceKey(asset, owner, spender), amount)
}

// Mint credits newly issued units to the recipient and grows total supply.
func (l *Ledger) Mint(asset, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	supply, err := l.load(supplyKey(asset))
	if err != nil {
		return err
	}
	bal, err := l.load(balanceKey(asset, to))
	if err != nil {
		return err
	}
	if err := l.store(supplyKey(asset), new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	return l.store(balanceKey(asset, to), new(big.Int).Add(bal, amount))
}

// BurnFrom destroys units held by the holder and shrinks total supply.
func (l *Ledger) BurnFrom(asset, holder [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal, err := l.load(balanceKey(asset, holder))
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.load(supplyKey(asset))
	if err != nil {
		return err
	}
	if err := l.store(balanceKey(asset, holder), new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	return l.store(supplyKey(asset), new(big.Int).Sub(supply, amount))
}
