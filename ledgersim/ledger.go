/*
Package ledgersim simulates the value ledger the auction protocol escrows
funds on: a set of accounts, a protocol escrow balance and the two value
movements the protocol performs. Outgoing transfers can run a per recipient
hook, which models arbitrary recipient logic reacting to a payment,
including calls back into the protocol and failures.
*/
package ledgersim

import (
	"errors"
	"math/big"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
)

// ErrInsufficientBalance is used when an account cannot cover the value
// being collected from it
var ErrInsufficientBalance = errors.New("account balance too low")

// ErrInsufficientEscrow is used when the escrow cannot cover the value
// being transferred out of it
var ErrInsufficientEscrow = errors.New("escrow balance too low")

// ErrInvalidValue is used when a value movement is not a positive amount
var ErrInvalidValue = errors.New("value must be a positive amount")

// Hook runs after a transfer credits its recipient. A non nil error makes
// the transfer fail and undoes the credit.
type Hook func() error

// Ledger is an in memory value ledger
type Ledger struct {
	rw       sync.RWMutex
	balances map[ethCommon.Address]*big.Int
	escrow   *big.Int
	hooks    map[ethCommon.Address]Hook
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[ethCommon.Address]*big.Int),
		escrow:   big.NewInt(0),
		hooks:    make(map[ethCommon.Address]Hook),
	}
}

// Deposit mints amount into the balance of addr
func (l *Ledger) Deposit(addr ethCommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return tracerr.Wrap(ErrInvalidValue)
	}
	l.rw.Lock()
	defer l.rw.Unlock()
	l.credit(addr, amount)
	return nil
}

// BalanceOf returns a copy of the balance of addr
func (l *Ledger) BalanceOf(addr ethCommon.Address) *big.Int {
	l.rw.RLock()
	defer l.rw.RUnlock()
	if balance, ok := l.balances[addr]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// EscrowBalance returns a copy of the protocol escrow balance
func (l *Ledger) EscrowBalance() *big.Int {
	l.rw.RLock()
	defer l.rw.RUnlock()
	return new(big.Int).Set(l.escrow)
}

// CollectValue pulls amount from the balance of from into the escrow
func (l *Ledger) CollectValue(from ethCommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return tracerr.Wrap(ErrInvalidValue)
	}
	l.rw.Lock()
	defer l.rw.Unlock()
	balance := l.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return tracerr.Wrap(ErrInsufficientBalance)
	}
	balance.Sub(balance, amount)
	l.escrow.Add(l.escrow, amount)
	return nil
}

// TransferValue pays amount out of the escrow to the balance of to, then
// runs the recipient hook if one is set. The hook runs without the ledger
// lock so it can read the ledger or call back into the protocol; if it
// returns an error the transfer is undone and fails with that error.
func (l *Ledger) TransferValue(to ethCommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return tracerr.Wrap(ErrInvalidValue)
	}
	l.rw.Lock()
	if l.escrow.Cmp(amount) < 0 {
		l.rw.Unlock()
		return tracerr.Wrap(ErrInsufficientEscrow)
	}
	l.escrow.Sub(l.escrow, amount)
	l.credit(to, amount)
	hook := l.hooks[to]
	l.rw.Unlock()

	if hook == nil {
		return nil
	}
	if err := hook(); err != nil {
		l.rw.Lock()
		l.escrow.Add(l.escrow, amount)
		l.balances[to].Sub(l.balances[to], amount)
		l.rw.Unlock()
		return tracerr.Wrap(err)
	}
	return nil
}

// CtlSetHook installs the hook run when a transfer credits addr. A nil hook
// clears it.
func (l *Ledger) CtlSetHook(addr ethCommon.Address, hook Hook) {
	l.rw.Lock()
	defer l.rw.Unlock()
	if hook == nil {
		delete(l.hooks, addr)
		return
	}
	l.hooks[addr] = hook
}

// credit adds amount to the balance of addr. Must be called with the write
// lock held.
func (l *Ledger) credit(addr ethCommon.Address, amount *big.Int) {
	if balance, ok := l.balances[addr]; ok {
		balance.Add(balance, amount)
		return
	}
	l.balances[addr] = new(big.Int).Set(amount)
}
