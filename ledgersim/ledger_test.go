package ledgersim

import (
	"fmt"
	"math/big"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bidder1 = ethCommon.HexToAddress("0x6813Eb9362372EEF6200f3b1dbC3f819671cBA69")
	bidder2 = ethCommon.HexToAddress("0x1efF47bc3a10a45D4B230B5d10E37751FE6AA718")
)

func TestDepositAndBalance(t *testing.T) {
	l := NewLedger()

	assert.Equal(t, big.NewInt(0), l.BalanceOf(bidder1))

	require.NoError(t, l.Deposit(bidder1, big.NewInt(1000)))
	require.NoError(t, l.Deposit(bidder1, big.NewInt(500)))
	assert.Equal(t, big.NewInt(1500), l.BalanceOf(bidder1))
	assert.Equal(t, big.NewInt(0), l.BalanceOf(bidder2))

	// returned balances are copies
	l.BalanceOf(bidder1).SetInt64(7)
	assert.Equal(t, big.NewInt(1500), l.BalanceOf(bidder1))
}

func TestDepositInvalidValue(t *testing.T) {
	l := NewLedger()

	err := l.Deposit(bidder1, nil)
	assert.Equal(t, ErrInvalidValue, tracerr.Unwrap(err))
	err = l.Deposit(bidder1, big.NewInt(0))
	assert.Equal(t, ErrInvalidValue, tracerr.Unwrap(err))
	err = l.Deposit(bidder1, big.NewInt(-3))
	assert.Equal(t, ErrInvalidValue, tracerr.Unwrap(err))
	assert.Equal(t, big.NewInt(0), l.BalanceOf(bidder1))
}

func TestCollectValue(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Deposit(bidder1, big.NewInt(500)))

	require.NoError(t, l.CollectValue(bidder1, big.NewInt(200)))
	assert.Equal(t, big.NewInt(300), l.BalanceOf(bidder1))
	assert.Equal(t, big.NewInt(200), l.EscrowBalance())

	// more than the remaining balance
	err := l.CollectValue(bidder1, big.NewInt(400))
	assert.Equal(t, ErrInsufficientBalance, tracerr.Unwrap(err))
	assert.Equal(t, big.NewInt(300), l.BalanceOf(bidder1))
	assert.Equal(t, big.NewInt(200), l.EscrowBalance())

	// account that never deposited
	err = l.CollectValue(bidder2, big.NewInt(1))
	assert.Equal(t, ErrInsufficientBalance, tracerr.Unwrap(err))

	err = l.CollectValue(bidder1, nil)
	assert.Equal(t, ErrInvalidValue, tracerr.Unwrap(err))
}

func TestTransferValue(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Deposit(bidder1, big.NewInt(1000)))
	require.NoError(t, l.CollectValue(bidder1, big.NewInt(1000)))

	require.NoError(t, l.TransferValue(bidder2, big.NewInt(600)))
	assert.Equal(t, big.NewInt(600), l.BalanceOf(bidder2))
	assert.Equal(t, big.NewInt(400), l.EscrowBalance())

	err := l.TransferValue(bidder2, big.NewInt(401))
	assert.Equal(t, ErrInsufficientEscrow, tracerr.Unwrap(err))
	assert.Equal(t, big.NewInt(600), l.BalanceOf(bidder2))
	assert.Equal(t, big.NewInt(400), l.EscrowBalance())

	err = l.TransferValue(bidder2, big.NewInt(0))
	assert.Equal(t, ErrInvalidValue, tracerr.Unwrap(err))
}

func TestTransferHook(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Deposit(bidder1, big.NewInt(1000)))
	require.NoError(t, l.CollectValue(bidder1, big.NewInt(1000)))

	// the hook observes the credited balance, which requires the ledger
	// lock to be free while it runs
	var seen *big.Int
	l.CtlSetHook(bidder2, func() error {
		seen = l.BalanceOf(bidder2)
		return nil
	})
	require.NoError(t, l.TransferValue(bidder2, big.NewInt(250)))
	assert.Equal(t, big.NewInt(250), seen)
	assert.Equal(t, big.NewInt(250), l.BalanceOf(bidder2))

	// a failing hook undoes the credit
	l.CtlSetHook(bidder2, func() error {
		return fmt.Errorf("recipient rejected the payment")
	})
	err := l.TransferValue(bidder2, big.NewInt(100))
	require.Error(t, err)
	assert.Equal(t, "recipient rejected the payment", tracerr.Unwrap(err).Error())
	assert.Equal(t, big.NewInt(250), l.BalanceOf(bidder2))
	assert.Equal(t, big.NewInt(750), l.EscrowBalance())

	// clearing the hook restores plain transfers
	l.CtlSetHook(bidder2, nil)
	require.NoError(t, l.TransferValue(bidder2, big.NewInt(100)))
	assert.Equal(t, big.NewInt(350), l.BalanceOf(bidder2))
}

func TestCtlTimer(t *testing.T) {
	timer := NewCtlTimer(5000)
	assert.Equal(t, int64(5000), timer.Time())

	timer.CtlAdvance(125)
	assert.Equal(t, int64(5125), timer.Time())

	timer.CtlSetTime(99)
	assert.Equal(t, int64(99), timer.Time())
}

func TestClockTimer(t *testing.T) {
	timer := ClockTimer{}
	first := timer.Time()
	assert.True(t, first > 0)
	assert.True(t, timer.Time() >= first)
}
