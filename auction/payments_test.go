package auction

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundTender(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{
		{bidder1, big.NewInt(7000)},
		{bidder2, big.NewInt(8500)},
	})

	require.NoError(t, l.Deposit(ownerAddr, big.NewInt(7000)))
	require.NoError(t, p.FundTender(ownerAddr, id, big.NewInt(7000)))

	assert.Equal(t, 0, l.BalanceOf(ownerAddr).Sign())
	assert.Equal(t, big.NewInt(7000), l.EscrowBalance())

	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7000), tender.FundedAmount)
	assert.Equal(t, common.PhasePaymentPending, tender.Phase)

	events := p.Events()
	require.Equal(t, 1, len(events.Funded))
	assert.Equal(t, ownerAddr, events.Funded[0].Funder)
	assert.Equal(t, big.NewInt(7000), events.Funded[0].Amount)
}

func TestFundTenderGuards(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})

	err := p.FundTender(outsider, id, big.NewInt(7000))
	assert.Equal(t, ErrNotOwner, tracerr.Unwrap(err))
	err = p.FundTender(ownerAddr, 42, big.NewInt(7000))
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))

	// the value must match the winning bid exactly
	err = p.FundTender(ownerAddr, id, big.NewInt(6999))
	assert.Equal(t, ErrAmountMismatch, tracerr.Unwrap(err))
	err = p.FundTender(ownerAddr, id, nil)
	assert.Equal(t, ErrAmountMismatch, tracerr.Unwrap(err))

	// the right amount without the balance to cover it
	err = p.FundTender(ownerAddr, id, big.NewInt(7000))
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrTransferFailed))
	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, 0, tender.FundedAmount.Sign())
	assert.Equal(t, common.PhasePaymentPending, tender.Phase)
	assert.Equal(t, 0, l.EscrowBalance().Sign())

	fundTender(t, p, l, id, big.NewInt(7000))
	err = p.FundTender(ownerAddr, id, big.NewInt(7000))
	assert.Equal(t, ErrAlreadyFunded, tracerr.Unwrap(err))

	// a tender whose submission window is still open
	early := newTestTender(t, p)
	err = p.FundTender(ownerAddr, early, big.NewInt(7000))
	assert.Equal(t, ErrWrongPhase, tracerr.Unwrap(err))

	// a tender past its reveal deadline with no winner selected stays out
	// of the payment phase
	unselected := newTestTender(t, p)
	registerBidders(t, p, bidder2)
	submitBid(t, p, unselected, bidder2, big.NewInt(5000), testNonce(0))
	tender, err = p.Tender(unselected)
	require.NoError(t, err)
	timer.CtlSetTime(tender.SubmissionDeadline)
	require.NoError(t, p.RevealBid(bidder2, unselected, big.NewInt(5000), testNonce(0)))
	timer.CtlSetTime(tender.RevealDeadline)
	err = p.FundTender(ownerAddr, unselected, big.NewInt(5000))
	assert.Equal(t, ErrWrongPhase, tracerr.Unwrap(err))

	require.NoError(t, p.Pause(ownerAddr))
	err = p.FundTender(ownerAddr, unselected, big.NewInt(5000))
	assert.Equal(t, ErrPaused, tracerr.Unwrap(err))
}

func TestReleaseMilestonePayment(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(10000)}})
	fundTender(t, p, l, id, big.NewInt(10000))

	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 0))
	assert.Equal(t, big.NewInt(4000), l.BalanceOf(bidder1))
	assert.Equal(t, big.NewInt(6000), l.EscrowBalance())

	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.True(t, tender.Milestones[0].Paid)
	assert.Equal(t, p.Time(), tender.Milestones[0].PaidAt)
	assert.False(t, tender.Milestones[1].Paid)
	assert.Equal(t, 1, tender.MilestonesCompleted)
	assert.Equal(t, big.NewInt(6000), tender.FundedAmount)
	assert.Equal(t, common.PhasePaymentPending, tender.Phase)

	// paying the last milestone completes the tender
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 1))
	assert.Equal(t, big.NewInt(10000), l.BalanceOf(bidder1))
	assert.Equal(t, 0, l.EscrowBalance().Sign())

	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseCompleted, tender.Phase)
	assert.Equal(t, 2, tender.MilestonesCompleted)
	assert.Equal(t, 0, tender.FundedAmount.Sign())

	events := p.Events()
	require.Equal(t, 2, len(events.MilestonePaid))
	assert.Equal(t, 0, events.MilestonePaid[0].Milestone)
	assert.Equal(t, big.NewInt(4000), events.MilestonePaid[0].Amount)
	assert.Equal(t, bidder1, events.MilestonePaid[0].Recipient)
	require.Equal(t, 1, len(events.Completed))

	// a completed tender accepts no more payments
	err = p.ReleaseMilestonePayment(ownerAddr, id, 1)
	assert.Equal(t, ErrWrongPhase, tracerr.Unwrap(err))
}

func TestReleaseMilestoneOutOfOrder(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(10000)}})
	fundTender(t, p, l, id, big.NewInt(10000))

	// milestones can be paid in any order
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 1))
	err := p.ReleaseMilestonePayment(ownerAddr, id, 1)
	assert.Equal(t, ErrMilestonePaid, tracerr.Unwrap(err))
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 0))

	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseCompleted, tender.Phase)
}

func TestReleaseMilestoneGuards(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})

	// winner selected but the escrow has not been funded yet
	err := p.ReleaseMilestonePayment(ownerAddr, id, 0)
	assert.Equal(t, ErrNotFunded, tracerr.Unwrap(err))

	fundTender(t, p, l, id, big.NewInt(7000))

	err = p.ReleaseMilestonePayment(outsider, id, 0)
	assert.Equal(t, ErrNotOwner, tracerr.Unwrap(err))
	err = p.ReleaseMilestonePayment(ownerAddr, 42, 0)
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))
	err = p.ReleaseMilestonePayment(ownerAddr, id, -1)
	assert.Equal(t, ErrInvalidMilestone, tracerr.Unwrap(err))
	err = p.ReleaseMilestonePayment(ownerAddr, id, 2)
	assert.Equal(t, ErrInvalidMilestone, tracerr.Unwrap(err))

	// the 7000 escrow covers the 6000 milestone but not the 4000 one
	// afterwards
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 1))
	err = p.ReleaseMilestonePayment(ownerAddr, id, 0)
	assert.Equal(t, ErrInsufficientEscrow, tracerr.Unwrap(err))

	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), tender.FundedAmount)
	assert.False(t, tender.Milestones[0].Paid)

	require.NoError(t, p.Pause(ownerAddr))
	err = p.ReleaseMilestonePayment(ownerAddr, id, 0)
	assert.Equal(t, ErrPaused, tracerr.Unwrap(err))
}

func TestMilestonePaymentTransferFailure(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})
	fundTender(t, p, l, id, big.NewInt(7000))

	l.CtlSetHook(bidder1, func() error {
		return fmt.Errorf("recipient contract reverted")
	})
	err := p.ReleaseMilestonePayment(ownerAddr, id, 0)
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrTransferFailed))

	// every effect of the payment has been rolled back
	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.False(t, tender.Milestones[0].Paid)
	assert.Equal(t, 0, tender.MilestonesCompleted)
	assert.Equal(t, big.NewInt(7000), tender.FundedAmount)
	assert.Equal(t, common.PhasePaymentPending, tender.Phase)
	assert.Equal(t, 0, l.BalanceOf(bidder1).Sign())
	assert.Equal(t, big.NewInt(7000), l.EscrowBalance())
	assert.Equal(t, 0, len(p.Events().MilestonePaid))

	// the payment window is closed again, the retry goes through
	l.CtlSetHook(bidder1, nil)
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 0))
	assert.Equal(t, big.NewInt(4000), l.BalanceOf(bidder1))
}

func TestReentrantPaymentBlocked(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(10000)}})
	fundTender(t, p, l, id, big.NewInt(10000))

	hookRan := false
	l.CtlSetHook(bidder1, func() error {
		hookRan = true

		// every value moving operation is blocked while the payment
		// window is open
		err := p.ReleaseMilestonePayment(ownerAddr, id, 1)
		assert.Equal(t, ErrReentrantCall, tracerr.Unwrap(err))
		err = p.EmergencyWithdraw(ownerAddr, id)
		assert.Equal(t, ErrReentrantCall, tracerr.Unwrap(err))
		err = p.FundTender(ownerAddr, id, big.NewInt(10000))
		assert.Equal(t, ErrReentrantCall, tracerr.Unwrap(err))

		// the effects of the in flight payment are already visible
		tender, err := p.Tender(id)
		require.NoError(t, err)
		assert.True(t, tender.Milestones[0].Paid)
		assert.Equal(t, big.NewInt(6000), tender.FundedAmount)
		return nil
	})

	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 0))
	require.True(t, hookRan)

	// the milestone was paid exactly once
	assert.Equal(t, big.NewInt(4000), l.BalanceOf(bidder1))
	assert.Equal(t, 1, len(p.Events().MilestonePaid))

	// the window is closed again
	l.CtlSetHook(bidder1, nil)
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 1))
	assert.Equal(t, big.NewInt(10000), l.BalanceOf(bidder1))
}

func TestEmergencyWithdraw(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})
	fundTender(t, p, l, id, big.NewInt(7000))

	tender, err := p.Tender(id)
	require.NoError(t, err)

	err = p.EmergencyWithdraw(outsider, id)
	assert.Equal(t, ErrNotOwner, tracerr.Unwrap(err))
	err = p.EmergencyWithdraw(ownerAddr, 42)
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))

	// the grace period has not elapsed
	err = p.EmergencyWithdraw(ownerAddr, id)
	assert.Equal(t, ErrDeadlineNotReached, tracerr.Unwrap(err))
	timer.CtlSetTime(tender.RevealDeadline + common.EmergencyGracePeriod - 1)
	err = p.EmergencyWithdraw(ownerAddr, id)
	assert.Equal(t, ErrDeadlineNotReached, tracerr.Unwrap(err))

	// recovery works while the protocol is paused
	timer.CtlSetTime(tender.RevealDeadline + common.EmergencyGracePeriod)
	require.NoError(t, p.Pause(ownerAddr))
	require.NoError(t, p.EmergencyWithdraw(ownerAddr, id))
	require.NoError(t, p.Unpause(ownerAddr))

	assert.Equal(t, big.NewInt(7000), l.BalanceOf(ownerAddr))
	assert.Equal(t, 0, l.EscrowBalance().Sign())
	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, 0, tender.FundedAmount.Sign())

	events := p.Events()
	require.Equal(t, 1, len(events.EmergencyWithdrawal))
	assert.Equal(t, ownerAddr, events.EmergencyWithdrawal[0].Recipient)
	assert.Equal(t, big.NewInt(7000), events.EmergencyWithdrawal[0].Amount)

	err = p.EmergencyWithdraw(ownerAddr, id)
	assert.Equal(t, ErrNothingToWithdraw, tracerr.Unwrap(err))

	// the drained tender accepts no milestone payments
	err = p.ReleaseMilestonePayment(ownerAddr, id, 0)
	assert.Equal(t, ErrNotFunded, tracerr.Unwrap(err))
}

func TestEmergencyWithdrawCompletedResidue(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})
	fundTender(t, p, l, id, big.NewInt(7000))
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 0))

	tender, err := p.Tender(id)
	require.NoError(t, err)
	timer.CtlSetTime(tender.RevealDeadline + common.EmergencyGracePeriod)
	require.NoError(t, p.EmergencyWithdraw(ownerAddr, id))
	assert.Equal(t, big.NewInt(3000), l.BalanceOf(ownerAddr))

	// funding the drained tender again resumes the payments
	fundTender(t, p, l, id, big.NewInt(7000))
	require.NoError(t, p.ReleaseMilestonePayment(ownerAddr, id, 1))

	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseCompleted, tender.Phase)
	assert.Equal(t, big.NewInt(1000), tender.FundedAmount)

	// the completed tender releases its residue without a grace period
	require.NoError(t, p.EmergencyWithdraw(ownerAddr, id))
	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, 0, tender.FundedAmount.Sign())

	// everything minted ended up with the winner or back with the owner
	assert.Equal(t, big.NewInt(10000), l.BalanceOf(bidder1))
	assert.Equal(t, big.NewInt(4000), l.BalanceOf(ownerAddr))
	assert.Equal(t, 0, l.EscrowBalance().Sign())
}

func TestEmergencyWithdrawTransferFailure(t *testing.T) {
	p, l, timer := newTestProtocol(t)
	id := runAuction(t, p, timer, []testBid{{bidder1, big.NewInt(7000)}})
	fundTender(t, p, l, id, big.NewInt(7000))

	tender, err := p.Tender(id)
	require.NoError(t, err)
	timer.CtlSetTime(tender.RevealDeadline + common.EmergencyGracePeriod)

	l.CtlSetHook(ownerAddr, func() error {
		return fmt.Errorf("owner wallet rejected the transfer")
	})
	err = p.EmergencyWithdraw(ownerAddr, id)
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrTransferFailed))

	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7000), tender.FundedAmount)
	assert.Equal(t, big.NewInt(7000), l.EscrowBalance())
	assert.Equal(t, 0, len(p.Events().EmergencyWithdrawal))

	l.CtlSetHook(ownerAddr, nil)
	require.NoError(t, p.EmergencyWithdraw(ownerAddr, id))
	assert.Equal(t, big.NewInt(7000), l.BalanceOf(ownerAddr))
}
