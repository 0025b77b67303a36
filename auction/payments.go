package auction

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
)

// FundTender escrows the winning bid amount for the tender. The attached
// value must equal the winning bid exactly and is collected from the caller
// before any state changes. Funding requires a tender that the winner
// selection already moved to the payment phase. A tender whose escrow was
// drained by an emergency withdrawal while payments were still pending can
// be funded again.
func (p *Protocol) FundTender(caller ethCommon.Address, id common.TenderID,
	value *big.Int) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(id)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return tracerr.Wrap(ErrPaused)
	}
	if caller != p.owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	t, ok := p.tenders[id]
	if !ok {
		return tracerr.Wrap(ErrTenderNotFound)
	}
	if p.paymentBusy {
		return tracerr.Wrap(ErrReentrantCall)
	}
	now := p.timer.Time()
	if t.Phase != common.PhasePaymentPending {
		return tracerr.Wrap(ErrWrongPhase)
	}
	if t.FundedAmount.Sign() > 0 {
		return tracerr.Wrap(ErrAlreadyFunded)
	}
	winningBid := p.bids[id][*t.Winner].RevealedAmount
	if value == nil || value.Cmp(winningBid) != 0 {
		return tracerr.Wrap(ErrAmountMismatch)
	}

	// The collect is the last fallible step, every state change below it
	// is infallible.
	if err := p.ledger.CollectValue(caller, value); err != nil {
		return tracerr.Wrap(fmt.Errorf("%w: %s", ErrTransferFailed, err))
	}
	t.FundedAmount = common.CopyBigInt(value)
	p.events.Funded = append(p.events.Funded, common.TenderEventFunded{
		TenderID:  id,
		Funder:    caller,
		Amount:    common.CopyBigInt(value),
		Timestamp: now,
	})
	log.Debugw("auction: tender funded", "tender", id, "amount", value)
	return nil
}

// payout carries what the interaction step of a payment operation needs
// once the engine lock has been released
type payout struct {
	recipient ethCommon.Address
	amount    *big.Int
	// snapshot is the pre effect copy of the tender, restored if the
	// transfer fails
	snapshot  *common.Tender
	completed bool
	milestone int
	now       int64
}

// ReleaseMilestonePayment pays the given milestone to the winner out of the
// escrowed funds. The milestone is marked paid and the escrow decremented
// before the transfer runs; if the transfer fails everything is rolled
// back. The engine lock is not held while the transfer runs, and a
// reentrant payment attempt fails on the payment flag.
func (p *Protocol) ReleaseMilestonePayment(caller ethCommon.Address,
	id common.TenderID, index int) error {
	po, err := p.startMilestonePayment(caller, id, index)
	if err != nil {
		return err
	}
	transferErr := p.ledger.TransferValue(po.recipient, po.amount)
	return p.settleMilestonePayment(id, po, transferErr)
}

// startMilestonePayment validates the payment, applies its effects and
// leaves the payment flag set
func (p *Protocol) startMilestonePayment(caller ethCommon.Address,
	id common.TenderID, index int) (*payout, error) {
	p.rw.Lock()
	defer p.rw.Unlock()

	if p.paused {
		return nil, tracerr.Wrap(ErrPaused)
	}
	if caller != p.owner {
		return nil, tracerr.Wrap(ErrNotOwner)
	}
	t, ok := p.tenders[id]
	if !ok {
		return nil, tracerr.Wrap(ErrTenderNotFound)
	}
	if p.paymentBusy {
		return nil, tracerr.Wrap(ErrReentrantCall)
	}
	if t.Phase != common.PhasePaymentPending {
		return nil, tracerr.Wrap(ErrWrongPhase)
	}
	if t.FundedAmount.Sign() == 0 {
		return nil, tracerr.Wrap(ErrNotFunded)
	}
	if index < 0 || index >= len(t.Milestones) {
		return nil, tracerr.Wrap(ErrInvalidMilestone)
	}
	m := &t.Milestones[index]
	if m.Paid {
		return nil, tracerr.Wrap(ErrMilestonePaid)
	}
	if t.FundedAmount.Cmp(m.Amount) < 0 {
		return nil, tracerr.Wrap(ErrInsufficientEscrow)
	}

	// Effects are applied before the transfer runs. They are visible
	// while the transfer is in flight and are rolled back if it fails.
	snapshot := t.Copy()
	now := p.timer.Time()
	m.Paid = true
	m.PaidAt = now
	t.MilestonesCompleted++
	t.FundedAmount = new(big.Int).Sub(t.FundedAmount, m.Amount)
	completed := t.MilestonesCompleted == len(t.Milestones)
	if completed {
		t.Phase = common.PhaseCompleted
	}
	p.paymentBusy = true
	return &payout{
		recipient: *t.Winner,
		amount:    common.CopyBigInt(m.Amount),
		snapshot:  snapshot,
		completed: completed,
		milestone: index,
		now:       now,
	}, nil
}

// settleMilestonePayment commits or rolls back the milestone payment once
// the transfer has returned
func (p *Protocol) settleMilestonePayment(id common.TenderID, po *payout,
	transferErr error) error {
	p.rw.Lock()
	defer p.rw.Unlock()
	p.paymentBusy = false
	if transferErr != nil {
		p.tenders[id] = po.snapshot
		log.Debugw("auction: milestone payment rolled back", "tender", id,
			"milestone", po.milestone, "err", transferErr)
		return tracerr.Wrap(fmt.Errorf("%w: %s", ErrTransferFailed, transferErr))
	}
	p.events.MilestonePaid = append(p.events.MilestonePaid,
		common.TenderEventMilestonePaid{
			TenderID:  id,
			Milestone: po.milestone,
			Recipient: po.recipient,
			Amount:    common.CopyBigInt(po.amount),
			Timestamp: po.now,
		})
	if po.completed {
		p.events.Completed = append(p.events.Completed,
			common.TenderEventCompleted{
				TenderID:  id,
				Timestamp: po.now,
			})
	}
	log.Debugw("auction: milestone paid", "tender", id, "milestone", po.milestone,
		"recipient", po.recipient, "amount", po.amount, "completed", po.completed)
	return nil
}

// EmergencyWithdraw recovers the remaining escrowed funds of a tender to
// the owner. It is allowed once the tender has completed, to recover a
// residue left by overfunding, or after a grace period past the reveal
// deadline, to recover the escrow of a tender that can no longer progress.
// It works while the protocol is paused.
func (p *Protocol) EmergencyWithdraw(caller ethCommon.Address, id common.TenderID) error {
	po, err := p.startEmergencyWithdrawal(caller, id)
	if err != nil {
		return err
	}
	transferErr := p.ledger.TransferValue(po.recipient, po.amount)
	return p.settleEmergencyWithdrawal(id, po, transferErr)
}

// startEmergencyWithdrawal validates the withdrawal, drains the escrow
// counter and leaves the payment flag set
func (p *Protocol) startEmergencyWithdrawal(caller ethCommon.Address,
	id common.TenderID) (*payout, error) {
	p.rw.Lock()
	defer p.rw.Unlock()

	if caller != p.owner {
		return nil, tracerr.Wrap(ErrNotOwner)
	}
	t, ok := p.tenders[id]
	if !ok {
		return nil, tracerr.Wrap(ErrTenderNotFound)
	}
	if p.paymentBusy {
		return nil, tracerr.Wrap(ErrReentrantCall)
	}
	if t.FundedAmount.Sign() == 0 {
		return nil, tracerr.Wrap(ErrNothingToWithdraw)
	}
	now := p.timer.Time()
	if t.Phase != common.PhaseCompleted &&
		now < t.RevealDeadline+common.EmergencyGracePeriod {
		return nil, tracerr.Wrap(ErrDeadlineNotReached)
	}

	snapshot := t.Copy()
	amount := common.CopyBigInt(t.FundedAmount)
	t.FundedAmount = big.NewInt(0)
	p.paymentBusy = true
	return &payout{
		recipient: caller,
		amount:    amount,
		snapshot:  snapshot,
		now:       now,
	}, nil
}

// settleEmergencyWithdrawal commits or rolls back the withdrawal once the
// transfer has returned
func (p *Protocol) settleEmergencyWithdrawal(id common.TenderID, po *payout,
	transferErr error) error {
	p.rw.Lock()
	defer p.rw.Unlock()
	p.paymentBusy = false
	if transferErr != nil {
		p.tenders[id] = po.snapshot
		log.Debugw("auction: emergency withdrawal rolled back", "tender", id,
			"err", transferErr)
		return tracerr.Wrap(fmt.Errorf("%w: %s", ErrTransferFailed, transferErr))
	}
	p.events.EmergencyWithdrawal = append(p.events.EmergencyWithdrawal,
		common.TenderEventEmergencyWithdrawal{
			TenderID:  id,
			Recipient: po.recipient,
			Amount:    common.CopyBigInt(po.amount),
			Timestamp: po.now,
		})
	log.Infow("auction: emergency withdrawal", "tender", id,
		"recipient", po.recipient, "amount", po.amount)
	return nil
}
