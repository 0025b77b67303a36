package auction

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
)

// SelectWinner picks the lowest valid revealed bid of the tender once the
// reveal window has closed. Ties are broken in favor of the bid whose
// commitment was submitted first, so the scan follows the roster order and
// only a strictly lower amount displaces the current best. Selection is one
// shot: a second call fails. A successful selection moves the tender to the
// payment phase.
func (p *Protocol) SelectWinner(caller ethCommon.Address, id common.TenderID) (winner ethCommon.Address, err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(id)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return common.EmptyAddr, tracerr.Wrap(ErrPaused)
	}
	if caller != p.owner {
		return common.EmptyAddr, tracerr.Wrap(ErrNotOwner)
	}
	t, ok := p.tenders[id]
	if !ok {
		return common.EmptyAddr, tracerr.Wrap(ErrTenderNotFound)
	}
	now := p.timer.Time()
	advancePhase(t, now)
	if t.Phase == common.PhaseBidSubmission || t.Phase == common.PhaseBidReveal {
		return common.EmptyAddr, tracerr.Wrap(ErrDeadlineNotReached)
	}
	if t.Winner != nil {
		return common.EmptyAddr, tracerr.Wrap(ErrWinnerAlreadySelected)
	}

	var best *common.Bid
	for _, bidder := range t.Roster {
		bid, ok := p.bids[id][bidder]
		if !ok || !bid.Revealed || !bid.Valid {
			continue
		}
		if best == nil || bid.RevealedAmount.Cmp(best.RevealedAmount) < 0 {
			best = bid
		}
	}
	if best == nil {
		return common.EmptyAddr, tracerr.Wrap(ErrNoValidBids)
	}

	selected := best.Bidder
	t.Winner = &selected
	t.Phase = common.PhasePaymentPending
	p.events.WinnerSelected = append(p.events.WinnerSelected,
		common.TenderEventWinnerSelected{
			TenderID:  id,
			Winner:    selected,
			Amount:    common.CopyBigInt(best.RevealedAmount),
			Timestamp: now,
		})
	log.Debugw("auction: winner selected", "tender", id, "winner", selected,
		"amount", best.RevealedAmount)
	return selected, nil
}
