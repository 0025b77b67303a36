package auction

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
)

// SubmitBid records the sealed commitment of a registered bidder on a
// tender. The commitment hides the bid amount until the reveal phase and
// binds the bidder to it afterwards. A bidder can submit at most one
// commitment per tender, and the roster is bounded by
// common.MaxBiddersPerTender.
func (p *Protocol) SubmitBid(caller ethCommon.Address, id common.TenderID,
	commit ethCommon.Hash) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(id)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return tracerr.Wrap(ErrPaused)
	}
	t, ok := p.tenders[id]
	if !ok {
		return tracerr.Wrap(ErrTenderNotFound)
	}
	// The stored phase is checked before the deadline: a tender that
	// already advanced past submission fails on the phase, one whose
	// deadline passed without any state change fails on the deadline.
	if t.Phase != common.PhaseBidSubmission {
		return tracerr.Wrap(ErrWrongPhase)
	}
	now := p.timer.Time()
	if now >= t.SubmissionDeadline {
		return tracerr.Wrap(ErrDeadlinePassed)
	}
	if !p.registered[caller] {
		return tracerr.Wrap(ErrNotRegistered)
	}
	if commit == common.EmptyHash {
		return tracerr.Wrap(ErrEmptyCommit)
	}
	if _, ok := p.bids[id][caller]; ok {
		return tracerr.Wrap(ErrAlreadySubmitted)
	}
	if len(t.Roster) >= common.MaxBiddersPerTender {
		return tracerr.Wrap(ErrRosterFull)
	}

	t.Roster = append(t.Roster, caller)
	p.bids[id][caller] = &common.Bid{
		TenderID:   id,
		Bidder:     caller,
		CommitHash: commit,
	}
	p.events.BidCommitted = append(p.events.BidCommitted,
		common.TenderEventBidCommitted{
			TenderID:   id,
			Bidder:     caller,
			CommitHash: commit,
			Timestamp:  now,
		})
	return nil
}

// RevealBid opens a sealed bid by disclosing the amount and nonce it was
// committed to. The reveal is accepted only during the reveal window and
// only when the disclosed values hash to the stored commitment. A revealed
// bid that exceeds the budget ceiling or discloses a zero amount is recorded
// as invalid and takes no part in the winner selection.
func (p *Protocol) RevealBid(caller ethCommon.Address, id common.TenderID,
	amount *big.Int, nonce []byte) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(id)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return tracerr.Wrap(ErrPaused)
	}
	t, ok := p.tenders[id]
	if !ok {
		return tracerr.Wrap(ErrTenderNotFound)
	}
	now := p.timer.Time()
	// Only the submission to reveal hop is recomputed here. The reveal
	// deadline is checked explicitly below so that a late reveal fails
	// on the deadline and not on the phase.
	if t.Phase == common.PhaseBidSubmission && now >= t.SubmissionDeadline {
		t.Phase = common.PhaseBidReveal
	}
	if t.Phase != common.PhaseBidReveal {
		return tracerr.Wrap(ErrWrongPhase)
	}
	if !p.registered[caller] {
		return tracerr.Wrap(ErrNotRegistered)
	}
	bid, ok := p.bids[id][caller]
	if !ok {
		return tracerr.Wrap(ErrNoCommitment)
	}
	if bid.Revealed {
		return tracerr.Wrap(ErrAlreadyRevealed)
	}
	if now >= t.RevealDeadline {
		return tracerr.Wrap(ErrDeadlinePassed)
	}
	commit, err := common.BidCommitment(amount, nonce)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if commit != bid.CommitHash {
		return tracerr.Wrap(ErrCommitMismatch)
	}

	bid.Revealed = true
	bid.RevealedAmount = common.CopyBigInt(amount)
	bid.RevealedAt = now
	bid.Valid = amount.Sign() > 0 && amount.Cmp(t.MaxBudget) <= 0
	p.events.BidRevealed = append(p.events.BidRevealed,
		common.TenderEventBidRevealed{
			TenderID:  id,
			Bidder:    caller,
			Amount:    common.CopyBigInt(amount),
			Valid:     bid.Valid,
			Timestamp: now,
		})
	return nil
}
