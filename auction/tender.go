package auction

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
)

// CreateTender opens a new tender. The submission window starts at the
// current ledger time and lasts submissionDuration seconds, and the reveal
// window lasts revealDuration seconds after that. The milestone amounts must
// be positive and add up to maxBudget. Only the owner can create tenders.
func (p *Protocol) CreateTender(caller ethCommon.Address, title, description string,
	maxBudget *big.Int, submissionDuration, revealDuration int64,
	milestones []common.Milestone) (id common.TenderID, err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(0)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return 0, tracerr.Wrap(ErrPaused)
	}
	if caller != p.owner {
		return 0, tracerr.Wrap(ErrNotOwner)
	}
	if maxBudget == nil || maxBudget.Sign() <= 0 {
		return 0, tracerr.Wrap(ErrInvalidBudget)
	}
	if submissionDuration <= 0 || revealDuration <= 0 {
		return 0, tracerr.Wrap(ErrInvalidDuration)
	}
	if len(milestones) == 0 {
		return 0, tracerr.Wrap(ErrNoMilestones)
	}
	total := big.NewInt(0)
	for i := range milestones {
		if milestones[i].Amount == nil || milestones[i].Amount.Sign() <= 0 {
			return 0, tracerr.Wrap(ErrInvalidMilestoneAmount)
		}
		total.Add(total, milestones[i].Amount)
	}
	if total.Cmp(maxBudget) != 0 {
		return 0, tracerr.Wrap(ErrMilestoneSumMismatch)
	}

	now := p.timer.Time()
	p.lastTenderID++
	id = p.lastTenderID
	tender := &common.Tender{
		ID:                 id,
		Title:              title,
		Description:        description,
		MaxBudget:          common.CopyBigInt(maxBudget),
		SubmissionDeadline: now + submissionDuration,
		RevealDeadline:     now + submissionDuration + revealDuration,
		Phase:              common.PhaseBidSubmission,
		FundedAmount:       big.NewInt(0),
		Milestones:         make([]common.Milestone, len(milestones)),
		Roster:             make([]ethCommon.Address, 0),
		CreatedAt:          now,
	}
	for i, m := range milestones {
		tender.Milestones[i] = common.Milestone{
			Description: m.Description,
			Amount:      common.CopyBigInt(m.Amount),
		}
	}
	p.tenders[id] = tender
	p.bids[id] = make(map[ethCommon.Address]*common.Bid)
	p.events.Created = append(p.events.Created, common.TenderEventCreated{
		TenderID:           id,
		Title:              title,
		MaxBudget:          common.CopyBigInt(maxBudget),
		SubmissionDeadline: tender.SubmissionDeadline,
		RevealDeadline:     tender.RevealDeadline,
		Timestamp:          now,
	})
	log.Debugw("auction: tender created", "tender", id, "title", title,
		"maxBudget", maxBudget, "submissionDeadline", tender.SubmissionDeadline,
		"revealDeadline", tender.RevealDeadline)
	return id, nil
}

// RegisterBidder adds bidder to the bidder registry. Registration is owner
// vetted and one time, and the registry never shrinks.
func (p *Protocol) RegisterBidder(caller, bidder ethCommon.Address) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(0)
	defer func() { p.revertIfErr(err, cpy) }()

	if p.paused {
		return tracerr.Wrap(ErrPaused)
	}
	if caller != p.owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	if bidder == common.EmptyAddr {
		return tracerr.Wrap(ErrZeroAddress)
	}
	if p.registered[bidder] {
		return tracerr.Wrap(ErrAlreadyRegistered)
	}

	p.registered[bidder] = true
	p.events.BidderRegistered = append(p.events.BidderRegistered,
		common.TenderEventBidderRegistered{
			Bidder:    bidder,
			Timestamp: p.timer.Time(),
		})
	return nil
}
