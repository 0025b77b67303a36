package common

import (
	"math/big"
	"strconv"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

const (
	// MaxBiddersPerTender is the maximum number of bidders that can enter
	// the roster of a single tender, so that selecting a winner remains a
	// bounded scan.
	MaxBiddersPerTender = 100

	// EmergencyGracePeriod is the number of seconds after the reveal
	// deadline from which the owner can recover the escrowed funds of a
	// tender that did not complete.
	EmergencyGracePeriod int64 = 30 * 24 * 60 * 60
)

// TenderID identifies a tender. IDs are assigned sequentially starting at 1
// and are never reused.
type TenderID uint64

func (id TenderID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// TenderPhase is the lifecycle phase of a tender. Phases only move forward.
type TenderPhase string

const (
	// PhaseBidSubmission accepts sealed bid commitments
	PhaseBidSubmission TenderPhase = "BID_SUBMISSION"
	// PhaseBidReveal accepts bid openings
	PhaseBidReveal TenderPhase = "BID_REVEAL"
	// PhaseWinnerSelection awaits the winner selection of the owner
	PhaseWinnerSelection TenderPhase = "WINNER_SELECTION"
	// PhasePaymentPending releases milestone payments of the funded tender
	PhasePaymentPending TenderPhase = "PAYMENT_PENDING"
	// PhaseCompleted is terminal, every milestone has been paid
	PhaseCompleted TenderPhase = "COMPLETED"
)

// Order returns the position of the phase in the tender lifecycle, starting
// at 0 for PhaseBidSubmission. Unknown phases return -1.
func (p TenderPhase) Order() int {
	switch p {
	case PhaseBidSubmission:
		return 0
	case PhaseBidReveal:
		return 1
	case PhaseWinnerSelection:
		return 2
	case PhasePaymentPending:
		return 3
	case PhaseCompleted:
		return 4
	}
	return -1
}

// Valid returns true when the phase is one of the defined lifecycle phases
func (p TenderPhase) Valid() bool {
	return p.Order() >= 0
}

// Milestone is one step of the payment schedule of a tender
type Milestone struct {
	Description string   `json:"description"`
	Amount      *big.Int `json:"amount"`
	Paid        bool     `json:"paid"`
	// PaidAt is the ledger time of the payment, 0 while unpaid
	PaidAt int64 `json:"paidAt"`
}

// Tender is the full state of one procurement auction
type Tender struct {
	ID          TenderID `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	// MaxBudget is the public budget ceiling, equal to the sum of the
	// milestone amounts
	MaxBudget *big.Int `json:"maxBudget"`
	// SubmissionDeadline is the ledger time at which the bid submission
	// window closes (exclusive)
	SubmissionDeadline int64 `json:"submissionDeadline"`
	// RevealDeadline is the ledger time at which the bid reveal window
	// closes (exclusive)
	RevealDeadline int64       `json:"revealDeadline"`
	Phase          TenderPhase `json:"phase"`
	// Winner is nil until a winner has been selected
	Winner *ethCommon.Address `json:"winner"`
	// FundedAmount is the value currently held in escrow for this tender
	FundedAmount        *big.Int    `json:"fundedAmount"`
	Milestones          []Milestone `json:"milestones"`
	MilestonesCompleted int         `json:"milestonesCompleted"`
	// Roster lists the bidders that submitted a commitment, in submission
	// order
	Roster    []ethCommon.Address `json:"roster"`
	CreatedAt int64               `json:"createdAt"`
}

// TotalMilestoneAmount returns the sum of all the milestone amounts
func (t *Tender) TotalMilestoneAmount() *big.Int {
	total := big.NewInt(0)
	for i := range t.Milestones {
		total.Add(total, t.Milestones[i].Amount)
	}
	return total
}

// Copy returns a deep copy of the tender
func (t *Tender) Copy() *Tender {
	tCpy := *t
	tCpy.MaxBudget = CopyBigInt(t.MaxBudget)
	tCpy.FundedAmount = CopyBigInt(t.FundedAmount)
	if t.Winner != nil {
		winner := *t.Winner
		tCpy.Winner = &winner
	}
	tCpy.Milestones = make([]Milestone, len(t.Milestones))
	for i, m := range t.Milestones {
		m.Amount = CopyBigInt(m.Amount)
		tCpy.Milestones[i] = m
	}
	tCpy.Roster = make([]ethCommon.Address, len(t.Roster))
	copy(tCpy.Roster, t.Roster)
	return &tCpy
}
