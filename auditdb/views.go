package auditdb

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/common/apitypes"
)

// Event types stored in the audit trail
const (
	EventTenderCreated        = "TenderCreated"
	EventBidderRegistered     = "BidderRegistered"
	EventBidCommitted         = "BidCommitted"
	EventBidRevealed          = "BidRevealed"
	EventWinnerSelected       = "WinnerSelected"
	EventTenderFunded         = "TenderFunded"
	EventMilestonePaid        = "MilestonePaid"
	EventTenderCompleted      = "TenderCompleted"
	EventEmergencyWithdrawal  = "EmergencyWithdrawal"
	EventPaused               = "Paused"
	EventUnpaused             = "Unpaused"
	EventOwnershipTransferred = "OwnershipTransferred"
)

// ValidEventType returns true if the given string is one of the event types
// stored in the audit trail
func ValidEventType(eventType string) bool {
	for _, t := range eventTypeOrder {
		if t == eventType {
			return true
		}
	}
	return false
}

// eventTypeOrder lists the event types in lifecycle order. Events sharing a
// timestamp are sequenced by it, so causally related events (a milestone
// payment and the completion it triggers) keep their order in the trail.
var eventTypeOrder = []string{
	EventTenderCreated,
	EventBidderRegistered,
	EventBidCommitted,
	EventBidRevealed,
	EventWinnerSelected,
	EventTenderFunded,
	EventMilestonePaid,
	EventTenderCompleted,
	EventEmergencyWithdrawal,
	EventPaused,
	EventUnpaused,
	EventOwnershipTransferred,
}

// TenderRow is the stored snapshot of a tender
type TenderRow struct {
	TenderID            common.TenderID    `meddler:"tender_id"`
	Title               string             `meddler:"title"`
	Description         string             `meddler:"description"`
	MaxBudget           *big.Int           `meddler:"max_budget,bigint"`
	SubmissionDeadline  int64              `meddler:"submission_deadline"`
	RevealDeadline      int64              `meddler:"reveal_deadline"`
	Phase               common.TenderPhase `meddler:"phase"`
	Winner              *ethCommon.Address `meddler:"winner"`
	WinningBid          *big.Int           `meddler:"winning_bid,bigintnull"`
	FundedAmount        *big.Int           `meddler:"funded_amount,bigint"`
	MilestonesCompleted int                `meddler:"milestones_completed"`
	BidderCount         int                `meddler:"bidder_count"`
	CreatedAt           int64              `meddler:"created_at"`
	UpdatedAt           int64              `meddler:"updated_at"`
}

// MilestoneRow is the stored state of one milestone of a tender
type MilestoneRow struct {
	TenderID    common.TenderID `meddler:"tender_id"`
	Idx         int             `meddler:"idx"`
	Description string          `meddler:"description"`
	Amount      *big.Int        `meddler:"amount,bigint"`
	Paid        bool            `meddler:"paid"`
	PaidAt      int64           `meddler:"paid_at"`
}

// BidRow is the stored state of one bid on a tender
type BidRow struct {
	TenderID       common.TenderID   `meddler:"tender_id"`
	RosterIdx      int               `meddler:"roster_idx"`
	Bidder         ethCommon.Address `meddler:"bidder"`
	CommitHash     ethCommon.Hash    `meddler:"commit_hash"`
	Revealed       bool              `meddler:"revealed"`
	RevealedAmount *big.Int          `meddler:"revealed_amount,bigintnull"`
	Valid          bool              `meddler:"valid"`
	RevealedAt     int64             `meddler:"revealed_at"`
}

// BidderRow is one entry of the stored bidder registry
type BidderRow struct {
	ItemID       uint64            `meddler:"item_id"`
	Addr         ethCommon.Address `meddler:"addr"`
	RegisteredAt int64             `meddler:"registered_at"`
}

// EventRow is one entry of the stored audit trail. The columns that do not
// apply to the event type are null.
type EventRow struct {
	ItemID       uint64             `meddler:"item_id"`
	Type         string             `meddler:"event_type"`
	TenderID     *common.TenderID   `meddler:"tender_id"`
	Addr         *ethCommon.Address `meddler:"addr"`
	OtherAddr    *ethCommon.Address `meddler:"other_addr"`
	Amount       *big.Int           `meddler:"amount,bigintnull"`
	CommitHash   *ethCommon.Hash    `meddler:"commit_hash"`
	Valid        *bool              `meddler:"valid"`
	MilestoneIdx *int               `meddler:"milestone_idx"`
	Timestamp    int64              `meddler:"timestamp"`
}

// TenderAPI is a representation of a tender with the pagination helpers
// required by the API
type TenderAPI struct {
	TenderID            common.TenderID     `json:"tenderId" meddler:"tender_id"`
	Title               string              `json:"title" meddler:"title"`
	Description         string              `json:"description" meddler:"description"`
	MaxBudget           apitypes.BigIntStr  `json:"maxBudget" meddler:"max_budget"`
	SubmissionDeadline  int64               `json:"submissionDeadline" meddler:"submission_deadline"`
	RevealDeadline      int64               `json:"revealDeadline" meddler:"reveal_deadline"`
	Phase               common.TenderPhase  `json:"phase" meddler:"phase"`
	Winner              *ethCommon.Address  `json:"winner" meddler:"winner"`
	WinningBid          *apitypes.BigIntStr `json:"winningBid" meddler:"winning_bid"`
	FundedAmount        apitypes.BigIntStr  `json:"fundedAmount" meddler:"funded_amount"`
	MilestonesCompleted int                 `json:"milestonesCompleted" meddler:"milestones_completed"`
	BidderCount         int                 `json:"bidderCount" meddler:"bidder_count"`
	CreatedAt           int64               `json:"createdAt" meddler:"created_at"`
	UpdatedAt           int64               `json:"updatedAt" meddler:"updated_at"`
	Milestones          []MilestoneAPI      `json:"milestones,omitempty" meddler:"-"`
	TotalItems          uint64              `json:"-" meddler:"total_items"`
}

// MilestoneAPI is a representation of a milestone of a tender
type MilestoneAPI struct {
	Idx         int                `json:"idx" meddler:"idx"`
	Description string             `json:"description" meddler:"description"`
	Amount      apitypes.BigIntStr `json:"amount" meddler:"amount"`
	Paid        bool               `json:"paid" meddler:"paid"`
	PaidAt      int64              `json:"paidAt" meddler:"paid_at"`
}

// BidAPI is a representation of a bid with the pagination helpers required
// by the API
type BidAPI struct {
	TenderID       common.TenderID     `json:"tenderId" meddler:"tender_id"`
	RosterIdx      int                 `json:"rosterIdx" meddler:"roster_idx"`
	Bidder         ethCommon.Address   `json:"bidderAddr" meddler:"bidder"`
	CommitHash     ethCommon.Hash      `json:"commitHash" meddler:"commit_hash"`
	Revealed       bool                `json:"revealed" meddler:"revealed"`
	RevealedAmount *apitypes.BigIntStr `json:"revealedAmount" meddler:"revealed_amount"`
	Valid          bool                `json:"valid" meddler:"valid"`
	RevealedAt     int64               `json:"revealedAt" meddler:"revealed_at"`
	TotalItems     uint64              `json:"-" meddler:"total_items"`
}

// BidderAPI is a representation of a registered bidder with the pagination
// helpers required by the API
type BidderAPI struct {
	ItemID       uint64            `json:"itemId" meddler:"item_id"`
	Addr         ethCommon.Address `json:"bidderAddr" meddler:"addr"`
	RegisteredAt int64             `json:"registeredAt" meddler:"registered_at"`
	TotalItems   uint64            `json:"-" meddler:"total_items"`
}

// EventAPI is a representation of an audit trail entry with the pagination
// helpers required by the API
type EventAPI struct {
	ItemID       uint64              `json:"itemId" meddler:"item_id"`
	Type         string              `json:"type" meddler:"event_type"`
	TenderID     *common.TenderID    `json:"tenderId" meddler:"tender_id"`
	Addr         *ethCommon.Address  `json:"addr" meddler:"addr"`
	OtherAddr    *ethCommon.Address  `json:"otherAddr" meddler:"other_addr"`
	Amount       *apitypes.BigIntStr `json:"amount" meddler:"amount"`
	CommitHash   *ethCommon.Hash     `json:"commitHash" meddler:"commit_hash"`
	Valid        *bool               `json:"valid" meddler:"valid"`
	MilestoneIdx *int                `json:"milestoneIdx" meddler:"milestone_idx"`
	Timestamp    int64               `json:"timestamp" meddler:"timestamp"`
	TotalItems   uint64              `json:"-" meddler:"total_items"`
}

// Stats summarizes the audit database contents
type Stats struct {
	Tenders       int64 `json:"tenders" meddler:"tenders"`
	OpenTenders   int64 `json:"openTenders" meddler:"open_tenders"`
	Bidders       int64 `json:"bidders" meddler:"bidders"`
	Events        int64 `json:"events" meddler:"events"`
	LastEventItem int64 `json:"lastEventItem" meddler:"last_event_item"`
}
