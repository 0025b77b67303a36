package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// TenderEventCreated is an event of the tender protocol
type TenderEventCreated struct {
	TenderID           TenderID
	Title              string
	MaxBudget          *big.Int
	SubmissionDeadline int64
	RevealDeadline     int64
	Timestamp          int64
}

// TenderEventBidderRegistered is an event of the tender protocol
type TenderEventBidderRegistered struct {
	Bidder    ethCommon.Address
	Timestamp int64
}

// TenderEventBidCommitted is an event of the tender protocol
type TenderEventBidCommitted struct {
	TenderID   TenderID
	Bidder     ethCommon.Address
	CommitHash ethCommon.Hash
	Timestamp  int64
}

// TenderEventBidRevealed is an event of the tender protocol
type TenderEventBidRevealed struct {
	TenderID  TenderID
	Bidder    ethCommon.Address
	Amount    *big.Int
	Valid     bool
	Timestamp int64
}

// TenderEventWinnerSelected is an event of the tender protocol
type TenderEventWinnerSelected struct {
	TenderID  TenderID
	Winner    ethCommon.Address
	Amount    *big.Int
	Timestamp int64
}

// TenderEventFunded is an event of the tender protocol
type TenderEventFunded struct {
	TenderID  TenderID
	Funder    ethCommon.Address
	Amount    *big.Int
	Timestamp int64
}

// TenderEventMilestonePaid is an event of the tender protocol
type TenderEventMilestonePaid struct {
	TenderID  TenderID
	Milestone int
	Recipient ethCommon.Address
	Amount    *big.Int
	Timestamp int64
}

// TenderEventCompleted is an event of the tender protocol
type TenderEventCompleted struct {
	TenderID  TenderID
	Timestamp int64
}

// TenderEventEmergencyWithdrawal is an event of the tender protocol
type TenderEventEmergencyWithdrawal struct {
	TenderID  TenderID
	Recipient ethCommon.Address
	Amount    *big.Int
	Timestamp int64
}

// TenderEventPaused is an event of the tender protocol
type TenderEventPaused struct {
	By        ethCommon.Address
	Timestamp int64
}

// TenderEventUnpaused is an event of the tender protocol
type TenderEventUnpaused struct {
	By        ethCommon.Address
	Timestamp int64
}

// TenderEventOwnershipTransferred is an event of the tender protocol
type TenderEventOwnershipTransferred struct {
	OldOwner  ethCommon.Address
	NewOwner  ethCommon.Address
	Timestamp int64
}

// TenderEvents is the aggregated list of events emitted by the tender
// protocol, one slice per event type, each in emission order
type TenderEvents struct {
	Created              []TenderEventCreated
	BidderRegistered     []TenderEventBidderRegistered
	BidCommitted         []TenderEventBidCommitted
	BidRevealed          []TenderEventBidRevealed
	WinnerSelected       []TenderEventWinnerSelected
	Funded               []TenderEventFunded
	MilestonePaid        []TenderEventMilestonePaid
	Completed            []TenderEventCompleted
	EmergencyWithdrawal  []TenderEventEmergencyWithdrawal
	Paused               []TenderEventPaused
	Unpaused             []TenderEventUnpaused
	OwnershipTransferred []TenderEventOwnershipTransferred
}

// NewTenderEvents creates an empty TenderEvents with the slices initialized
func NewTenderEvents() TenderEvents {
	return TenderEvents{
		Created:              make([]TenderEventCreated, 0),
		BidderRegistered:     make([]TenderEventBidderRegistered, 0),
		BidCommitted:         make([]TenderEventBidCommitted, 0),
		BidRevealed:          make([]TenderEventBidRevealed, 0),
		WinnerSelected:       make([]TenderEventWinnerSelected, 0),
		Funded:               make([]TenderEventFunded, 0),
		MilestonePaid:        make([]TenderEventMilestonePaid, 0),
		Completed:            make([]TenderEventCompleted, 0),
		EmergencyWithdrawal:  make([]TenderEventEmergencyWithdrawal, 0),
		Paused:               make([]TenderEventPaused, 0),
		Unpaused:             make([]TenderEventUnpaused, 0),
		OwnershipTransferred: make([]TenderEventOwnershipTransferred, 0),
	}
}

// Len returns the total number of events in the aggregate
func (e *TenderEvents) Len() int {
	return len(e.Created) + len(e.BidderRegistered) + len(e.BidCommitted) +
		len(e.BidRevealed) + len(e.WinnerSelected) + len(e.Funded) +
		len(e.MilestonePaid) + len(e.Completed) + len(e.EmergencyWithdrawal) +
		len(e.Paused) + len(e.Unpaused) + len(e.OwnershipTransferred)
}
