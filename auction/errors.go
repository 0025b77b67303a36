package auction

import "errors"

// Access control errors
var (
	// ErrNotOwner is used when a restricted operation is called by an
	// identity that is not the protocol owner
	ErrNotOwner = errors.New("caller is not the owner")
	// ErrNotRegistered is used when a bid is submitted by an identity
	// that is not in the bidder registry
	ErrNotRegistered = errors.New("bidder is not registered")
	// ErrAlreadyRegistered is used when registering a bidder twice
	ErrAlreadyRegistered = errors.New("bidder is already registered")
	// ErrZeroAddress is used when the zero address is given where a real
	// identity is required
	ErrZeroAddress = errors.New("address must not be the zero address")
)

// Pause errors
var (
	// ErrPaused is used when a mutating operation is called while the
	// protocol is paused
	ErrPaused = errors.New("protocol is paused")
	// ErrAlreadyPaused is used when pausing an already paused protocol
	ErrAlreadyPaused = errors.New("protocol is already paused")
	// ErrNotPaused is used when unpausing a protocol that is not paused
	ErrNotPaused = errors.New("protocol is not paused")
)

// Tender lifecycle errors
var (
	// ErrTenderNotFound is used when the tender ID does not exist
	ErrTenderNotFound = errors.New("tender not found")
	// ErrWrongPhase is used when an operation is called on a tender whose
	// phase does not admit it
	ErrWrongPhase = errors.New("operation not allowed in the current phase")
	// ErrDeadlinePassed is used when the deadline of the addressed window
	// has already passed
	ErrDeadlinePassed = errors.New("deadline has passed")
	// ErrDeadlineNotReached is used when an operation requires a deadline
	// or grace period that has not been reached yet
	ErrDeadlineNotReached = errors.New("deadline not reached yet")
	// ErrInvalidBudget is used when creating a tender without a positive
	// budget ceiling
	ErrInvalidBudget = errors.New("max budget must be a positive amount")
	// ErrInvalidDuration is used when creating a tender with a zero or
	// negative window duration
	ErrInvalidDuration = errors.New("phase durations must be positive")
	// ErrNoMilestones is used when creating a tender without milestones
	ErrNoMilestones = errors.New("at least one milestone is required")
	// ErrInvalidMilestoneAmount is used when a milestone amount is not a
	// positive amount
	ErrInvalidMilestoneAmount = errors.New("milestone amounts must be positive")
	// ErrMilestoneSumMismatch is used when the milestone amounts do not
	// add up to the budget ceiling
	ErrMilestoneSumMismatch = errors.New("milestone amounts must add up to the max budget")
)

// Bid errors
var (
	// ErrEmptyCommit is used when a bid is submitted with the zero hash
	ErrEmptyCommit = errors.New("commitment must not be the zero hash")
	// ErrAlreadySubmitted is used when a bidder submits a second
	// commitment on the same tender
	ErrAlreadySubmitted = errors.New("bid already submitted")
	// ErrRosterFull is used when the bidder roster of the tender is full
	ErrRosterFull = errors.New("bidder roster is full")
	// ErrNoCommitment is used when revealing a bid that was never
	// submitted
	ErrNoCommitment = errors.New("no commitment found for bidder")
	// ErrAlreadyRevealed is used when revealing a bid twice
	ErrAlreadyRevealed = errors.New("bid already revealed")
	// ErrCommitMismatch is used when the revealed values do not hash to
	// the submitted commitment
	ErrCommitMismatch = errors.New("revealed values do not match the commitment")
)

// Winner selection errors
var (
	// ErrNoValidBids is used when no revealed bid is valid at winner
	// selection
	ErrNoValidBids = errors.New("no valid bids to select a winner from")
	// ErrWinnerAlreadySelected is used when selecting a winner twice
	ErrWinnerAlreadySelected = errors.New("winner already selected")
)

// Payment errors
var (
	// ErrAlreadyFunded is used when funding a tender that already holds
	// escrowed funds
	ErrAlreadyFunded = errors.New("tender is already funded")
	// ErrNotFunded is used when releasing a payment of a tender that
	// holds no escrowed funds
	ErrNotFunded = errors.New("tender is not funded")
	// ErrAmountMismatch is used when the funded value differs from the
	// winning bid
	ErrAmountMismatch = errors.New("funded value must equal the winning bid")
	// ErrInvalidMilestone is used when the milestone index is out of
	// range
	ErrInvalidMilestone = errors.New("milestone index out of range")
	// ErrMilestonePaid is used when releasing an already paid milestone
	ErrMilestonePaid = errors.New("milestone already paid")
	// ErrInsufficientEscrow is used when the escrowed funds do not cover
	// the milestone amount
	ErrInsufficientEscrow = errors.New("escrowed funds do not cover the milestone amount")
	// ErrNothingToWithdraw is used when an emergency withdrawal finds no
	// escrowed funds
	ErrNothingToWithdraw = errors.New("no escrowed funds to withdraw")
	// ErrReentrantCall is used when a value moving operation is attempted
	// while another one is still in flight
	ErrReentrantCall = errors.New("value moving operation already in flight")
	// ErrTransferFailed wraps the cause of a failed value transfer
	ErrTransferFailed = errors.New("value transfer failed")
)
