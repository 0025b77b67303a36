/*
Package auction implements the sealed bid procurement auction protocol: the
tender lifecycle state machine, the commit reveal bid ledger, the winner
selection, the milestone payment engine and the access and emergency
controls.

All state lives in memory behind a single RWMutex. Every mutating operation
takes a deep copy of the state it can touch and restores it if the operation
fails, so a failed call leaves no trace. Operations that move value out of
the escrow (milestone payments and emergency withdrawals) apply their state
effects first, release the lock while the external transfer runs, and roll
the effects back if the transfer fails; a payment flag makes those windows
mutually exclusive, so a reentrant call fails instead of deadlocking.

Clock driven phase transitions are lazy: no background task moves tenders
between phases. Each operation recomputes the phase from the ledger clock
before applying its guards, and reads report the recomputed phase.
*/
package auction

import (
	"bytes"
	"errors"
	"math/big"
	"reflect"
	"sort"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/mitchellh/copystructure"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
)

func init() {
	copystructure.Copiers[reflect.TypeOf(big.Int{})] =
		func(raw interface{}) (interface{}, error) {
			in := raw.(big.Int)
			out := new(big.Int).Set(&in)
			return *out, nil
		}
}

// Timer provides the current time of the ledger the protocol runs on, as
// unix seconds. The protocol never reads the wall clock directly.
type Timer interface {
	Time() int64
}

// ValueLedger mediates value movements between the protocol escrow and
// external accounts. CollectValue pulls funds from a payer into the escrow
// when a tender is funded. TransferValue pays funds out of the escrow and
// may run arbitrary recipient logic, including calls back into the
// protocol.
type ValueLedger interface {
	CollectValue(from ethCommon.Address, amount *big.Int) error
	TransferValue(to ethCommon.Address, amount *big.Int) error
}

// Protocol is the sealed bid procurement auction engine
type Protocol struct {
	rw     sync.RWMutex
	timer  Timer
	ledger ValueLedger

	owner ethCommon.Address
	// paused blocks all mutating operations except unpause, ownership
	// transfer and emergency withdrawal
	paused bool
	// paymentBusy is held across the escrow transfer window of a payment
	// operation, while the engine lock is released
	paymentBusy  bool
	registered   map[ethCommon.Address]bool
	tenders      map[common.TenderID]*common.Tender
	bids         map[common.TenderID]map[ethCommon.Address]*common.Bid
	lastTenderID common.TenderID
	events       common.TenderEvents
}

// New creates a Protocol owned by owner, reading time from timer and moving
// value through ledger.
func New(owner ethCommon.Address, timer Timer, ledger ValueLedger) (*Protocol, error) {
	if owner == common.EmptyAddr {
		return nil, tracerr.Wrap(ErrZeroAddress)
	}
	if timer == nil || ledger == nil {
		return nil, tracerr.Wrap(errors.New("timer and value ledger are required"))
	}
	return &Protocol{
		timer:      timer,
		ledger:     ledger,
		owner:      owner,
		registered: make(map[ethCommon.Address]bool),
		tenders:    make(map[common.TenderID]*common.Tender),
		bids:       make(map[common.TenderID]map[ethCommon.Address]*common.Bid),
		events:     common.NewTenderEvents(),
	}, nil
}

// stateCopy is a deep copy of the state a mutating operation can touch
type stateCopy struct {
	tenderID     common.TenderID
	hasTender    bool
	tender       *common.Tender
	bids         map[ethCommon.Address]*common.Bid
	registered   map[ethCommon.Address]bool
	owner        ethCommon.Address
	paused       bool
	lastTenderID common.TenderID
}

func copyBids(bids map[ethCommon.Address]*common.Bid) map[ethCommon.Address]*common.Bid {
	cpyRaw, err := copystructure.Copy(bids)
	if err != nil {
		panic(err)
	}
	return cpyRaw.(map[ethCommon.Address]*common.Bid)
}

// copyState deep copies the addressed tender, its bids, the bidder registry
// and the engine scalars. Must be called with the write lock held.
func (p *Protocol) copyState(id common.TenderID) *stateCopy {
	cpy := &stateCopy{
		tenderID:     id,
		owner:        p.owner,
		paused:       p.paused,
		lastTenderID: p.lastTenderID,
	}
	if t, ok := p.tenders[id]; ok {
		cpy.hasTender = true
		cpy.tender = t.Copy()
		cpy.bids = copyBids(p.bids[id])
	}
	cpy.registered = make(map[ethCommon.Address]bool, len(p.registered))
	for addr := range p.registered {
		cpy.registered[addr] = true
	}
	return cpy
}

// revertIfErr restores the copied state when the operation failed. Must be
// called with the write lock held.
func (p *Protocol) revertIfErr(err error, cpy *stateCopy) {
	if err == nil {
		return
	}
	log.Debugw("auction: revert", "tender", cpy.tenderID, "err", err)
	if cpy.hasTender {
		p.tenders[cpy.tenderID] = cpy.tender
		p.bids[cpy.tenderID] = cpy.bids
	}
	for id := range p.tenders {
		if id > cpy.lastTenderID {
			delete(p.tenders, id)
			delete(p.bids, id)
		}
	}
	p.registered = cpy.registered
	p.owner = cpy.owner
	p.paused = cpy.paused
	p.lastTenderID = cpy.lastTenderID
}

// effectivePhase returns the phase of t at time now, applying the clock
// driven transitions that may not have been persisted yet
func effectivePhase(t *common.Tender, now int64) common.TenderPhase {
	phase := t.Phase
	if phase == common.PhaseBidSubmission && now >= t.SubmissionDeadline {
		phase = common.PhaseBidReveal
	}
	if phase == common.PhaseBidReveal && now >= t.RevealDeadline {
		phase = common.PhaseWinnerSelection
	}
	return phase
}

// advancePhase persists the clock driven phase transitions of t at time now
func advancePhase(t *common.Tender, now int64) {
	t.Phase = effectivePhase(t, now)
}

//
// Reads. All return deep copies, and tenders report the phase recomputed
// from the current ledger time.
//

// Owner returns the current protocol owner
func (p *Protocol) Owner() ethCommon.Address {
	p.rw.RLock()
	defer p.rw.RUnlock()
	return p.owner
}

// Paused returns true while the protocol is paused
func (p *Protocol) Paused() bool {
	p.rw.RLock()
	defer p.rw.RUnlock()
	return p.paused
}

// IsRegistered returns true if addr is in the bidder registry
func (p *Protocol) IsRegistered(addr ethCommon.Address) bool {
	p.rw.RLock()
	defer p.rw.RUnlock()
	return p.registered[addr]
}

// Bidders returns the registered bidders sorted by address
func (p *Protocol) Bidders() []ethCommon.Address {
	p.rw.RLock()
	defer p.rw.RUnlock()
	bidders := make([]ethCommon.Address, 0, len(p.registered))
	for addr := range p.registered {
		bidders = append(bidders, addr)
	}
	sort.Slice(bidders, func(i, j int) bool {
		return bytes.Compare(bidders[i][:], bidders[j][:]) < 0
	})
	return bidders
}

// TenderCount returns the number of tenders ever created
func (p *Protocol) TenderCount() uint64 {
	p.rw.RLock()
	defer p.rw.RUnlock()
	return uint64(p.lastTenderID)
}

// Time returns the current ledger time as seen by the protocol
func (p *Protocol) Time() int64 {
	return p.timer.Time()
}

// Tender returns a copy of the tender with the given ID
func (p *Protocol) Tender(id common.TenderID) (*common.Tender, error) {
	p.rw.RLock()
	defer p.rw.RUnlock()
	t, ok := p.tenders[id]
	if !ok {
		return nil, tracerr.Wrap(ErrTenderNotFound)
	}
	cpy := t.Copy()
	cpy.Phase = effectivePhase(t, p.timer.Time())
	return cpy, nil
}

// Tenders returns a copy of all tenders sorted by ID
func (p *Protocol) Tenders() []common.Tender {
	p.rw.RLock()
	defer p.rw.RUnlock()
	now := p.timer.Time()
	tenders := make([]common.Tender, 0, len(p.tenders))
	for _, t := range p.tenders {
		cpy := t.Copy()
		cpy.Phase = effectivePhase(t, now)
		tenders = append(tenders, *cpy)
	}
	sort.Slice(tenders, func(i, j int) bool { return tenders[i].ID < tenders[j].ID })
	return tenders
}

// Bid returns a copy of the bid of bidder on the given tender
func (p *Protocol) Bid(id common.TenderID, bidder ethCommon.Address) (*common.Bid, error) {
	p.rw.RLock()
	defer p.rw.RUnlock()
	if _, ok := p.tenders[id]; !ok {
		return nil, tracerr.Wrap(ErrTenderNotFound)
	}
	bid, ok := p.bids[id][bidder]
	if !ok {
		return nil, tracerr.Wrap(ErrNoCommitment)
	}
	return bid.Copy(), nil
}

// TenderBids returns a copy of all bids on the given tender in roster order
func (p *Protocol) TenderBids(id common.TenderID) ([]common.Bid, error) {
	p.rw.RLock()
	defer p.rw.RUnlock()
	t, ok := p.tenders[id]
	if !ok {
		return nil, tracerr.Wrap(ErrTenderNotFound)
	}
	bids := make([]common.Bid, 0, len(t.Roster))
	for _, bidder := range t.Roster {
		if bid, ok := p.bids[id][bidder]; ok {
			bids = append(bids, *bid.Copy())
		}
	}
	return bids, nil
}

// Events returns a deep copy of every event emitted so far
func (p *Protocol) Events() common.TenderEvents {
	p.rw.RLock()
	defer p.rw.RUnlock()
	cpyRaw, err := copystructure.Copy(p.events)
	if err != nil {
		panic(err)
	}
	return cpyRaw.(common.TenderEvents)
}
