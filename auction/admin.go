package auction

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
)

// Pause stops all mutating operations except Unpause, TransferOwnership and
// EmergencyWithdraw. Pausing an already paused protocol fails.
func (p *Protocol) Pause(caller ethCommon.Address) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(0)
	defer func() { p.revertIfErr(err, cpy) }()

	if caller != p.owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	if p.paused {
		return tracerr.Wrap(ErrAlreadyPaused)
	}
	p.paused = true
	p.events.Paused = append(p.events.Paused, common.TenderEventPaused{
		By:        caller,
		Timestamp: p.timer.Time(),
	})
	log.Infow("auction: paused", "by", caller)
	return nil
}

// Unpause resumes a paused protocol. Unpausing a running protocol fails.
func (p *Protocol) Unpause(caller ethCommon.Address) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(0)
	defer func() { p.revertIfErr(err, cpy) }()

	if caller != p.owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	if !p.paused {
		return tracerr.Wrap(ErrNotPaused)
	}
	p.paused = false
	p.events.Unpaused = append(p.events.Unpaused, common.TenderEventUnpaused{
		By:        caller,
		Timestamp: p.timer.Time(),
	})
	log.Infow("auction: unpaused", "by", caller)
	return nil
}

// TransferOwnership hands the protocol over to newOwner. It works while the
// protocol is paused so that a paused protocol can always be recovered.
func (p *Protocol) TransferOwnership(caller, newOwner ethCommon.Address) (err error) {
	p.rw.Lock()
	defer p.rw.Unlock()
	cpy := p.copyState(0)
	defer func() { p.revertIfErr(err, cpy) }()

	if caller != p.owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	if newOwner == common.EmptyAddr {
		return tracerr.Wrap(ErrZeroAddress)
	}
	oldOwner := p.owner
	p.owner = newOwner
	p.events.OwnershipTransferred = append(p.events.OwnershipTransferred,
		common.TenderEventOwnershipTransferred{
			OldOwner:  oldOwner,
			NewOwner:  newOwner,
			Timestamp: p.timer.Time(),
		})
	log.Infow("auction: ownership transferred", "from", oldOwner, "to", newOwner)
	return nil
}
