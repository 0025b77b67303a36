package auction

import (
	"fmt"
	"math/big"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/ledgersim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerAddr = ethCommon.HexToAddress("0x74a44B9B251a16F0F4732b882eDa7079644B737b")
	bidder1   = ethCommon.HexToAddress("0x6813Eb9362372EEF6200f3b1dbC3f819671cBA69")
	bidder2   = ethCommon.HexToAddress("0x1efF47bc3a10a45D4B230B5d10E37751FE6AA718")
	bidder3   = ethCommon.HexToAddress("0xe5904695748fe4A84b40b3fc79De2277660BD1D3")
	bidder4   = ethCommon.HexToAddress("0x92561F28Ec438Ee9831D00D1D59fbDC981b762b2")
	outsider  = ethCommon.HexToAddress("0x2fFd013AaA7B5a7DA93336C2251075202b33FB2B")
)

const startTime int64 = 1000000

const (
	subDuration int64 = 3600
	revDuration int64 = 3600
)

func newTestProtocol(t *testing.T) (*Protocol, *ledgersim.Ledger, *ledgersim.CtlTimer) {
	timer := ledgersim.NewCtlTimer(startTime)
	ledger := ledgersim.NewLedger()
	p, err := New(ownerAddr, timer, ledger)
	require.NoError(t, err)
	return p, ledger, timer
}

// newTestTender creates a tender with a 10000 budget split over two
// milestones of 4000 and 6000
func newTestTender(t *testing.T, p *Protocol) common.TenderID {
	id, err := p.CreateTender(ownerAddr, "ring road resurfacing",
		"resurfacing of the northern ring road",
		big.NewInt(10000), subDuration, revDuration,
		[]common.Milestone{
			{Description: "site mobilization", Amount: big.NewInt(4000)},
			{Description: "final delivery", Amount: big.NewInt(6000)},
		})
	require.NoError(t, err)
	return id
}

func registerBidders(t *testing.T, p *Protocol, bidders ...ethCommon.Address) {
	for _, bidder := range bidders {
		require.NoError(t, p.RegisterBidder(ownerAddr, bidder))
	}
}

func testNonce(i int) []byte {
	return []byte(fmt.Sprintf("nonce-%d", i))
}

func testAddr(i int64) ethCommon.Address {
	return ethCommon.BigToAddress(big.NewInt(i))
}

func submitBid(t *testing.T, p *Protocol, id common.TenderID,
	bidder ethCommon.Address, amount *big.Int, nonce []byte) {
	commit, err := common.BidCommitment(amount, nonce)
	require.NoError(t, err)
	require.NoError(t, p.SubmitBid(bidder, id, commit))
}

type testBid struct {
	bidder ethCommon.Address
	amount *big.Int
}

// runAuction drives a fresh tender through commit, reveal and winner
// selection with the given bids, submitted in order, and returns its ID
func runAuction(t *testing.T, p *Protocol, timer *ledgersim.CtlTimer,
	bids []testBid) common.TenderID {
	id := newTestTender(t, p)
	for i, b := range bids {
		if !p.IsRegistered(b.bidder) {
			registerBidders(t, p, b.bidder)
		}
		submitBid(t, p, id, b.bidder, b.amount, testNonce(i))
	}
	tender, err := p.Tender(id)
	require.NoError(t, err)
	timer.CtlSetTime(tender.SubmissionDeadline)
	for i, b := range bids {
		require.NoError(t, p.RevealBid(b.bidder, id, b.amount, testNonce(i)))
	}
	timer.CtlSetTime(tender.RevealDeadline)
	_, err = p.SelectWinner(ownerAddr, id)
	require.NoError(t, err)
	return id
}

// fundTender deposits amount on the owner account and funds the tender
func fundTender(t *testing.T, p *Protocol, l *ledgersim.Ledger,
	id common.TenderID, amount *big.Int) {
	require.NoError(t, l.Deposit(ownerAddr, amount))
	require.NoError(t, p.FundTender(ownerAddr, id, amount))
}

func TestNew(t *testing.T) {
	timer := ledgersim.NewCtlTimer(startTime)
	ledger := ledgersim.NewLedger()

	_, err := New(common.EmptyAddr, timer, ledger)
	assert.Equal(t, ErrZeroAddress, tracerr.Unwrap(err))
	_, err = New(ownerAddr, nil, ledger)
	assert.Error(t, err)
	_, err = New(ownerAddr, timer, nil)
	assert.Error(t, err)

	p, err := New(ownerAddr, timer, ledger)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, p.Owner())
	assert.False(t, p.Paused())
	assert.Equal(t, uint64(0), p.TenderCount())
	assert.Equal(t, startTime, p.Time())
	assert.Equal(t, 0, len(p.Tenders()))
}

func TestLazyPhaseReads(t *testing.T) {
	p, _, timer := newTestProtocol(t)
	id := newTestTender(t, p)

	tender, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseBidSubmission, tender.Phase)

	// the reported phase follows the clock without any mutating call
	timer.CtlSetTime(tender.SubmissionDeadline)
	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseBidReveal, tender.Phase)

	timer.CtlSetTime(tender.RevealDeadline)
	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseWinnerSelection, tender.Phase)

	tenders := p.Tenders()
	require.Equal(t, 1, len(tenders))
	assert.Equal(t, common.PhaseWinnerSelection, tenders[0].Phase)

	// the clock never reaches further than winner selection on its own
	timer.CtlAdvance(common.EmergencyGracePeriod * 2)
	tender, err = p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, common.PhaseWinnerSelection, tender.Phase)
}

func TestReads(t *testing.T) {
	p, _, _ := newTestProtocol(t)

	_, err := p.Tender(42)
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))
	_, err = p.Bid(42, bidder1)
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))
	_, err = p.TenderBids(42)
	assert.Equal(t, ErrTenderNotFound, tracerr.Unwrap(err))

	id := newTestTender(t, p)
	registerBidders(t, p, bidder2, bidder1)

	// bidders are reported sorted by address
	bidders := p.Bidders()
	require.Equal(t, 2, len(bidders))
	assert.Equal(t, bidder2, bidders[0])
	assert.Equal(t, bidder1, bidders[1])
	assert.True(t, p.IsRegistered(bidder1))
	assert.False(t, p.IsRegistered(outsider))

	_, err = p.Bid(id, bidder1)
	assert.Equal(t, ErrNoCommitment, tracerr.Unwrap(err))

	submitBid(t, p, id, bidder2, big.NewInt(9000), testNonce(0))
	submitBid(t, p, id, bidder1, big.NewInt(8000), testNonce(1))

	// bids are reported in roster order, the order of submission
	bids, err := p.TenderBids(id)
	require.NoError(t, err)
	require.Equal(t, 2, len(bids))
	assert.Equal(t, bidder2, bids[0].Bidder)
	assert.Equal(t, bidder1, bids[1].Bidder)
	assert.False(t, bids[0].Revealed)

	bid, err := p.Bid(id, bidder2)
	require.NoError(t, err)
	assert.Equal(t, bidder2, bid.Bidder)
	assert.Equal(t, id, bid.TenderID)

	assert.Equal(t, uint64(1), p.TenderCount())
}

func TestReadsReturnCopies(t *testing.T) {
	p, _, _ := newTestProtocol(t)
	id := newTestTender(t, p)
	registerBidders(t, p, bidder1)
	submitBid(t, p, id, bidder1, big.NewInt(9000), testNonce(0))

	tender, err := p.Tender(id)
	require.NoError(t, err)
	tender.MaxBudget.SetInt64(1)
	tender.Milestones[0].Amount.SetInt64(1)
	tender.Roster[0] = outsider

	fresh, err := p.Tender(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), fresh.MaxBudget)
	assert.Equal(t, big.NewInt(4000), fresh.Milestones[0].Amount)
	assert.Equal(t, bidder1, fresh.Roster[0])

	bid, err := p.Bid(id, bidder1)
	require.NoError(t, err)
	bid.CommitHash = common.EmptyHash
	fresh2, err := p.Bid(id, bidder1)
	require.NoError(t, err)
	assert.NotEqual(t, common.EmptyHash, fresh2.CommitHash)
}

func TestEventsDeepCopy(t *testing.T) {
	p, _, _ := newTestProtocol(t)
	newTestTender(t, p)

	events := p.Events()
	require.Equal(t, 1, len(events.Created))
	events.Created[0].MaxBudget.SetInt64(1)
	events.Created[0].Title = "tampered"

	fresh := p.Events()
	assert.Equal(t, big.NewInt(10000), fresh.Created[0].MaxBudget)
	assert.Equal(t, "ring road resurfacing", fresh.Created[0].Title)
}
