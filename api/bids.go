package api

import (
	"math/big"
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common/apitypes"
	"github.com/procurenet/tender-node/metric"
)

// postBidBody is the body of the POST /tenders/:id/bids request
type postBidBody struct {
	Caller     apitypes.StrEthAddr `json:"caller" binding:"required"`
	CommitHash ethCommon.Hash      `json:"commitHash" binding:"required"`
}

func (a *API) postBid(c *gin.Context) {
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	var body postBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.SubmitBid(
		ethCommon.Address(body.Caller), tenderID, body.CommitHash,
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.BidsCommitted.Inc()
	c.Status(http.StatusOK)
}

// postRevealBody is the body of the POST /tenders/:id/reveals request
type postRevealBody struct {
	Caller apitypes.StrEthAddr `json:"caller" binding:"required"`
	Amount *apitypes.StrBigInt `json:"amount" binding:"required"`
	Nonce  apitypes.HexBytes   `json:"nonce" binding:"required"`
}

func (a *API) postReveal(c *gin.Context) {
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	var body postRevealBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	caller := ethCommon.Address(body.Caller)
	if err := a.engine.RevealBid(
		caller, tenderID, (*big.Int)(body.Amount), body.Nonce,
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.BidsRevealed.Inc()

	// Report whether the revealed bid respects the budget ceiling
	bid, err := a.engine.Bid(tenderID, caller)
	if err != nil {
		retEngineErr(err, c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": bid.Valid})
}

func (a *API) getBids(c *gin.Context) {
	// Get query parameters
	request, err := parsers.ParseBidsFilters(c, a.validate)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch bids from auditDB
	bids, pendingItems, err := a.adb.GetBidsAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type bidsResponse struct {
		Bids         []auditdb.BidAPI `json:"bids"`
		PendingItems uint64           `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &bidsResponse{
		Bids:         bids,
		PendingItems: pendingItems,
	})
}

func (a *API) getTenderBids(c *gin.Context) {
	// Get tender id
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch the bid roster from auditDB
	bids, err := a.adb.GetTenderBidsAPI(tenderID)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	type tenderBidsResponse struct {
		Bids []auditdb.BidAPI `json:"bids"`
	}
	c.JSON(http.StatusOK, &tenderBidsResponse{Bids: bids})
}
