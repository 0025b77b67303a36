package api

import (
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common/apitypes"
	"github.com/procurenet/tender-node/metric"
)

// postBidderBody is the body of the POST /bidders request
type postBidderBody struct {
	Caller     apitypes.StrEthAddr `json:"caller" binding:"required"`
	BidderAddr apitypes.StrEthAddr `json:"bidderAddr" binding:"required"`
}

func (a *API) postBidder(c *gin.Context) {
	var body postBidderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.RegisterBidder(
		ethCommon.Address(body.Caller), ethCommon.Address(body.BidderAddr),
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.BiddersRegistered.Inc()
	c.Status(http.StatusOK)
}

func (a *API) getBidders(c *gin.Context) {
	// Get query parameters
	request, err := parsers.ParseBiddersFilters(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch bidders from auditDB
	bidders, pendingItems, err := a.adb.GetBiddersAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type biddersResponse struct {
		Bidders      []auditdb.BidderAPI `json:"bidders"`
		PendingItems uint64              `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &biddersResponse{
		Bidders:      bidders,
		PendingItems: pendingItems,
	})
}

func (a *API) getBidder(c *gin.Context) {
	// Get bidder address
	addr, err := parsers.ParseBidderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch bidder from auditDB
	bidder, err := a.adb.GetBidderAPI(addr)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	c.JSON(http.StatusOK, bidder)
}
