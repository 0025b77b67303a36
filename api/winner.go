package api

import (
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/common/apitypes"
	"github.com/procurenet/tender-node/metric"
)

func (a *API) postWinner(c *gin.Context) {
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	var body postCallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	winner, err := a.engine.SelectWinner(ethCommon.Address(body.Caller), tenderID)
	if err != nil {
		retEngineErr(err, c)
		return
	}
	metric.WinnersSelected.Inc()

	// Report the winning amount along with the winner
	bid, err := a.engine.Bid(tenderID, winner)
	if err != nil {
		retEngineErr(err, c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"winner":     winner,
		"winningBid": apitypes.NewBigIntStr(bid.RevealedAmount),
	})
}
