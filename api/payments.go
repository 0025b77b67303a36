package api

import (
	"math/big"
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/common/apitypes"
	"github.com/procurenet/tender-node/metric"
)

// postFundBody is the body of the POST /tenders/:id/fund request
type postFundBody struct {
	Caller apitypes.StrEthAddr `json:"caller" binding:"required"`
	Amount *apitypes.StrBigInt `json:"amount" binding:"required"`
}

func (a *API) postFund(c *gin.Context) {
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	var body postFundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.FundTender(
		ethCommon.Address(body.Caller), tenderID, (*big.Int)(body.Amount),
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.TendersFunded.Inc()
	c.Status(http.StatusOK)
}

// postCallerBody is the body of the operator requests that only carry the
// caller address
type postCallerBody struct {
	Caller apitypes.StrEthAddr `json:"caller" binding:"required"`
}

func (a *API) postPayMilestone(c *gin.Context) {
	tenderID, index, err := parsers.ParseMilestoneFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	var body postCallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.ReleaseMilestonePayment(
		ethCommon.Address(body.Caller), tenderID, index,
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.MilestonePayments.Inc()
	c.Status(http.StatusOK)
}

func (a *API) postEmergencyWithdrawal(c *gin.Context) {
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
	if err := a.engine.EmergencyWithdraw(
		ethCommon.Address(body.Caller), tenderID,
	); err != nil {
		retEngineErr(err, c)
		return
	}
	metric.EmergencyWithdrawals.Inc()
	c.Status(http.StatusOK)
}
