package api

import (
	"math/big"
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/common/apitypes"
	"github.com/procurenet/tender-node/metric"
)

// tenderMilestone is one milestone of the POST /tenders request body
type tenderMilestone struct {
	Description string              `json:"description" binding:"required"`
	Amount      *apitypes.StrBigInt `json:"amount" binding:"required"`
}

// postTenderBody is the body of the POST /tenders request
type postTenderBody struct {
	Caller             apitypes.StrEthAddr `json:"caller" binding:"required"`
	Title              string              `json:"title" binding:"required"`
	Description        string              `json:"description"`
	MaxBudget          *apitypes.StrBigInt `json:"maxBudget" binding:"required"`
	SubmissionDuration int64               `json:"submissionDuration" binding:"required,min=1"`
	RevealDuration     int64               `json:"revealDuration" binding:"required,min=1"`
	Milestones         []tenderMilestone   `json:"milestones" binding:"required,min=1,dive"`
}

func (a *API) postTender(c *gin.Context) {
	var body postTenderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	milestones := make([]common.Milestone, len(body.Milestones))
	for i, m := range body.Milestones {
		milestones[i] = common.Milestone{
			Description: m.Description,
			Amount:      (*big.Int)(m.Amount),
		}
	}
	tenderID, err := a.engine.CreateTender(
		ethCommon.Address(body.Caller),
		body.Title,
		body.Description,
		(*big.Int)(body.MaxBudget),
		body.SubmissionDuration,
		body.RevealDuration,
		milestones,
	)
	if err != nil {
		retEngineErr(err, c)
		return
	}
	metric.TendersCreated.Inc()
	c.JSON(http.StatusOK, gin.H{"tenderId": tenderID})
}

func (a *API) getTenders(c *gin.Context) {
	// Get query parameters
	request, err := parsers.ParseTendersFilters(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch tenders from auditDB
	tenders, pendingItems, err := a.adb.GetTendersAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type tendersResponse struct {
		Tenders      []auditdb.TenderAPI `json:"tenders"`
		PendingItems uint64              `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &tendersResponse{
		Tenders:      tenders,
		PendingItems: pendingItems,
	})
}

func (a *API) getTender(c *gin.Context) {
	// Get tender id
	tenderID, err := parsers.ParseTenderFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch tender from auditDB
	tender, err := a.adb.GetTenderAPI(tenderID)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	c.JSON(http.StatusOK, tender)
}
