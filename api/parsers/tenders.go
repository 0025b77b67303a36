package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"
)

type tenderFilter struct {
	TenderID uint64 `uri:"id" binding:"required"`
}

// ParseTenderFilter parsing the /tenders/:id request to the tender id
func ParseTenderFilter(c *gin.Context) (common.TenderID, error) {
	var tenderFilter tenderFilter
	if err := c.ShouldBindUri(&tenderFilter); err != nil {
		return 0, tracerr.Wrap(err)
	}
	return common.TenderID(tenderFilter.TenderID), nil
}

type milestoneFilter struct {
	TenderID uint64 `uri:"id" binding:"required"`
	Idx      *int   `uri:"idx" binding:"required,min=0"`
}

// ParseMilestoneFilter parsing the /tenders/:id/milestones/:idx request to
// the tender id and the milestone index
func ParseMilestoneFilter(c *gin.Context) (common.TenderID, int, error) {
	var milestoneFilter milestoneFilter
	if err := c.ShouldBindUri(&milestoneFilter); err != nil {
		return 0, 0, tracerr.Wrap(err)
	}
	return common.TenderID(milestoneFilter.TenderID), *milestoneFilter.Idx, nil
}

// TendersFilters struct to hold tenders filters
type TendersFilters struct {
	Phase      string `form:"phase"`
	WinnerAddr string `form:"winnerAddr"`
	BidderAddr string `form:"bidderAddr"`

	Pagination
}

// ParseTendersFilters function for parsing tenders filters from the request /tenders to the GetTendersAPIRequest
func ParseTendersFilters(c *gin.Context) (auditdb.GetTendersAPIRequest, error) {
	var tendersFilters TendersFilters
	if err := c.ShouldBindQuery(&tendersFilters); err != nil {
		return auditdb.GetTendersAPIRequest{}, tracerr.Wrap(err)
	}

	phase, err := common.StringToTenderPhase(tendersFilters.Phase)
	if err != nil {
		return auditdb.GetTendersAPIRequest{}, tracerr.Wrap(err)
	}

	winnerAddress, err := common.StringToEthAddr(tendersFilters.WinnerAddr)
	if err != nil {
		return auditdb.GetTendersAPIRequest{}, tracerr.Wrap(err)
	}

	bidderAddress, err := common.StringToEthAddr(tendersFilters.BidderAddr)
	if err != nil {
		return auditdb.GetTendersAPIRequest{}, tracerr.Wrap(err)
	}

	return auditdb.GetTendersAPIRequest{
		Phase:    phase,
		Winner:   winnerAddress,
		Bidder:   bidderAddress,
		FromItem: tendersFilters.FromItem,
		Order:    *tendersFilters.Order,
		Limit:    tendersFilters.Limit,
	}, nil
}
