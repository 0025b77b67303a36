package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"
	"gopkg.in/go-playground/validator.v9"
)

// BidsFilters struct to hold bids filters
type BidsFilters struct {
	TenderID   *uint64 `form:"tenderId" binding:"omitempty,min=1"`
	BidderAddr string  `form:"bidderAddr"`

	Pagination
}

// BidsFiltersStructValidation func for bids filters validation
func BidsFiltersStructValidation(sl validator.StructLevel) {
	ef := sl.Current().Interface().(BidsFilters)

	if ef.TenderID == nil && ef.BidderAddr == "" {
		sl.ReportError(ef.TenderID, "tenderId", "TenderID", "tenderidorbidderaddress", "")
		sl.ReportError(ef.BidderAddr, "bidderAddr", "BidderAddr", "tenderidorbidderaddress", "")
	}
}

// ParseBidsFilters function for parsing bids filters from the request /bids to the GetBidsAPIRequest
func ParseBidsFilters(c *gin.Context, v *validator.Validate) (auditdb.GetBidsAPIRequest, error) {
	var bidsFilters BidsFilters
	if err := c.ShouldBindQuery(&bidsFilters); err != nil {
		return auditdb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}

	if err := v.Struct(bidsFilters); err != nil {
		return auditdb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}

	bidderAddress, err := common.StringToEthAddr(bidsFilters.BidderAddr)
	if err != nil {
		return auditdb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}

	var tenderID *common.TenderID
	if bidsFilters.TenderID != nil {
		id := common.TenderID(*bidsFilters.TenderID)
		tenderID = &id
	}

	return auditdb.GetBidsAPIRequest{
		TenderID: tenderID,
		Bidder:   bidderAddress,
		FromItem: bidsFilters.FromItem,
		Order:    *bidsFilters.Order,
		Limit:    bidsFilters.Limit,
	}, nil
}
