package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

type bidderFilter struct {
	Addr string `uri:"bidderAddr" binding:"required"`
}

// ParseBidderFilter parsing the /bidders/:bidderAddr request to the bidder address
func ParseBidderFilter(c *gin.Context) (ethCommon.Address, error) {
	var bidderFilter bidderFilter
	if err := c.ShouldBindUri(&bidderFilter); err != nil {
		return ethCommon.Address{}, tracerr.Wrap(err)
	}
	addr, err := common.StringToEthAddr(bidderFilter.Addr)
	if err != nil {
		return ethCommon.Address{}, tracerr.Wrap(err)
	}
	return *addr, nil
}

// BiddersFilters struct to hold bidders filters
type BiddersFilters struct {
	Pagination
}

// ParseBiddersFilters function for parsing bidders filters from the request /bidders to the GetBiddersAPIRequest
func ParseBiddersFilters(c *gin.Context) (auditdb.GetBiddersAPIRequest, error) {
	var biddersFilters BiddersFilters
	if err := c.ShouldBindQuery(&biddersFilters); err != nil {
		return auditdb.GetBiddersAPIRequest{}, tracerr.Wrap(err)
	}

	return auditdb.GetBiddersAPIRequest{
		FromItem: biddersFilters.FromItem,
		Order:    *biddersFilters.Order,
		Limit:    biddersFilters.Limit,
	}, nil
}
