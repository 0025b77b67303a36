package parsers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"
)

// EventsFilters struct to hold events filters
type EventsFilters struct {
	TenderID *uint64 `form:"tenderId" binding:"omitempty,min=1"`
	Type     string  `form:"type"`
	Addr     string  `form:"addr"`

	Pagination
}

// ParseEventsFilters function for parsing events filters from the request /events to the GetEventsAPIRequest
func ParseEventsFilters(c *gin.Context) (auditdb.GetEventsAPIRequest, error) {
	var eventsFilters EventsFilters
	if err := c.ShouldBindQuery(&eventsFilters); err != nil {
		return auditdb.GetEventsAPIRequest{}, tracerr.Wrap(err)
	}

	if eventsFilters.Type != "" && !auditdb.ValidEventType(eventsFilters.Type) {
		return auditdb.GetEventsAPIRequest{}, tracerr.Wrap(fmt.Errorf(
			"invalid %s, %s is not a valid option. Check the valid options in the documentation",
			"type", eventsFilters.Type,
		))
	}

	address, err := common.StringToEthAddr(eventsFilters.Addr)
	if err != nil {
		return auditdb.GetEventsAPIRequest{}, tracerr.Wrap(err)
	}

	var tenderID *common.TenderID
	if eventsFilters.TenderID != nil {
		id := common.TenderID(*eventsFilters.TenderID)
		tenderID = &id
	}

	return auditdb.GetEventsAPIRequest{
		TenderID: tenderID,
		Type:     eventsFilters.Type,
		Addr:     address,
		FromItem: eventsFilters.FromItem,
		Order:    *eventsFilters.Order,
		Limit:    eventsFilters.Limit,
	}, nil
}
