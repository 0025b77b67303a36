package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/auditdb"
)

func (a *API) getEvents(c *gin.Context) {
	// Get query parameters
	request, err := parsers.ParseEventsFilters(c)
	if err != nil {
		retBadReq(err, c)
		return
	}

	// Fetch events from auditDB
	events, pendingItems, err := a.adb.GetEventsAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type eventsResponse struct {
		Events       []auditdb.EventAPI `json:"events"`
		PendingItems uint64             `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &eventsResponse{
		Events:       events,
		PendingItems: pendingItems,
	})
}
