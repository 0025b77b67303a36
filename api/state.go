package api

import (
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/jinzhu/copier"
)

// StateAPI is the response of the GET /state endpoint: the audit trail
// counters plus, when the node serves a live engine, its current control
// state and clock.
type StateAPI struct {
	Tenders       int64 `json:"tenders"`
	OpenTenders   int64 `json:"openTenders"`
	Bidders       int64 `json:"bidders"`
	Events        int64 `json:"events"`
	LastEventItem int64 `json:"lastEventItem"`

	Owner       *ethCommon.Address `json:"owner,omitempty"`
	Paused      *bool              `json:"paused,omitempty"`
	LedgerTime  *int64             `json:"ledgerTime,omitempty"`
	TenderCount *uint64            `json:"tenderCount,omitempty"`
}

func (a *API) getState(c *gin.Context) {
	stats, err := a.adb.GetStatsAPI()
	if err != nil {
		retSQLErr(err, c)
		return
	}
	var state StateAPI
	if err := copier.Copy(&state, stats); err != nil {
		retSQLErr(tracerr.Wrap(err), c)
		return
	}
	// The audit trail can lag the engine by one recorder interval, so the
	// live engine state is reported alongside it when available
	if a.engine != nil {
		owner := a.engine.Owner()
		paused := a.engine.Paused()
		now := a.engine.Time()
		count := a.engine.TenderCount()
		state.Owner = &owner
		state.Paused = &paused
		state.LedgerTime = &now
		state.TenderCount = &count
	}
	c.JSON(http.StatusOK, &state)
}
