package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/auction"
	"github.com/procurenet/tender-node/auditdb"
	"gopkg.in/go-playground/validator.v9"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API serves HTTP requests to allow external interaction with the tender node
type API struct {
	engine   *auction.Protocol
	adb      *auditdb.AuditDB
	validate *validator.Validate
	version  string
}

// NewAPI sets the endpoints and the appropriate handlers, but doesn't start the server
func NewAPI(
	version string,
	operatorEndpoints, explorerEndpoints bool,
	server *gin.Engine,
	engine *auction.Protocol,
	adb *auditdb.AuditDB,
) (*API, error) {
	// Check input
	if operatorEndpoints && engine == nil {
		return nil, tracerr.Wrap(errors.New("cannot serve Operator endpoints without the auction engine"))
	}
	if explorerEndpoints && adb == nil {
		return nil, tracerr.Wrap(errors.New("cannot serve Explorer endpoints without the AuditDB"))
	}
	a := &API{
		engine:   engine,
		adb:      adb,
		validate: newValidate(),
		version:  version,
	}

	server.NoRoute(a.noRoute)

	v1 := server.Group("/v1")

	v1.GET("/health", gin.WrapH(a.healthRoute(version)))
	v1.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Add operator endpoints
	if operatorEndpoints {
		// Tender lifecycle
		v1.POST("/tenders", a.postTender)
		v1.POST("/tenders/:id/winner", a.postWinner)
		v1.POST("/tenders/:id/fund", a.postFund)
		v1.POST("/tenders/:id/milestones/:idx/pay", a.postPayMilestone)
		v1.POST("/tenders/:id/emergency-withdrawal", a.postEmergencyWithdrawal)
		// Bidding
		v1.POST("/bidders", a.postBidder)
		v1.POST("/tenders/:id/bids", a.postBid)
		v1.POST("/tenders/:id/reveals", a.postReveal)
		// Admin
		v1.POST("/pause", a.postPause)
		v1.POST("/unpause", a.postUnpause)
		v1.POST("/transfer-ownership", a.postTransferOwnership)
	}

	// Add explorer endpoints
	if explorerEndpoints {
		// Tender
		v1.GET("/tenders", a.getTenders)
		v1.GET("/tenders/:id", a.getTender)
		v1.GET("/tenders/:id/bids", a.getTenderBids)
		// Bidding
		v1.GET("/bids", a.getBids)
		v1.GET("/bidders", a.getBidders)
		v1.GET("/bidders/:bidderAddr", a.getBidder)
		// Audit trail
		v1.GET("/events", a.getEvents)
		// Status
		v1.GET("/state", a.getState)
	}

	return a, nil
}
