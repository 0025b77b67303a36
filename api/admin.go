package api

import (
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common/apitypes"
)

func (a *API) postPause(c *gin.Context) {
	var body postCallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.Pause(ethCommon.Address(body.Caller)); err != nil {
		retEngineErr(err, c)
		return
	}
	c.Status(http.StatusOK)
}

func (a *API) postUnpause(c *gin.Context) {
	var body postCallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.Unpause(ethCommon.Address(body.Caller)); err != nil {
		retEngineErr(err, c)
		return
	}
	c.Status(http.StatusOK)
}

// postTransferOwnershipBody is the body of the POST /transfer-ownership request
type postTransferOwnershipBody struct {
	Caller   apitypes.StrEthAddr `json:"caller" binding:"required"`
	NewOwner apitypes.StrEthAddr `json:"newOwner" binding:"required"`
}

func (a *API) postTransferOwnership(c *gin.Context) {
	var body postTransferOwnershipBody
	if err := c.ShouldBindJSON(&body); err != nil {
		retBadReq(tracerr.Wrap(err), c)
		return
	}
	if err := a.engine.TransferOwnership(
		ethCommon.Address(body.Caller), ethCommon.Address(body.NewOwner),
	); err != nil {
		retEngineErr(err, c)
		return
	}
	c.Status(http.StatusOK)
}
