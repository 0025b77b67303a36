package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api/parsers"
	"github.com/procurenet/tender-node/auction"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/log"
	"github.com/procurenet/tender-node/metric"
	"gopkg.in/go-playground/validator.v9"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	validate.RegisterStructValidation(parsers.BidsFiltersStructValidation, parsers.BidsFilters{})
	return validate
}

func retSQLErr(err error, c *gin.Context) {
	metric.CollectError(err)
	log.Warnw("HTTP API: retSQLErr", "err", err)
	errMsg := tracerr.Unwrap(err)
	if errMsg.Error() == errCtxTimeout {
		c.JSON(http.StatusServiceUnavailable, apiErrorResponse{
			Message: ErrSQLTimeout,
			Code:    ErrSQLTimeoutCode,
			Type:    ErrSQLTimeoutType,
		})
	} else if errMsg == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, apiErrorResponse{
			Message: errMsg.Error(),
			Code:    ErrSQLNoRowsCode,
			Type:    ErrSQLNoRowsType,
		})
	} else {
		c.JSON(http.StatusInternalServerError, apiErrorResponse{
			Message: errMsg.Error(),
			Code:    ErrInternalCode,
			Type:    ErrInternalType,
		})
	}
}

func retBadReq(err error, c *gin.Context) {
	metric.CollectError(err)
	log.Warnw("HTTP API: retBadReq", "err", err)
	c.JSON(http.StatusBadRequest, apiErrorResponse{
		Message: err.Error(),
		Code:    ErrParamValidationFailedCode,
		Type:    ErrParamValidationFailedType,
	})
}

// retEngineErr maps the auction engine errors to HTTP status codes. Errors
// that don't match a known engine error are reported as internal, including
// failed value transfers.
func retEngineErr(err error, c *gin.Context) {
	metric.CollectError(err)
	log.Warnw("HTTP API: retEngineErr", "err", err)
	cause := tracerr.Unwrap(err)
	switch cause {
	case auction.ErrNotOwner, auction.ErrNotRegistered:
		c.JSON(http.StatusForbidden, apiErrorResponse{
			Message: cause.Error(),
			Code:    ErrForbiddenCode,
			Type:    ErrForbiddenType,
		})
	case auction.ErrTenderNotFound, auction.ErrNoCommitment:
		c.JSON(http.StatusNotFound, apiErrorResponse{
			Message: cause.Error(),
			Code:    ErrNotFoundCode,
			Type:    ErrNotFoundType,
		})
	case auction.ErrZeroAddress, auction.ErrInvalidBudget, auction.ErrInvalidDuration,
		auction.ErrNoMilestones, auction.ErrInvalidMilestoneAmount,
		auction.ErrMilestoneSumMismatch, auction.ErrEmptyCommit,
		auction.ErrCommitMismatch, auction.ErrAmountMismatch,
		auction.ErrInvalidMilestone,
		common.ErrNegativeAmount, common.ErrAmountOverflow, common.ErrEmptyNonce:
		c.JSON(http.StatusBadRequest, apiErrorResponse{
			Message: cause.Error(),
			Code:    ErrParamValidationFailedCode,
			Type:    ErrParamValidationFailedType,
		})
	case auction.ErrPaused, auction.ErrAlreadyPaused, auction.ErrNotPaused,
		auction.ErrWrongPhase, auction.ErrDeadlinePassed, auction.ErrDeadlineNotReached,
		auction.ErrAlreadyRegistered, auction.ErrAlreadySubmitted, auction.ErrRosterFull,
		auction.ErrAlreadyRevealed, auction.ErrNoValidBids, auction.ErrWinnerAlreadySelected,
		auction.ErrAlreadyFunded, auction.ErrNotFunded,
		auction.ErrMilestonePaid, auction.ErrInsufficientEscrow,
		auction.ErrNothingToWithdraw, auction.ErrReentrantCall:
		c.JSON(http.StatusConflict, apiErrorResponse{
			Message: cause.Error(),
			Code:    ErrStateConflictCode,
			Type:    ErrStateConflictType,
		})
	default:
		c.JSON(http.StatusInternalServerError, apiErrorResponse{
			Message: cause.Error(),
			Code:    ErrInternalCode,
			Type:    ErrInternalType,
		})
	}
}
