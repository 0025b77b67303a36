package auditdb

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/jmoiron/sqlx"
	"github.com/procurenet/tender-node/common"
	"github.com/russross/meddler"
)

// GetTenderAPI returns a tender with its milestone schedule from the DB
func (adb *AuditDB) GetTenderAPI(tenderID common.TenderID) (*TenderAPI, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	return adb.getTenderAPI(tenderID)
}

func (adb *AuditDB) getTenderAPI(tenderID common.TenderID) (*TenderAPI, error) {
	tender := &TenderAPI{}
	if err := meddler.QueryRow(
		adb.dbRead, tender,
		adb.dbRead.Rebind("SELECT tender.*, COUNT(*) OVER() AS total_items FROM tender WHERE tender_id = ?;"),
		tenderID,
	); err != nil {
		return nil, tracerr.Wrap(err)
	}
	milestones := []*MilestoneAPI{}
	if err := meddler.QueryAll(
		adb.dbRead, &milestones,
		adb.dbRead.Rebind("SELECT idx, description, amount, paid, paid_at FROM milestone WHERE tender_id = ? ORDER BY idx ASC;"),
		tenderID,
	); err != nil {
		return nil, tracerr.Wrap(err)
	}
	tender.Milestones = SlicePtrsToSlice(milestones).([]MilestoneAPI)
	return tender, nil
}

// GetTendersAPIRequest is an API request struct for getting tenders
type GetTendersAPIRequest struct {
	Phase  *common.TenderPhase
	Winner *ethCommon.Address
	Bidder *ethCommon.Address

	FromItem *uint
	Limit    *uint
	Order    string
}

// GetTendersAPI returns a list of tenders from the DB. The pagination
// cursor is the tender id.
func (adb *AuditDB) GetTendersAPI(
	request GetTendersAPIRequest,
) ([]TenderAPI, uint64, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	var query string
	var args []interface{}
	queryStr := `SELECT tender.*, COUNT(*) OVER() AS total_items FROM tender `
	// Apply filters
	nextIsAnd := false
	if request.Phase != nil {
		queryStr += "WHERE phase = ? "
		nextIsAnd = true
		args = append(args, *request.Phase)
	}
	if request.Winner != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += "winner = ? "
		args = append(args, request.Winner)
		nextIsAnd = true
	}
	if request.Bidder != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += "EXISTS (SELECT 1 FROM bid WHERE bid.tender_id = tender.tender_id AND bid.bidder = ?) "
		args = append(args, request.Bidder)
		nextIsAnd = true
	}
	if request.FromItem != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		if request.Order == OrderAsc {
			queryStr += "tender_id >= ? "
		} else {
			queryStr += "tender_id <= ? "
		}
		args = append(args, request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY tender_id "
	if request.Order == OrderAsc {
		queryStr += "ASC "
	} else {
		queryStr += "DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	query, argsQ, err := sqlx.In(queryStr, args...)
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	query = adb.dbRead.Rebind(query)
	tenders := []*TenderAPI{}
	if err := meddler.QueryAll(adb.dbRead, &tenders, query, argsQ...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(tenders) == 0 {
		return []TenderAPI{}, 0, nil
	}
	return SlicePtrsToSlice(tenders).([]TenderAPI),
		tenders[0].TotalItems - uint64(len(tenders)), nil
}

// GetTenderBidsAPI returns the bids of one tender in roster order. The
// roster is bounded, so the result is not paginated.
func (adb *AuditDB) GetTenderBidsAPI(tenderID common.TenderID) ([]BidAPI, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	bids := []*BidAPI{}
	if err := meddler.QueryAll(
		adb.dbRead, &bids,
		adb.dbRead.Rebind("SELECT bid.*, COUNT(*) OVER() AS total_items FROM bid WHERE tender_id = ? ORDER BY roster_idx ASC;"),
		tenderID,
	); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return SlicePtrsToSlice(bids).([]BidAPI), nil
}

// GetBidsAPIRequest is an API request struct for getting bids
type GetBidsAPIRequest struct {
	TenderID *common.TenderID
	Bidder   *ethCommon.Address

	FromItem *uint
	Limit    *uint
	Order    string
}

// GetBidsAPI returns a list of bids from the DB. A bidder holds at most one
// bid per tender, so the pagination cursor is the tender id.
func (adb *AuditDB) GetBidsAPI(
	request GetBidsAPIRequest,
) ([]BidAPI, uint64, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	var query string
	var args []interface{}
	queryStr := `SELECT bid.*, COUNT(*) OVER() AS total_items FROM bid `
	// Apply filters
	nextIsAnd := false
	if request.TenderID != nil {
		queryStr += "WHERE tender_id = ? "
		nextIsAnd = true
		args = append(args, request.TenderID)
	}
	if request.Bidder != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += "bidder = ? "
		args = append(args, request.Bidder)
		nextIsAnd = true
	}
	if request.FromItem != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		if request.Order == OrderAsc {
			queryStr += "tender_id >= ? "
		} else {
			queryStr += "tender_id <= ? "
		}
		args = append(args, request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY tender_id "
	if request.Order == OrderAsc {
		queryStr += "ASC, roster_idx ASC "
	} else {
		queryStr += "DESC, roster_idx DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	query, argsQ, err := sqlx.In(queryStr, args...)
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	query = adb.dbRead.Rebind(query)
	bids := []*BidAPI{}
	if err := meddler.QueryAll(adb.dbRead, &bids, query, argsQ...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(bids) == 0 {
		return []BidAPI{}, 0, nil
	}
	return SlicePtrsToSlice(bids).([]BidAPI),
		bids[0].TotalItems - uint64(len(bids)), nil
}

// GetEventsAPIRequest is an API request struct for getting audit trail
// entries
type GetEventsAPIRequest struct {
	TenderID *common.TenderID
	Type     string
	Addr     *ethCommon.Address

	FromItem *uint
	Limit    *uint
	Order    string
}

// GetEventsAPI returns a list of audit trail entries from the DB
func (adb *AuditDB) GetEventsAPI(
	request GetEventsAPIRequest,
) ([]EventAPI, uint64, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	var query string
	var args []interface{}
	queryStr := `SELECT tender_event.*, COUNT(*) OVER() AS total_items FROM tender_event `
	// Apply filters
	nextIsAnd := false
	if request.TenderID != nil {
		queryStr += "WHERE tender_id = ? "
		nextIsAnd = true
		args = append(args, request.TenderID)
	}
	if request.Type != "" {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += "event_type = ? "
		args = append(args, request.Type)
		nextIsAnd = true
	}
	if request.Addr != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		queryStr += "(addr = ? OR other_addr = ?) "
		args = append(args, request.Addr, request.Addr)
		nextIsAnd = true
	}
	if request.FromItem != nil {
		if nextIsAnd {
			queryStr += "AND "
		} else {
			queryStr += "WHERE "
		}
		if request.Order == OrderAsc {
			queryStr += "item_id >= ? "
		} else {
			queryStr += "item_id <= ? "
		}
		args = append(args, request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY item_id "
	if request.Order == OrderAsc {
		queryStr += "ASC "
	} else {
		queryStr += "DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	query, argsQ, err := sqlx.In(queryStr, args...)
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	query = adb.dbRead.Rebind(query)
	events := []*EventAPI{}
	if err := meddler.QueryAll(adb.dbRead, &events, query, argsQ...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(events) == 0 {
		return []EventAPI{}, 0, nil
	}
	return SlicePtrsToSlice(events).([]EventAPI),
		events[0].TotalItems - uint64(len(events)), nil
}

// GetBidderAPI returns a registered bidder from the DB
func (adb *AuditDB) GetBidderAPI(addr ethCommon.Address) (*BidderAPI, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	bidder := &BidderAPI{}
	if err := meddler.QueryRow(
		adb.dbRead, bidder,
		adb.dbRead.Rebind("SELECT bidder.*, COUNT(*) OVER() AS total_items FROM bidder WHERE addr = ?;"),
		addr,
	); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return bidder, nil
}

// GetBiddersAPIRequest is an API request struct for getting the bidder
// registry
type GetBiddersAPIRequest struct {
	FromItem *uint
	Limit    *uint
	Order    string
}

// GetBiddersAPI returns the bidder registry from the DB in registration
// order
func (adb *AuditDB) GetBiddersAPI(
	request GetBiddersAPIRequest,
) ([]BidderAPI, uint64, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	var args []interface{}
	queryStr := `SELECT bidder.*, COUNT(*) OVER() AS total_items FROM bidder `
	if request.FromItem != nil {
		if request.Order == OrderAsc {
			queryStr += "WHERE item_id >= ? "
		} else {
			queryStr += "WHERE item_id <= ? "
		}
		args = append(args, request.FromItem)
	}
	// pagination
	queryStr += "ORDER BY item_id "
	if request.Order == OrderAsc {
		queryStr += "ASC "
	} else {
		queryStr += "DESC "
	}
	queryStr += fmt.Sprintf("LIMIT %d;", *request.Limit)
	query := adb.dbRead.Rebind(queryStr)
	bidders := []*BidderAPI{}
	if err := meddler.QueryAll(adb.dbRead, &bidders, query, args...); err != nil {
		return nil, 0, tracerr.Wrap(err)
	}
	if len(bidders) == 0 {
		return []BidderAPI{}, 0, nil
	}
	return SlicePtrsToSlice(bidders).([]BidderAPI),
		bidders[0].TotalItems - uint64(len(bidders)), nil
}

// GetStatsAPI returns aggregate counters of the audit database
func (adb *AuditDB) GetStatsAPI() (*Stats, error) {
	cancel, err := adb.apiConnCon.Acquire()
	defer cancel()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer adb.apiConnCon.Release()
	stats := &Stats{}
	if err := meddler.QueryRow(
		adb.dbRead, stats,
		`SELECT
			(SELECT COUNT(*) FROM tender) AS tenders,
			(SELECT COUNT(*) FROM tender WHERE phase != 'COMPLETED') AS open_tenders,
			(SELECT COUNT(*) FROM bidder) AS bidders,
			(SELECT COUNT(*) FROM tender_event) AS events,
			(SELECT COALESCE(MAX(item_id), 0) FROM tender_event) AS last_event_item;`,
	); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return stats, nil
}
