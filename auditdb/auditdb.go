package auditdb

import (
	"errors"
	"sort"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/jmoiron/sqlx"
	"github.com/procurenet/tender-node/common"
	"github.com/russross/meddler"
)

// ErrAuditAhead is returned by Sync when the database holds more events of
// some type than the engine reports. The database belongs to an earlier run
// of the engine and must be reset before recording can resume.
var ErrAuditAhead = errors.New("auditdb: database is ahead of the engine event log")

// Source is the view of the tender engine that the recorder needs. It is
// satisfied by auction.Protocol.
type Source interface {
	Events() common.TenderEvents
	Tender(id common.TenderID) (*common.Tender, error)
	TenderBids(id common.TenderID) ([]common.Bid, error)
}

// AuditDB persists the audit trail of the tender engine: the flattened
// event log plus a queryable snapshot of every tender, its milestones and
// its bids. The event tables are append only, the snapshot tables are
// rewritten for each tender touched by new events.
type AuditDB struct {
	dbRead     *sqlx.DB
	dbWrite    *sqlx.DB
	apiConnCon *APIConnectionController

	mutex sync.Mutex
	// recorded counts, per event type, of the engine events already
	// flattened into the tender_event table
	recorded map[string]int
	lastItem uint64
}

// NewAuditDB initializes the audit database, recovering the recording
// position from the tender_event table so that Sync resumes where a
// previous run left off.
func NewAuditDB(dbRead, dbWrite *sqlx.DB, apiConnCon *APIConnectionController) (*AuditDB, error) {
	adb := &AuditDB{
		dbRead:     dbRead,
		dbWrite:    dbWrite,
		apiConnCon: apiConnCon,
		recorded:   make(map[string]int),
	}
	rows, err := dbRead.Query("SELECT event_type, COUNT(*) FROM tender_event GROUP BY event_type;")
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer RowsClose(rows)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, tracerr.Wrap(err)
		}
		adb.recorded[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, tracerr.Wrap(err)
	}
	row := dbRead.QueryRow("SELECT COALESCE(MAX(item_id), 0) FROM tender_event;")
	if err := row.Scan(&adb.lastItem); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return adb, nil
}

// DB returns a pointer to the write handle of the AuditDB. This method
// should be used only for internal testing purposes.
func (adb *AuditDB) DB() *sqlx.DB {
	return adb.dbWrite
}

// LastItemID returns the item_id of the last recorded event, 0 when the
// trail is empty.
func (adb *AuditDB) LastItemID() uint64 {
	adb.mutex.Lock()
	defer adb.mutex.Unlock()
	return adb.lastItem
}

// Sync flattens the engine events emitted since the previous call into the
// tender_event table, appends new registry entries to the bidder table, and
// rewrites the snapshot of every tender touched by the new events. All the
// writes of one call are a single transaction. It returns the number of
// events recorded.
//
// The engine keeps serving operations while Sync runs, so a tender snapshot
// can be slightly ahead of the recorded trail. The next call converges
// them.
func (adb *AuditDB) Sync(src Source) (n int, err error) {
	adb.mutex.Lock()
	defer adb.mutex.Unlock()

	evs := src.Events()
	if err := adb.checkRecorded(&evs); err != nil {
		return 0, tracerr.Wrap(err)
	}

	touched := make(map[common.TenderID]int64)
	touch := func(id common.TenderID, ts int64) {
		if ts > touched[id] {
			touched[id] = ts
		}
	}

	// Flatten the new events of each type, in lifecycle order so that the
	// stable sort below keeps causally related events sequenced when they
	// share a timestamp.
	var pending []EventRow
	for _, ev := range evs.Created[adb.recorded[EventTenderCreated]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventTenderCreated,
			TenderID:  tenderIDPtr(ev.TenderID),
			Amount:    ev.MaxBudget,
			Timestamp: ev.Timestamp,
		})
	}
	newRegs := evs.BidderRegistered[adb.recorded[EventBidderRegistered]:]
	for _, ev := range newRegs {
		pending = append(pending, EventRow{
			Type:      EventBidderRegistered,
			Addr:      addrPtr(ev.Bidder),
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.BidCommitted[adb.recorded[EventBidCommitted]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:       EventBidCommitted,
			TenderID:   tenderIDPtr(ev.TenderID),
			Addr:       addrPtr(ev.Bidder),
			CommitHash: hashPtr(ev.CommitHash),
			Timestamp:  ev.Timestamp,
		})
	}
	for _, ev := range evs.BidRevealed[adb.recorded[EventBidRevealed]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventBidRevealed,
			TenderID:  tenderIDPtr(ev.TenderID),
			Addr:      addrPtr(ev.Bidder),
			Amount:    ev.Amount,
			Valid:     boolPtr(ev.Valid),
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.WinnerSelected[adb.recorded[EventWinnerSelected]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventWinnerSelected,
			TenderID:  tenderIDPtr(ev.TenderID),
			Addr:      addrPtr(ev.Winner),
			Amount:    ev.Amount,
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.Funded[adb.recorded[EventTenderFunded]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventTenderFunded,
			TenderID:  tenderIDPtr(ev.TenderID),
			Addr:      addrPtr(ev.Funder),
			Amount:    ev.Amount,
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.MilestonePaid[adb.recorded[EventMilestonePaid]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:         EventMilestonePaid,
			TenderID:     tenderIDPtr(ev.TenderID),
			Addr:         addrPtr(ev.Recipient),
			Amount:       ev.Amount,
			MilestoneIdx: intPtr(ev.Milestone),
			Timestamp:    ev.Timestamp,
		})
	}
	for _, ev := range evs.Completed[adb.recorded[EventTenderCompleted]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventTenderCompleted,
			TenderID:  tenderIDPtr(ev.TenderID),
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.EmergencyWithdrawal[adb.recorded[EventEmergencyWithdrawal]:] {
		touch(ev.TenderID, ev.Timestamp)
		pending = append(pending, EventRow{
			Type:      EventEmergencyWithdrawal,
			TenderID:  tenderIDPtr(ev.TenderID),
			Addr:      addrPtr(ev.Recipient),
			Amount:    ev.Amount,
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.Paused[adb.recorded[EventPaused]:] {
		pending = append(pending, EventRow{
			Type:      EventPaused,
			Addr:      addrPtr(ev.By),
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.Unpaused[adb.recorded[EventUnpaused]:] {
		pending = append(pending, EventRow{
			Type:      EventUnpaused,
			Addr:      addrPtr(ev.By),
			Timestamp: ev.Timestamp,
		})
	}
	for _, ev := range evs.OwnershipTransferred[adb.recorded[EventOwnershipTransferred]:] {
		pending = append(pending, EventRow{
			Type:      EventOwnershipTransferred,
			Addr:      addrPtr(ev.NewOwner),
			OtherAddr: addrPtr(ev.OldOwner),
			Timestamp: ev.Timestamp,
		})
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Timestamp < pending[j].Timestamp
	})
	for i := range pending {
		pending[i].ItemID = adb.lastItem + uint64(i) + 1
	}

	bidderRows := make([]BidderRow, len(newRegs))
	nextBidder := uint64(adb.recorded[EventBidderRegistered])
	for i, ev := range newRegs {
		bidderRows[i] = BidderRow{
			ItemID:       nextBidder + uint64(i) + 1,
			Addr:         ev.Bidder,
			RegisteredAt: ev.Timestamp,
		}
	}

	touchedIDs := make([]common.TenderID, 0, len(touched))
	for id := range touched {
		touchedIDs = append(touchedIDs, id)
	}
	sort.Slice(touchedIDs, func(i, j int) bool { return touchedIDs[i] < touchedIDs[j] })

	txn, err := adb.dbWrite.Beginx()
	if err != nil {
		return 0, tracerr.Wrap(err)
	}
	defer func() {
		if err != nil {
			Rollback(txn)
		}
	}()

	for i := range pending {
		if err = meddler.Insert(txn, "tender_event", &pending[i]); err != nil {
			return 0, tracerr.Wrap(err)
		}
	}
	for i := range bidderRows {
		if err = meddler.Insert(txn, "bidder", &bidderRows[i]); err != nil {
			return 0, tracerr.Wrap(err)
		}
	}
	for _, id := range touchedIDs {
		if err = adb.snapshotTender(txn, src, id, touched[id]); err != nil {
			return 0, tracerr.Wrap(err)
		}
	}
	if err = txn.Commit(); err != nil {
		return 0, tracerr.Wrap(err)
	}

	adb.recorded[EventTenderCreated] = len(evs.Created)
	adb.recorded[EventBidderRegistered] = len(evs.BidderRegistered)
	adb.recorded[EventBidCommitted] = len(evs.BidCommitted)
	adb.recorded[EventBidRevealed] = len(evs.BidRevealed)
	adb.recorded[EventWinnerSelected] = len(evs.WinnerSelected)
	adb.recorded[EventTenderFunded] = len(evs.Funded)
	adb.recorded[EventMilestonePaid] = len(evs.MilestonePaid)
	adb.recorded[EventTenderCompleted] = len(evs.Completed)
	adb.recorded[EventEmergencyWithdrawal] = len(evs.EmergencyWithdrawal)
	adb.recorded[EventPaused] = len(evs.Paused)
	adb.recorded[EventUnpaused] = len(evs.Unpaused)
	adb.recorded[EventOwnershipTransferred] = len(evs.OwnershipTransferred)
	adb.lastItem += uint64(len(pending))
	return len(pending), nil
}

// checkRecorded verifies that the engine event log contains at least as
// many events of each type as the database has recorded.
func (adb *AuditDB) checkRecorded(evs *common.TenderEvents) error {
	lens := map[string]int{
		EventTenderCreated:        len(evs.Created),
		EventBidderRegistered:     len(evs.BidderRegistered),
		EventBidCommitted:         len(evs.BidCommitted),
		EventBidRevealed:          len(evs.BidRevealed),
		EventWinnerSelected:       len(evs.WinnerSelected),
		EventTenderFunded:         len(evs.Funded),
		EventMilestonePaid:        len(evs.MilestonePaid),
		EventTenderCompleted:      len(evs.Completed),
		EventEmergencyWithdrawal:  len(evs.EmergencyWithdrawal),
		EventPaused:               len(evs.Paused),
		EventUnpaused:             len(evs.Unpaused),
		EventOwnershipTransferred: len(evs.OwnershipTransferred),
	}
	for _, eventType := range eventTypeOrder {
		if adb.recorded[eventType] > lens[eventType] {
			return tracerr.Wrap(ErrAuditAhead)
		}
	}
	return nil
}

// snapshotTender replaces the stored snapshot of one tender with its
// current engine state.
func (adb *AuditDB) snapshotTender(txn *sqlx.Tx, src Source, id common.TenderID, updatedAt int64) error {
	tender, err := src.Tender(id)
	if err != nil {
		return tracerr.Wrap(err)
	}
	bids, err := src.TenderBids(id)
	if err != nil {
		return tracerr.Wrap(err)
	}

	tenderRow := &TenderRow{
		TenderID:            tender.ID,
		Title:               tender.Title,
		Description:         tender.Description,
		MaxBudget:           tender.MaxBudget,
		SubmissionDeadline:  tender.SubmissionDeadline,
		RevealDeadline:      tender.RevealDeadline,
		Phase:               tender.Phase,
		Winner:              tender.Winner,
		FundedAmount:        tender.FundedAmount,
		MilestonesCompleted: tender.MilestonesCompleted,
		BidderCount:         len(tender.Roster),
		CreatedAt:           tender.CreatedAt,
		UpdatedAt:           updatedAt,
	}
	if tender.Winner != nil {
		for i := range bids {
			if bids[i].Bidder == *tender.Winner {
				tenderRow.WinningBid = bids[i].RevealedAmount
				break
			}
		}
	}
	if tenderRow.UpdatedAt < tender.CreatedAt {
		tenderRow.UpdatedAt = tender.CreatedAt
	}

	for _, table := range []string{"milestone", "bid", "tender"} {
		query := txn.Rebind("DELETE FROM " + table + " WHERE tender_id = ?;")
		if _, err := txn.Exec(query, id); err != nil {
			return tracerr.Wrap(err)
		}
	}
	if err := meddler.Insert(txn, "tender", tenderRow); err != nil {
		return tracerr.Wrap(err)
	}
	for i, milestone := range tender.Milestones {
		row := &MilestoneRow{
			TenderID:    tender.ID,
			Idx:         i,
			Description: milestone.Description,
			Amount:      milestone.Amount,
			Paid:        milestone.Paid,
			PaidAt:      milestone.PaidAt,
		}
		if err := meddler.Insert(txn, "milestone", row); err != nil {
			return tracerr.Wrap(err)
		}
	}
	for i := range bids {
		row := &BidRow{
			TenderID:       bids[i].TenderID,
			RosterIdx:      i,
			Bidder:         bids[i].Bidder,
			CommitHash:     bids[i].CommitHash,
			Revealed:       bids[i].Revealed,
			RevealedAmount: bids[i].RevealedAmount,
			Valid:          bids[i].Valid,
			RevealedAt:     bids[i].RevealedAt,
		}
		if err := meddler.Insert(txn, "bid", row); err != nil {
			return tracerr.Wrap(err)
		}
	}
	return nil
}

func tenderIDPtr(id common.TenderID) *common.TenderID {
	return &id
}

func addrPtr(addr ethCommon.Address) *ethCommon.Address {
	return &addr
}

func hashPtr(hash ethCommon.Hash) *ethCommon.Hash {
	return &hash
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}
