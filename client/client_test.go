package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerAddr  = ethCommon.HexToAddress("0x74a44B9B251a16F0F4732b882eDa7079644B737b")
	bidderAddr = ethCommon.HexToAddress("0x6813Eb9362372EEF6200f3b1dbC3f819671cBA69")
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL), server
}

func TestCreateTender(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/tenders", r.URL.Path)
		var body createTenderBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ownerAddr.Hex(), body.Caller)
		assert.Equal(t, "ring road resurfacing", body.Title)
		assert.Equal(t, "10000", body.MaxBudget)
		assert.Equal(t, int64(3600), body.SubmissionDuration)
		require.Len(t, body.Milestones, 1)
		assert.Equal(t, "10000", body.Milestones[0].Amount)
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"tenderId": 7}`))
		require.NoError(t, err)
	})
	defer server.Close()

	tenderID, err := client.CreateTender(context.Background(), ownerAddr,
		"ring road resurfacing", "", big.NewInt(10000), 3600, 3600,
		[]common.Milestone{
			{Description: "full delivery", Amount: big.NewInt(10000)},
		})
	require.NoError(t, err)
	assert.Equal(t, common.TenderID(7), tenderID)
}

func TestRevealBid(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tenders/7/reveals", r.URL.Path)
		var body struct {
			Caller string `json:"caller"`
			Amount string `json:"amount"`
			Nonce  string `json:"nonce"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, bidderAddr.Hex(), body.Caller)
		assert.Equal(t, "9000", body.Amount)
		// The nonce rides as 0x prefixed hex
		assert.Equal(t, "0x6e2d31", body.Nonce)
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"valid": true}`))
		require.NoError(t, err)
	})
	defer server.Close()

	valid, err := client.RevealBid(context.Background(), bidderAddr, 7,
		big.NewInt(9000), []byte("n-1"))
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestGetTendersQueryEncoding(t *testing.T) {
	fromItem := uint(2)
	limit := uint(5)
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/tenders", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "PAYMENT_PENDING", query.Get("phase"))
		assert.Equal(t, "2", query.Get("fromItem"))
		assert.Equal(t, "DESC", query.Get("order"))
		assert.Equal(t, "5", query.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"tenders": [{"tenderId": 2}], "pendingItems": 1}`))
		require.NoError(t, err)
	})
	defer server.Close()

	response, err := client.GetTenders(context.Background(), TendersFilters{
		Phase: "PAYMENT_PENDING",
		Pagination: Pagination{
			FromItem: &fromItem,
			Order:    "DESC",
			Limit:    &limit,
		},
	})
	require.NoError(t, err)
	require.Len(t, response.Tenders, 1)
	assert.Equal(t, common.TenderID(2), response.Tenders[0].TenderID)
	assert.Equal(t, uint64(1), response.PendingItems)
}

func TestServerError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, err := w.Write([]byte(
			`{"message": "the operation is not allowed in the current phase",` +
				` "code": 6, "type": "ErrStateConflict"}`))
		require.NoError(t, err)
	})
	defer server.Close()

	err := client.Pause(context.Background(), ownerAddr)
	require.Error(t, err)
	errSrv, ok := tracerr.Unwrap(err).(ErrorServer)
	require.True(t, ok)
	assert.Equal(t, "ErrStateConflict", errSrv.Type)
	assert.Equal(t, 6, errSrv.Code)
	assert.Contains(t, errSrv.Error(), "not allowed in the current phase")
}

func TestGetState(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/state", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(
			`{"tenders": 2, "openTenders": 1, "bidders": 3, "events": 15,` +
				` "lastEventItem": 15, "paused": false, "ledgerTime": 1007200}`))
		require.NoError(t, err)
	})
	defer server.Close()

	state, err := client.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Tenders)
	assert.Equal(t, int64(1), state.OpenTenders)
	require.NotNil(t, state.Paused)
	assert.False(t, *state.Paused)
	require.NotNil(t, state.LedgerTime)
	assert.Equal(t, int64(1007200), *state.LedgerTime)
}
