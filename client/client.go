/*
Package client implements a typed HTTP client for the tender node API. It is
used by the command line interface to drive a running node.
*/
package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/dghubble/sling"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/common/apitypes"
)

// ErrorServer is the error body returned by the API
type ErrorServer struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// Error message for ErrorServer
func (e ErrorServer) Error() string {
	return fmt.Sprintf("tender node api error (%v): %v", e.Type, e.Message)
}

type apiMethod string

const (
	// GET is an HTTP GET
	GET apiMethod = "GET"
	// POST is an HTTP POST with maybe JSON body
	POST apiMethod = "POST"
)

// Client is an HTTP client for the tender node API
type Client struct {
	URL    string
	client *sling.Sling
}

// NewClient creates a new Client pointing at the API base URL
func NewClient(URL string) *Client {
	if URL[len(URL)-1] != '/' {
		URL += "/"
	}
	client := sling.New().Base(URL)
	return &Client{URL: URL, client: client}
}

func (c *Client) apiRequest(ctx context.Context, method apiMethod, path string,
	query, body, ret interface{}) error {
	path = strings.TrimPrefix(path, "/")
	var errSrv ErrorServer
	var req *http.Request
	var err error
	switch method {
	case GET:
		s := c.client.New().Get(path)
		if query != nil {
			s = s.QueryStruct(query)
		}
		req, err = s.Request()
	case POST:
		req, err = c.client.New().Post(path).BodyJSON(body).Request()
	default:
		return tracerr.Wrap(fmt.Errorf("invalid http method: %v", method))
	}
	if err != nil {
		return tracerr.Wrap(err)
	}
	res, err := c.client.Do(req.WithContext(ctx), ret, &errSrv)
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer res.Body.Close() //nolint:errcheck
	if !(200 <= res.StatusCode && res.StatusCode < 300) {
		return tracerr.Wrap(errSrv)
	}
	return nil
}

//
// Operator calls
//

type milestoneBody struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type createTenderBody struct {
	Caller             string          `json:"caller"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	MaxBudget          string          `json:"maxBudget"`
	SubmissionDuration int64           `json:"submissionDuration"`
	RevealDuration     int64           `json:"revealDuration"`
	Milestones         []milestoneBody `json:"milestones"`
}

// CreateTender creates a new tender and returns its id
func (c *Client) CreateTender(ctx context.Context, caller ethCommon.Address,
	title, description string, maxBudget *big.Int,
	submissionDuration, revealDuration int64,
	milestones []common.Milestone) (common.TenderID, error) {
	body := createTenderBody{
		Caller:             caller.Hex(),
		Title:              title,
		Description:        description,
		MaxBudget:          maxBudget.String(),
		SubmissionDuration: submissionDuration,
		RevealDuration:     revealDuration,
		Milestones:         make([]milestoneBody, len(milestones)),
	}
	for i, m := range milestones {
		body.Milestones[i] = milestoneBody{
			Description: m.Description,
			Amount:      m.Amount.String(),
		}
	}
	var ret struct {
		TenderID common.TenderID `json:"tenderId"`
	}
	if err := c.apiRequest(ctx, POST, "/v1/tenders", nil, body, &ret); err != nil {
		return 0, tracerr.Wrap(err)
	}
	return ret.TenderID, nil
}

type registerBidderBody struct {
	Caller     string `json:"caller"`
	BidderAddr string `json:"bidderAddr"`
}

// RegisterBidder registers bidder into the bidder registry
func (c *Client) RegisterBidder(ctx context.Context,
	caller, bidder ethCommon.Address) error {
	body := registerBidderBody{Caller: caller.Hex(), BidderAddr: bidder.Hex()}
	return c.apiRequest(ctx, POST, "/v1/bidders", nil, body, nil)
}

type submitBidBody struct {
	Caller     string         `json:"caller"`
	CommitHash ethCommon.Hash `json:"commitHash"`
}

// SubmitBid commits the sealed bid of caller on the tender
func (c *Client) SubmitBid(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID, commitHash ethCommon.Hash) error {
	body := submitBidBody{Caller: caller.Hex(), CommitHash: commitHash}
	return c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/bids", tenderID), nil, body, nil)
}

type revealBidBody struct {
	Caller string            `json:"caller"`
	Amount string            `json:"amount"`
	Nonce  apitypes.HexBytes `json:"nonce"`
}

// RevealBid opens the sealed bid of caller on the tender and reports
// whether the revealed amount respects the budget ceiling
func (c *Client) RevealBid(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID, amount *big.Int, nonce []byte) (bool, error) {
	body := revealBidBody{
		Caller: caller.Hex(),
		Amount: amount.String(),
		Nonce:  apitypes.HexBytes(nonce),
	}
	var ret struct {
		Valid bool `json:"valid"`
	}
	if err := c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/reveals", tenderID), nil, body, &ret); err != nil {
		return false, tracerr.Wrap(err)
	}
	return ret.Valid, nil
}

type callerBody struct {
	Caller string `json:"caller"`
}

// SelectWinnerResult is the winner reported by the winner selection call
type SelectWinnerResult struct {
	Winner     ethCommon.Address `json:"winner"`
	WinningBid string            `json:"winningBid"`
}

// SelectWinner runs the winner selection of the tender
func (c *Client) SelectWinner(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID) (*SelectWinnerResult, error) {
	var ret SelectWinnerResult
	if err := c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/winner", tenderID), nil,
		callerBody{Caller: caller.Hex()}, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

type fundBody struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// FundTender deposits the winning bid amount into the tender escrow
func (c *Client) FundTender(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID, amount *big.Int) error {
	body := fundBody{Caller: caller.Hex(), Amount: amount.String()}
	return c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/fund", tenderID), nil, body, nil)
}

// PayMilestone releases the payment of one milestone to the winner
func (c *Client) PayMilestone(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID, milestoneIdx int) error {
	return c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/milestones/%v/pay", tenderID, milestoneIdx),
		nil, callerBody{Caller: caller.Hex()}, nil)
}

// EmergencyWithdraw recovers the remaining escrow of the tender to the owner
func (c *Client) EmergencyWithdraw(ctx context.Context, caller ethCommon.Address,
	tenderID common.TenderID) error {
	return c.apiRequest(ctx, POST,
		fmt.Sprintf("/v1/tenders/%v/emergency-withdrawal", tenderID),
		nil, callerBody{Caller: caller.Hex()}, nil)
}

// Pause stops all mutating protocol operations
func (c *Client) Pause(ctx context.Context, caller ethCommon.Address) error {
	return c.apiRequest(ctx, POST, "/v1/pause", nil,
		callerBody{Caller: caller.Hex()}, nil)
}

// Unpause resumes the protocol operations
func (c *Client) Unpause(ctx context.Context, caller ethCommon.Address) error {
	return c.apiRequest(ctx, POST, "/v1/unpause", nil,
		callerBody{Caller: caller.Hex()}, nil)
}

type transferOwnershipBody struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

// TransferOwnership hands the owner role over to newOwner
func (c *Client) TransferOwnership(ctx context.Context,
	caller, newOwner ethCommon.Address) error {
	body := transferOwnershipBody{Caller: caller.Hex(), NewOwner: newOwner.Hex()}
	return c.apiRequest(ctx, POST, "/v1/transfer-ownership", nil, body, nil)
}

//
// Explorer calls
//

// Pagination holds the cursor of a paginated query
type Pagination struct {
	FromItem *uint  `url:"fromItem,omitempty"`
	Order    string `url:"order,omitempty"`
	Limit    *uint  `url:"limit,omitempty"`
}

// TendersFilters are the query filters of the tenders listing
type TendersFilters struct {
	Phase string `url:"phase,omitempty"`
	Pagination
}

// TendersResponse is one page of the tenders listing
type TendersResponse struct {
	Tenders      []auditdb.TenderAPI `json:"tenders"`
	PendingItems uint64              `json:"pendingItems"`
}

// GetTenders returns one page of the tenders listing
func (c *Client) GetTenders(ctx context.Context,
	filters TendersFilters) (*TendersResponse, error) {
	var ret TendersResponse
	if err := c.apiRequest(ctx, GET, "/v1/tenders", filters, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// GetTender returns one tender with its milestones
func (c *Client) GetTender(ctx context.Context,
	tenderID common.TenderID) (*auditdb.TenderAPI, error) {
	var ret auditdb.TenderAPI
	if err := c.apiRequest(ctx, GET,
		fmt.Sprintf("/v1/tenders/%v", tenderID), nil, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// TenderBidsResponse is the bid roster of one tender
type TenderBidsResponse struct {
	Bids []auditdb.BidAPI `json:"bids"`
}

// GetTenderBids returns the bid roster of the tender in roster order
func (c *Client) GetTenderBids(ctx context.Context,
	tenderID common.TenderID) (*TenderBidsResponse, error) {
	var ret TenderBidsResponse
	if err := c.apiRequest(ctx, GET,
		fmt.Sprintf("/v1/tenders/%v/bids", tenderID), nil, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// BidsFilters are the query filters of the bids listing
type BidsFilters struct {
	TenderID *uint64 `url:"tenderId,omitempty"`
	Bidder   string  `url:"bidderAddr,omitempty"`
	Pagination
}

// BidsResponse is one page of the bids listing
type BidsResponse struct {
	Bids         []auditdb.BidAPI `json:"bids"`
	PendingItems uint64           `json:"pendingItems"`
}

// GetBids returns one page of the bids listing
func (c *Client) GetBids(ctx context.Context,
	filters BidsFilters) (*BidsResponse, error) {
	var ret BidsResponse
	if err := c.apiRequest(ctx, GET, "/v1/bids", filters, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// BiddersResponse is one page of the registered bidder listing
type BiddersResponse struct {
	Bidders      []auditdb.BidderAPI `json:"bidders"`
	PendingItems uint64              `json:"pendingItems"`
}

// GetBidders returns one page of the registered bidder listing
func (c *Client) GetBidders(ctx context.Context,
	pagination Pagination) (*BiddersResponse, error) {
	var ret BiddersResponse
	if err := c.apiRequest(ctx, GET, "/v1/bidders", pagination, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// EventsFilters are the query filters of the audit trail listing
type EventsFilters struct {
	TenderID *uint64 `url:"tenderId,omitempty"`
	Type     string  `url:"type,omitempty"`
	Addr     string  `url:"addr,omitempty"`
	Pagination
}

// EventsResponse is one page of the audit trail
type EventsResponse struct {
	Events       []auditdb.EventAPI `json:"events"`
	PendingItems uint64             `json:"pendingItems"`
}

// GetEvents returns one page of the audit trail
func (c *Client) GetEvents(ctx context.Context,
	filters EventsFilters) (*EventsResponse, error) {
	var ret EventsResponse
	if err := c.apiRequest(ctx, GET, "/v1/events", filters, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}

// GetState returns the node state summary
func (c *Client) GetState(ctx context.Context) (*api.StateAPI, error) {
	var ret api.StateAPI
	if err := c.apiRequest(ctx, GET, "/v1/state", nil, nil, &ret); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ret, nil
}
