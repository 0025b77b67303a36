package node

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/api"
	"github.com/procurenet/tender-node/auction"
	"github.com/procurenet/tender-node/auditdb"
	"github.com/procurenet/tender-node/config"
	"github.com/procurenet/tender-node/ledgersim"
	"github.com/procurenet/tender-node/log"
	"github.com/procurenet/tender-node/metric"
)

// Version of the tender node, reported by the API health endpoint
const Version = "1.0.0"

// Node runs the tender protocol: the simulated value ledger, the auction
// engine, the audit trail recorder and the HTTP API.
type Node struct {
	nodeAPI *NodeAPI
	engine  *auction.Protocol
	ledger  *ledgersim.Ledger
	adb     *auditdb.AuditDB

	cfg    *config.Node
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNode creates a Node
func NewNode(cfg *config.Node) (*Node, error) {
	ledger := ledgersim.NewLedger()
	if cfg.Ledger.DevAccounts > 0 {
		accounts, err := ledgersim.DevAccounts(cfg.Ledger.Mnemonic, cfg.Ledger.DevAccounts)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		for _, account := range accounts {
			if err := ledger.Deposit(account.Address, cfg.Ledger.InitialBalance); err != nil {
				return nil, tracerr.Wrap(err)
			}
			log.Infow("Funded dev account", "addr", account.Address.Hex(),
				"balance", cfg.Ledger.InitialBalance.String())
		}
	}

	engine, err := auction.New(cfg.Auction.Owner, ledgersim.ClockTimer{}, ledger)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	db, err := auditdb.InitSQLDB(cfg.AuditDB.Driver, cfg.AuditDB.DSN)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	apiConnCon := auditdb.NewAPIConnectionController(
		cfg.API.MaxSQLConnections,
		cfg.API.SQLConnectionTimeout.Duration,
	)
	adb, err := auditdb.NewAuditDB(db, db, apiConnCon)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	var nodeAPI *NodeAPI
	if cfg.API.Explorer || cfg.API.Operator {
		nodeAPI, err = NewNodeAPI(cfg.API.Address,
			cfg.API.Operator, cfg.API.Explorer, engine, adb)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		nodeAPI: nodeAPI,
		engine:  engine,
		ledger:  ledger,
		adb:     adb,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Engine returns the auction engine of the node
func (n *Node) Engine() *auction.Protocol {
	return n.engine
}

// Ledger returns the simulated value ledger of the node
func (n *Node) Ledger() *ledgersim.Ledger {
	return n.ledger
}

// NodeAPI holds the node http API
type NodeAPI struct { //nolint:golint
	api    *api.API
	engine *gin.Engine
	addr   string
}

// NewNodeAPI creates a new NodeAPI (which internally calls api.NewAPI)
func NewNodeAPI(
	addr string,
	operatorEndpoints, explorerEndpoints bool,
	protocol *auction.Protocol,
	adb *auditdb.AuditDB,
) (*NodeAPI, error) {
	engine := gin.Default()
	engine.Use(cors.Default())
	promMiddleware, err := metric.PrometheusMiddleware()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	engine.Use(promMiddleware)
	_api, err := api.NewAPI(
		Version,
		operatorEndpoints, explorerEndpoints,
		engine,
		protocol,
		adb,
	)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &NodeAPI{
		addr:   addr,
		api:    _api,
		engine: engine,
	}, nil
}

// Run starts the http server of the NodeAPI. To stop it, pass a context
// with cancellation.
func (a *NodeAPI) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:           a.addr,
		Handler:        a.engine,
		ReadTimeout:    30 * time.Second, //nolint:gomnd
		WriteTimeout:   30 * time.Second, //nolint:gomnd
		MaxHeaderBytes: 1 << 20,          //nolint:gomnd
	}
	go func() {
		log.Infof("NodeAPI is ready at %v", a.addr)
		if err := server.ListenAndServe(); err != nil &&
			tracerr.Unwrap(err) != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("Stopping NodeAPI...")
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:gomnd
	defer cancel()
	if err := server.Shutdown(ctxTimeout); err != nil {
		return tracerr.Wrap(err)
	}
	log.Info("NodeAPI done")
	return nil
}

// StartNodeAPI starts the NodeAPI
func (n *Node) StartNodeAPI() {
	log.Info("Starting NodeAPI...")
	n.wg.Add(1)
	go func() {
		defer func() {
			log.Info("NodeAPI routine stopped")
			n.wg.Done()
		}()
		if err := n.nodeAPI.Run(n.ctx); err != nil {
			log.Fatalw("NodeAPI.Run", "err", err)
		}
	}()
}

// StartAuditRecorder starts the loop that records new engine events and
// tender snapshots into the audit database
func (n *Node) StartAuditRecorder() {
	log.Info("Starting audit recorder...")
	n.wg.Add(1)
	go func() {
		for {
			select {
			case <-n.ctx.Done():
				log.Info("Audit recorder loop done")
				n.wg.Done()
				return
			case <-time.After(n.cfg.AuditDB.SyncInterval.Duration):
				start := time.Now()
				recorded, err := n.adb.Sync(n.engine)
				if err != nil {
					metric.MeasureDuration(metric.SyncDuration, start, "error")
					metric.CollectError(err)
					log.Errorw("AuditDB.Sync", "err", err)
					continue
				}
				metric.MeasureDuration(metric.SyncDuration, start, "ok")
				if recorded > 0 {
					log.Debugw("AuditDB.Sync", "recorded", recorded)
				}
			}
		}
	}()
}

// StartMetricsUpdater starts the loop that refreshes the protocol gauges
// from the audit database
func (n *Node) StartMetricsUpdater() {
	log.Info("Starting metrics updater...")
	n.wg.Add(1)
	go func() {
		for {
			select {
			case <-n.ctx.Done():
				log.Info("Metrics updater loop done")
				n.wg.Done()
				return
			case <-time.After(n.cfg.API.UpdateMetricsInterval.Duration):
				stats, err := n.adb.GetStatsAPI()
				if err != nil {
					log.Errorw("AuditDB.GetStatsAPI", "err", err)
					continue
				}
				metric.OpenTenders.Set(float64(stats.OpenTenders))
				metric.RegisteredBidders.Set(float64(stats.Bidders))
				metric.LastEventItem.Set(float64(stats.LastEventItem))
			}
		}
	}()
}

// Start the node
func (n *Node) Start() {
	log.Infow("Starting node...")
	if n.nodeAPI != nil {
		n.StartNodeAPI()
		n.StartMetricsUpdater()
	}
	n.StartAuditRecorder()
}

// Stop the node
func (n *Node) Stop() {
	log.Infow("Stopping node...")
	n.cancel()
	n.wg.Wait()
	if err := n.adb.DB().Close(); err != nil {
		log.Errorw("Error closing audit database", "err", err)
	}
}
