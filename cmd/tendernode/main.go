package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"time"

	ethKeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/client"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/config"
	"github.com/procurenet/tender-node/log"
	"github.com/procurenet/tender-node/node"
	"github.com/procurenet/tender-node/noncestore"
	"github.com/urfave/cli/v2"
)

const (
	flagCfg      = "cfg"
	flagSK       = "privatekey"
	flagURL      = "url"
	flagCaller   = "caller"
	flagTender   = "tender"
	flagAmount   = "amount"
	flagStore    = "noncestore"
	flagPassword = "password"

	nonceBytes = 32
)

func cmdImportKey(c *cli.Context) error {
	cfg, err := parseCli(c)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error parsing flags and config: %w", err))
	}
	scryptN := ethKeystore.StandardScryptN
	scryptP := ethKeystore.StandardScryptP
	if cfg.Keystore.LightScrypt {
		scryptN = ethKeystore.LightScryptN
		scryptP = ethKeystore.LightScryptP
	}
	keyStore := ethKeystore.NewKeyStore(cfg.Keystore.Path, scryptN, scryptP)
	hexKey := c.String(flagSK)
	hexKey = strings.TrimPrefix(hexKey, "0x")
	sk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return tracerr.Wrap(err)
	}
	acc, err := keyStore.ImportECDSA(sk, cfg.Keystore.Password)
	if err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Imported private key", "addr", acc.Address.Hex())
	return nil
}

func cmdRun(c *cli.Context) error {
	cfg, err := parseCli(c)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error parsing flags and config: %w", err))
	}
	innerNode, err := node.NewNode(cfg)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("error starting node: %w", err))
	}
	innerNode.Start()

	stopCh := make(chan interface{})

	// catch ^C to send the stop signal
	ossig := make(chan os.Signal, 1)
	signal.Notify(ossig, os.Interrupt)
	go func() {
		for sig := range ossig {
			if sig == os.Interrupt {
				stopCh <- nil
			}
		}
	}()
	<-stopCh
	innerNode.Stop()

	return nil
}

func parseCli(c *cli.Context) (*config.Node, error) {
	cfg, err := getConfig(c)
	if err != nil {
		if err := cli.ShowAppHelp(c); err != nil {
			panic(err)
		}
		return nil, tracerr.Wrap(err)
	}
	return cfg, nil
}

func getConfig(c *cli.Context) (*config.Node, error) {
	nodeCfgPath := c.String(flagCfg)
	cfg, err := config.Load(nodeCfgPath)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	log.Init(cfg.Log.Level, cfg.Log.ErrorsPath)
	return cfg, nil
}

func newClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String(flagURL))
}

func parseCaller(c *cli.Context) (ethCommon.Address, error) {
	caller := c.String(flagCaller)
	if !ethCommon.IsHexAddress(caller) {
		return ethCommon.Address{}, tracerr.Wrap(
			fmt.Errorf("invalid caller address %q", caller))
	}
	return ethCommon.HexToAddress(caller), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, tracerr.Wrap(fmt.Errorf("invalid amount %q", s))
	}
	return amount, nil
}

// parseMilestones parses "description:amount" pairs
func parseMilestones(specs []string) ([]common.Milestone, error) {
	milestones := make([]common.Milestone, len(specs))
	for i, spec := range specs {
		sep := strings.LastIndex(spec, ":")
		if sep <= 0 || sep == len(spec)-1 {
			return nil, tracerr.Wrap(fmt.Errorf(
				"invalid milestone %q, expected \"description:amount\"", spec))
		}
		amount, err := parseAmount(spec[sep+1:])
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		milestones[i] = common.Milestone{
			Description: spec[:sep],
			Amount:      amount,
		}
	}
	return milestones, nil
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return tracerr.Wrap(err)
	}
	fmt.Println(string(raw))
	return nil
}

func cmdCreateTender(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	maxBudget, err := parseAmount(c.String("budget"))
	if err != nil {
		return tracerr.Wrap(err)
	}
	milestones, err := parseMilestones(c.StringSlice("milestone"))
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID, err := newClient(c).CreateTender(context.Background(), caller,
		c.String("title"), c.String("description"), maxBudget,
		int64(c.Duration("submission-duration").Seconds()),
		int64(c.Duration("reveal-duration").Seconds()),
		milestones)
	if err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Created tender", "tenderId", tenderID)
	return nil
}

func cmdRegisterBidder(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	bidder := c.String("bidder")
	if !ethCommon.IsHexAddress(bidder) {
		return tracerr.Wrap(fmt.Errorf("invalid bidder address %q", bidder))
	}
	bidderAddr := ethCommon.HexToAddress(bidder)
	if err := newClient(c).RegisterBidder(context.Background(), caller, bidderAddr); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Registered bidder", "addr", bidderAddr.Hex())
	return nil
}

// cmdCommitBid generates a fresh nonce, stores the (amount, nonce) pair in
// the local nonce store and submits the commitment hash. The plaintext
// amount never leaves the machine until reveal.
func cmdCommitBid(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID := common.TenderID(c.Uint64(flagTender))
	amount, err := parseAmount(c.String(flagAmount))
	if err != nil {
		return tracerr.Wrap(err)
	}
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return tracerr.Wrap(err)
	}
	commitHash, err := common.BidCommitment(amount, nonce)
	if err != nil {
		return tracerr.Wrap(err)
	}
	store := noncestore.New(c.String(flagStore), c.String(flagPassword), false)
	if err := store.Put(noncestore.Secret{
		TenderID: tenderID,
		Bidder:   caller,
		Amount:   amount,
		Nonce:    nonce,
	}); err != nil {
		return tracerr.Wrap(err)
	}
	if err := newClient(c).SubmitBid(context.Background(), caller,
		tenderID, commitHash); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Committed bid", "tenderId", tenderID,
		"commitHash", commitHash.Hex())
	return nil
}

func cmdRevealBid(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID := common.TenderID(c.Uint64(flagTender))
	store := noncestore.New(c.String(flagStore), c.String(flagPassword), false)
	secret, err := store.Get(tenderID, caller)
	if err != nil {
		return tracerr.Wrap(err)
	}
	valid, err := newClient(c).RevealBid(context.Background(), caller,
		tenderID, secret.Amount, secret.Nonce)
	if err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Revealed bid", "tenderId", tenderID,
		"amount", secret.Amount.String(), "valid", valid)
	return nil
}

func cmdSelectWinner(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	result, err := newClient(c).SelectWinner(context.Background(), caller,
		common.TenderID(c.Uint64(flagTender)))
	if err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Selected winner", "winner", result.Winner.Hex(),
		"winningBid", result.WinningBid)
	return nil
}

func cmdFund(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	amount, err := parseAmount(c.String(flagAmount))
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID := common.TenderID(c.Uint64(flagTender))
	if err := newClient(c).FundTender(context.Background(), caller,
		tenderID, amount); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Funded tender", "tenderId", tenderID, "amount", amount.String())
	return nil
}

func cmdPayMilestone(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID := common.TenderID(c.Uint64(flagTender))
	idx := c.Int("index")
	if err := newClient(c).PayMilestone(context.Background(), caller,
		tenderID, idx); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Paid milestone", "tenderId", tenderID, "index", idx)
	return nil
}

func cmdEmergencyWithdraw(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	tenderID := common.TenderID(c.Uint64(flagTender))
	if err := newClient(c).EmergencyWithdraw(context.Background(), caller,
		tenderID); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Emergency withdrawal done", "tenderId", tenderID)
	return nil
}

func cmdPause(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := newClient(c).Pause(context.Background(), caller); err != nil {
		return tracerr.Wrap(err)
	}
	log.Info("Protocol paused")
	return nil
}

func cmdUnpause(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := newClient(c).Unpause(context.Background(), caller); err != nil {
		return tracerr.Wrap(err)
	}
	log.Info("Protocol unpaused")
	return nil
}

func cmdTransferOwnership(c *cli.Context) error {
	caller, err := parseCaller(c)
	if err != nil {
		return tracerr.Wrap(err)
	}
	newOwner := c.String("new-owner")
	if !ethCommon.IsHexAddress(newOwner) {
		return tracerr.Wrap(fmt.Errorf("invalid new owner address %q", newOwner))
	}
	newOwnerAddr := ethCommon.HexToAddress(newOwner)
	if err := newClient(c).TransferOwnership(context.Background(), caller,
		newOwnerAddr); err != nil {
		return tracerr.Wrap(err)
	}
	log.Infow("Ownership transferred", "newOwner", newOwnerAddr.Hex())
	return nil
}

func cmdShowTender(c *cli.Context) error {
	tender, err := newClient(c).GetTender(context.Background(),
		common.TenderID(c.Uint64(flagTender)))
	if err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(printJSON(tender))
}

func cmdShowBids(c *cli.Context) error {
	bids, err := newClient(c).GetTenderBids(context.Background(),
		common.TenderID(c.Uint64(flagTender)))
	if err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(printJSON(bids))
}

func cmdShowEvents(c *cli.Context) error {
	filters := client.EventsFilters{}
	if c.IsSet(flagTender) {
		tenderID := c.Uint64(flagTender)
		filters.TenderID = &tenderID
	}
	events, err := newClient(c).GetEvents(context.Background(), filters)
	if err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(printJSON(events))
}

func cmdShowState(c *cli.Context) error {
	state, err := newClient(c).GetState(context.Background())
	if err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(printJSON(state))
}

func main() {
	app := cli.NewApp()
	app.Name = "tendernode"
	app.Usage = "sealed bid procurement tender node"
	app.Version = node.Version
	flagURLDef := &cli.StringFlag{
		Name:  flagURL,
		Usage: "base `URL` of the tender node API",
		Value: "http://localhost:8086",
	}
	flagCallerDef := &cli.StringFlag{
		Name:     flagCaller,
		Usage:    "`ADDRESS` the operation is called as",
		Required: true,
	}
	flagTenderDef := &cli.Uint64Flag{
		Name:     flagTender,
		Usage:    "tender `ID`",
		Required: true,
	}
	flagStoreDef := &cli.StringFlag{
		Name:  flagStore,
		Usage: "`PATH` of the encrypted bid secret store",
		Value: "noncestore.json",
	}
	flagPasswordDef := &cli.StringFlag{
		Name:     flagPassword,
		Usage:    "password of the encrypted bid secret store",
		Required: true,
	}

	app.Commands = []*cli.Command{
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the tender node",
			Action:  cmdRun,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagCfg,
					Usage:    "Node configuration `FILE`",
					Required: false,
				},
			},
		},
		{
			Name:    "importkey",
			Aliases: []string{},
			Usage:   "Import a private key into the keystore",
			Action:  cmdImportKey,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagCfg,
					Usage:    "Node configuration `FILE`",
					Required: false,
				},
				&cli.StringFlag{
					Name:     flagSK,
					Usage:    "ECDSA private `KEY` in hex",
					Required: true,
				},
			},
		},
		{
			Name:   "create-tender",
			Usage:  "Create a new tender (owner only)",
			Action: cmdCreateTender,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef,
				&cli.StringFlag{Name: "title", Required: true},
				&cli.StringFlag{Name: "description"},
				&cli.StringFlag{
					Name:     "budget",
					Usage:    "maximum budget in currency minor units",
					Required: true,
				},
				&cli.DurationFlag{
					Name:  "submission-duration",
					Value: 48 * time.Hour,
				},
				&cli.DurationFlag{
					Name:  "reveal-duration",
					Value: 24 * time.Hour,
				},
				&cli.StringSliceFlag{
					Name:     "milestone",
					Usage:    "milestone as \"description:amount\", repeatable, amounts must sum to the budget",
					Required: true,
				},
			},
		},
		{
			Name:   "register-bidder",
			Usage:  "Register a bidder into the registry (owner only)",
			Action: cmdRegisterBidder,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef,
				&cli.StringFlag{Name: "bidder", Required: true},
			},
		},
		{
			Name:   "commit-bid",
			Usage:  "Seal a bid: store its secret locally and submit the commitment",
			Action: cmdCommitBid,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef, flagTenderDef,
				flagStoreDef, flagPasswordDef,
				&cli.StringFlag{
					Name:     flagAmount,
					Usage:    "bid amount in currency minor units",
					Required: true,
				},
			},
		},
		{
			Name:   "reveal-bid",
			Usage:  "Open a sealed bid using the locally stored secret",
			Action: cmdRevealBid,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef, flagTenderDef,
				flagStoreDef, flagPasswordDef,
			},
		},
		{
			Name:   "select-winner",
			Usage:  "Select the winner of a tender (owner only)",
			Action: cmdSelectWinner,
			Flags:  []cli.Flag{flagURLDef, flagCallerDef, flagTenderDef},
		},
		{
			Name:   "fund",
			Usage:  "Fund the tender escrow with the winning bid amount (owner only)",
			Action: cmdFund,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef, flagTenderDef,
				&cli.StringFlag{Name: flagAmount, Required: true},
			},
		},
		{
			Name:   "pay-milestone",
			Usage:  "Release one milestone payment to the winner (owner only)",
			Action: cmdPayMilestone,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef, flagTenderDef,
				&cli.IntFlag{Name: "index", Required: true},
			},
		},
		{
			Name:   "emergency-withdraw",
			Usage:  "Recover the remaining escrow of a tender (owner only)",
			Action: cmdEmergencyWithdraw,
			Flags:  []cli.Flag{flagURLDef, flagCallerDef, flagTenderDef},
		},
		{
			Name:   "pause",
			Usage:  "Pause all mutating protocol operations (owner only)",
			Action: cmdPause,
			Flags:  []cli.Flag{flagURLDef, flagCallerDef},
		},
		{
			Name:   "unpause",
			Usage:  "Resume the protocol operations (owner only)",
			Action: cmdUnpause,
			Flags:  []cli.Flag{flagURLDef, flagCallerDef},
		},
		{
			Name:   "transfer-ownership",
			Usage:  "Hand the owner role over to a new address (owner only)",
			Action: cmdTransferOwnership,
			Flags: []cli.Flag{
				flagURLDef, flagCallerDef,
				&cli.StringFlag{Name: "new-owner", Required: true},
			},
		},
		{
			Name:  "show",
			Usage: "Inspect a running node",
			Subcommands: []*cli.Command{
				{
					Name:   "tender",
					Usage:  "Show one tender with its milestones",
					Action: cmdShowTender,
					Flags:  []cli.Flag{flagURLDef, flagTenderDef},
				},
				{
					Name:   "bids",
					Usage:  "Show the bid roster of a tender",
					Action: cmdShowBids,
					Flags:  []cli.Flag{flagURLDef, flagTenderDef},
				},
				{
					Name:   "events",
					Usage:  "Show the audit trail",
					Action: cmdShowEvents,
					Flags: []cli.Flag{
						flagURLDef,
						&cli.Uint64Flag{Name: flagTender, Usage: "filter by tender `ID`"},
					},
				},
				{
					Name:   "state",
					Usage:  "Show the node state summary",
					Action: cmdShowState,
					Flags:  []cli.Flag{flagURLDef},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Printf("\nError: %v\n", tracerr.Sprint(err))
		os.Exit(1)
	}
}
