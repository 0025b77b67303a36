package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/joho/godotenv"
	"gopkg.in/go-playground/validator.v9"
)

// Duration is a wrapper type that parses time duration from text.
type Duration struct {
	time.Duration `validate:"required"`
}

// UnmarshalText unmarshalls time duration from text.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return tracerr.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// Node is the tender node configuration
type Node struct {
	// Auction is the configuration of the auction engine
	Auction struct {
		// Owner is the identity that controls tender creation, bidder
		// registration, winner selection, payments and the emergency
		// surface. Required, the zero address is rejected.
		Owner ethCommon.Address `validate:"required" env:"TENDERNODE_AUCTION_OWNER"`
	} `validate:"required"`
	// Ledger is the configuration of the simulated value ledger
	Ledger struct {
		// Mnemonic seeds the derivation of the dev network accounts
		Mnemonic string `env:"TENDERNODE_LEDGER_MNEMONIC"`
		// DevAccounts is the number of accounts derived and funded at
		// startup. 0 disables dev account funding.
		DevAccounts int `validate:"gte=0" env:"TENDERNODE_LEDGER_DEVACCOUNTS"`
		// InitialBalance is the balance, in currency minor units,
		// deposited into each dev account
		InitialBalance *big.Int `validate:"required"`
	} `validate:"required"`
	// API is the configuration of the HTTP API server
	API struct {
		// Address where the API server will listen
		Address string `validate:"required" env:"TENDERNODE_API_ADDRESS"`
		// Explorer enables the read only audit endpoints
		Explorer bool `env:"TENDERNODE_API_EXPLORER"`
		// Operator enables the mutating protocol endpoints
		Operator bool `env:"TENDERNODE_API_OPERATOR"`
		// UpdateMetricsInterval is the interval between protocol gauge
		// refreshes
		UpdateMetricsInterval Duration `validate:"required"`
		// MaxSQLConnections is the maximum number of concurrent audit
		// database reads the API will serve
		MaxSQLConnections int `validate:"required"`
		// SQLConnectionTimeout is how long a request waits for an audit
		// database read slot before giving up
		SQLConnectionTimeout Duration `validate:"required"`
	} `validate:"required"`
	// AuditDB is the configuration of the audit trail database
	AuditDB struct {
		// Driver is the sql driver, sqlite3 or postgres
		Driver string `validate:"required,oneof=sqlite3 postgres" env:"TENDERNODE_AUDITDB_DRIVER"`
		// DSN is the data source name: a file path for sqlite3, a
		// connection string for postgres
		DSN string `validate:"required" env:"TENDERNODE_AUDITDB_DSN"`
		// SyncInterval is the interval between audit trail recordings
		SyncInterval Duration `validate:"required"`
	} `validate:"required"`
	// Keystore is the configuration of the local encrypted key and bid
	// secret storage
	Keystore struct {
		// Path to the keystore directory. The nonce store file lives
		// next to the keys.
		Path string `env:"TENDERNODE_KEYSTORE_PATH"`
		// Password used to encrypt the keystore and the nonce store
		Password string `env:"TENDERNODE_KEYSTORE_PASSWORD"`
		// LightScrypt uses light scrypt parameters, only for testing
		LightScrypt bool
	}
	// Log is the logging configuration
	Log struct {
		Level      string `validate:"required" env:"TENDERNODE_LOG_LEVEL"`
		ErrorsPath string `env:"TENDERNODE_LOG_ERRORSPATH"`
	} `validate:"required"`
}

// applyEnv overrides the operationally sensitive keys from the environment.
// The recognized variables are the ones in the env struct tags above.
func applyEnv(cfg *Node) {
	if v := os.Getenv("TENDERNODE_AUCTION_OWNER"); v != "" {
		cfg.Auction.Owner = ethCommon.HexToAddress(v)
	}
	if v := os.Getenv("TENDERNODE_LEDGER_MNEMONIC"); v != "" {
		cfg.Ledger.Mnemonic = v
	}
	if v := os.Getenv("TENDERNODE_API_ADDRESS"); v != "" {
		cfg.API.Address = v
	}
	if v := os.Getenv("TENDERNODE_AUDITDB_DRIVER"); v != "" {
		cfg.AuditDB.Driver = v
	}
	if v := os.Getenv("TENDERNODE_AUDITDB_DSN"); v != "" {
		cfg.AuditDB.DSN = v
	}
	if v := os.Getenv("TENDERNODE_KEYSTORE_PATH"); v != "" {
		cfg.Keystore.Path = v
	}
	if v := os.Getenv("TENDERNODE_KEYSTORE_PASSWORD"); v != "" {
		cfg.Keystore.Password = v
	}
	if v := os.Getenv("TENDERNODE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TENDERNODE_LOG_ERRORSPATH"); v != "" {
		cfg.Log.ErrorsPath = v
	}
}

// Load the configuration: defaults, then the TOML file at path, then a .env
// file if present, then the environment
func Load(path string) (*Node, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, tracerr.Wrap(err)
	}
	var cfg Node
	if _, err := toml.Decode(DefaultValues, &cfg); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error decoding default configuration: %w", err))
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, tracerr.Wrap(fmt.Errorf("error decoding configuration file: %w", err))
		}
	}
	applyEnv(&cfg)
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("error validating configuration file: %w", err))
	}
	return &cfg, nil
}
