package auditdb

import (
	"fmt"

	"github.com/hermeznetwork/tracerr"
	migrate "github.com/rubenv/sql-migrate"
)

// The schema is kept per driver: amounts are DECIMAL(78,0) on postgres and
// BLOB holding the decimal string on sqlite, whose NUMERIC affinity would
// otherwise round 78 digit amounts through a float.

var postgresMigrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_initial",
			Up: []string{
				`CREATE TABLE tender (
					tender_id BIGINT PRIMARY KEY,
					title VARCHAR(200) NOT NULL,
					description TEXT NOT NULL,
					max_budget DECIMAL(78,0) NOT NULL,
					submission_deadline BIGINT NOT NULL,
					reveal_deadline BIGINT NOT NULL,
					phase VARCHAR(20) NOT NULL,
					winner BYTEA,
					winning_bid DECIMAL(78,0),
					funded_amount DECIMAL(78,0) NOT NULL,
					milestones_completed INT NOT NULL,
					bidder_count INT NOT NULL,
					created_at BIGINT NOT NULL,
					updated_at BIGINT NOT NULL
				);`,
				`CREATE TABLE milestone (
					tender_id BIGINT NOT NULL REFERENCES tender (tender_id) ON DELETE CASCADE,
					idx INT NOT NULL,
					description TEXT NOT NULL,
					amount DECIMAL(78,0) NOT NULL,
					paid BOOLEAN NOT NULL,
					paid_at BIGINT NOT NULL,
					PRIMARY KEY (tender_id, idx)
				);`,
				`CREATE TABLE bid (
					tender_id BIGINT NOT NULL REFERENCES tender (tender_id) ON DELETE CASCADE,
					roster_idx INT NOT NULL,
					bidder BYTEA NOT NULL,
					commit_hash BYTEA NOT NULL,
					revealed BOOLEAN NOT NULL,
					revealed_amount DECIMAL(78,0),
					valid BOOLEAN NOT NULL,
					revealed_at BIGINT NOT NULL,
					PRIMARY KEY (tender_id, bidder)
				);`,
				`CREATE TABLE bidder (
					item_id BIGINT PRIMARY KEY,
					addr BYTEA NOT NULL UNIQUE,
					registered_at BIGINT NOT NULL
				);`,
				`CREATE TABLE tender_event (
					item_id BIGINT PRIMARY KEY,
					event_type VARCHAR(32) NOT NULL,
					tender_id BIGINT,
					addr BYTEA,
					other_addr BYTEA,
					amount DECIMAL(78,0),
					commit_hash BYTEA,
					valid BOOLEAN,
					milestone_idx INT,
					timestamp BIGINT NOT NULL
				);`,
				`CREATE INDEX tender_event_tender_idx ON tender_event (tender_id);`,
				`CREATE INDEX tender_event_type_idx ON tender_event (event_type);`,
				`CREATE INDEX bid_bidder_idx ON bid (bidder);`,
			},
			Down: []string{
				`DROP TABLE tender_event;`,
				`DROP TABLE bidder;`,
				`DROP TABLE bid;`,
				`DROP TABLE milestone;`,
				`DROP TABLE tender;`,
			},
		},
	},
}

var sqliteMigrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_initial",
			Up: []string{
				`CREATE TABLE tender (
					tender_id INTEGER PRIMARY KEY,
					title TEXT NOT NULL,
					description TEXT NOT NULL,
					max_budget BLOB NOT NULL,
					submission_deadline INTEGER NOT NULL,
					reveal_deadline INTEGER NOT NULL,
					phase TEXT NOT NULL,
					winner BLOB,
					winning_bid BLOB,
					funded_amount BLOB NOT NULL,
					milestones_completed INTEGER NOT NULL,
					bidder_count INTEGER NOT NULL,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL
				);`,
				`CREATE TABLE milestone (
					tender_id INTEGER NOT NULL REFERENCES tender (tender_id) ON DELETE CASCADE,
					idx INTEGER NOT NULL,
					description TEXT NOT NULL,
					amount BLOB NOT NULL,
					paid BOOLEAN NOT NULL,
					paid_at INTEGER NOT NULL,
					PRIMARY KEY (tender_id, idx)
				);`,
				`CREATE TABLE bid (
					tender_id INTEGER NOT NULL REFERENCES tender (tender_id) ON DELETE CASCADE,
					roster_idx INTEGER NOT NULL,
					bidder BLOB NOT NULL,
					commit_hash BLOB NOT NULL,
					revealed BOOLEAN NOT NULL,
					revealed_amount BLOB,
					valid BOOLEAN NOT NULL,
					revealed_at INTEGER NOT NULL,
					PRIMARY KEY (tender_id, bidder)
				);`,
				`CREATE TABLE bidder (
					item_id INTEGER PRIMARY KEY,
					addr BLOB NOT NULL UNIQUE,
					registered_at INTEGER NOT NULL
				);`,
				`CREATE TABLE tender_event (
					item_id INTEGER PRIMARY KEY,
					event_type TEXT NOT NULL,
					tender_id INTEGER,
					addr BLOB,
					other_addr BLOB,
					amount BLOB,
					commit_hash BLOB,
					valid BOOLEAN,
					milestone_idx INTEGER,
					timestamp INTEGER NOT NULL
				);`,
				`CREATE INDEX tender_event_tender_idx ON tender_event (tender_id);`,
				`CREATE INDEX tender_event_type_idx ON tender_event (event_type);`,
				`CREATE INDEX bid_bidder_idx ON bid (bidder);`,
			},
			Down: []string{
				`DROP TABLE tender_event;`,
				`DROP TABLE bidder;`,
				`DROP TABLE bid;`,
				`DROP TABLE milestone;`,
				`DROP TABLE tender;`,
			},
		},
	},
}

func migrationSource(driver string) (migrate.MigrationSource, error) {
	switch driver {
	case DriverPostgres:
		return postgresMigrations, nil
	case DriverSQLite:
		return sqliteMigrations, nil
	default:
		return nil, tracerr.Wrap(fmt.Errorf("no migrations for sql driver %q", driver))
	}
}
