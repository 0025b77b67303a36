package checkers

import (
	"database/sql"

	"github.com/dimiro1/health"
	dbHealth "github.com/dimiro1/health/db"
)

// SQLChecker checks the current status of the audit database
type SQLChecker struct {
	sqlChecker dbHealth.Checker
}

// NewCheckerWithDB creates a new instance of the SQLChecker for the given
// sql driver (sqlite3 or postgres)
func NewCheckerWithDB(driver string, db *sql.DB) SQLChecker {
	var checker dbHealth.Checker
	switch driver {
	case "sqlite3":
		checker = dbHealth.NewSqlite3Checker(db)
	default:
		checker = dbHealth.NewPostgreSQLChecker(db)
	}
	return SQLChecker{
		sqlChecker: checker,
	}
}

// Check function checks if the db is responding and returns its status, the
// db version and the id of the last migration applied
func (c SQLChecker) Check() health.Health {
	h := c.sqlChecker.Check()

	q := `SELECT id FROM gorp_migrations ORDER BY id DESC LIMIT 1`
	row := c.sqlChecker.DB.QueryRow(q)
	var id string
	err := row.Scan(&id)
	if err != nil {
		h.Down().AddInfo("error", err.Error())
		return h
	}

	h.Up().AddInfo("last_migration", id)

	return h
}
