package config

// DefaultValues is the default configuration for the tender node. The
// auction owner has no default and must come from the configuration file or
// the environment.
const DefaultValues = `
[Ledger]
Mnemonic = "test test test test test test test test test test test junk"
DevAccounts = 10
InitialBalance = "1000000000000000000"

[API]
Address = "0.0.0.0:8086"
Explorer = true
Operator = true
UpdateMetricsInterval = "10s"
MaxSQLConnections = 100
SQLConnectionTimeout = "2s"

[AuditDB]
Driver = "sqlite3"
DSN = "tender-audit.db"
SyncInterval = "1s"

[Keystore]
Path = ""
Password = ""
LightScrypt = false

[Log]
Level = "info"
ErrorsPath = ""
`
