package api

import (
	"net/http"
	"time"

	"github.com/dimiro1/health"
	"github.com/procurenet/tender-node/health/checkers"
)

func (a *API) healthRoute(version string) http.Handler {
	healthHandler := health.NewHandler()

	if a.adb != nil {
		auditDBChecker := checkers.NewCheckerWithDB(a.adb.DB().DriverName(), a.adb.DB().DB)
		healthHandler.AddChecker("auditDB", auditDBChecker)
	}
	healthHandler.AddInfo("version", version)
	t := time.Now().UTC()
	healthHandler.AddInfo("timestamp", t)
	if a.engine != nil {
		healthHandler.AddInfo("owner", a.engine.Owner().Hex())
		healthHandler.AddInfo("paused", a.engine.Paused())
		healthHandler.AddInfo("ledgerTime", a.engine.Time())
	}
	return healthHandler
}
