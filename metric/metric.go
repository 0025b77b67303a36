package metric

import (
	"time"

	"github.com/procurenet/tender-node/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceError  = "error"
	namespaceEngine = "engine"
	namespaceAudit  = "auditdb"
	namespaceAPI    = "api"
)

var (
	// Errors errors count metric.
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceError,
			Name:      "errors",
			Help:      "",
		}, []string{"error"})

	// TendersCreated published tender count
	TendersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "tenders_created_total",
			Help:      "",
		})

	// BiddersRegistered bidder registration count
	BiddersRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "bidders_registered_total",
			Help:      "",
		})

	// BidsCommitted sealed bid count
	BidsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "bids_committed_total",
			Help:      "",
		})

	// BidsRevealed opened bid count
	BidsRevealed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "bids_revealed_total",
			Help:      "",
		})

	// WinnersSelected awarded tender count
	WinnersSelected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "winners_selected_total",
			Help:      "",
		})

	// TendersFunded escrow funding count
	TendersFunded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "tenders_funded_total",
			Help:      "",
		})

	// MilestonePayments released milestone payment count
	MilestonePayments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "milestone_payments_total",
			Help:      "",
		})

	// EmergencyWithdrawals emergency escrow recovery count
	EmergencyWithdrawals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceEngine,
			Name:      "emergency_withdrawals_total",
			Help:      "",
		})

	// OpenTenders tenders that have not reached COMPLETED
	OpenTenders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceEngine,
			Name:      "open_tenders",
			Help:      "",
		})

	// RegisteredBidders size of the bidder registry
	RegisteredBidders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceEngine,
			Name:      "registered_bidders",
			Help:      "",
		})

	// LastEventItem item_id of the last event recorded in the audit trail
	LastEventItem = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceAudit,
			Name:      "last_event_item",
			Help:      "",
		})

	// SyncDuration duration of one audit trail sync
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceAudit,
			Name:      "sync_duration",
			Help:      "",
		}, []string{"result"})
)

func init() {
	if err := registerCollectors(); err != nil {
		log.Error(err)
	}
}
func registerCollectors() error {
	if err := registerCollector(Errors); err != nil {
		return err
	}
	if err := registerCollector(TendersCreated); err != nil {
		return err
	}
	if err := registerCollector(BiddersRegistered); err != nil {
		return err
	}
	if err := registerCollector(BidsCommitted); err != nil {
		return err
	}
	if err := registerCollector(BidsRevealed); err != nil {
		return err
	}
	if err := registerCollector(WinnersSelected); err != nil {
		return err
	}
	if err := registerCollector(TendersFunded); err != nil {
		return err
	}
	if err := registerCollector(MilestonePayments); err != nil {
		return err
	}
	if err := registerCollector(EmergencyWithdrawals); err != nil {
		return err
	}
	if err := registerCollector(OpenTenders); err != nil {
		return err
	}
	if err := registerCollector(RegisteredBidders); err != nil {
		return err
	}
	if err := registerCollector(LastEventItem); err != nil {
		return err
	}
	return registerCollector(SyncDuration)
}

func registerCollector(collector prometheus.Collector) error {
	err := prometheus.Register(collector)
	if err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// MeasureDuration measure the method execution duration
// and save it into a histogram metric
func MeasureDuration(histogram *prometheus.HistogramVec, start time.Time, lvs ...string) {
	duration := time.Since(start)
	histogram.WithLabelValues(lvs...).Observe(float64(duration.Milliseconds()))
}

// CollectError collect the error message and increment
// the error count
func CollectError(err error) {
	Errors.With(map[string]string{"error": err.Error()}).Inc()
}
