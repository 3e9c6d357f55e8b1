package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for StakeLedger.
type Metrics struct {
	// --- Core operations ---
	OpsApplied  *prometheus.CounterVec // op
	OpsRejected *prometheus.CounterVec // op, reason
	OpDuration  *prometheus.HistogramVec

	// --- Settlement ---
	SettlementsCreated   prometheus.Counter
	SettlementsFinalized prometheus.Counter
	SettlementsUnlocked  prometheus.Counter
	TransactionsLocked   prometheus.Gauge

	// --- Store ---
	StoreEntities *prometheus.GaugeVec // collection

	// --- Persistence ---
	PersistWrites     prometheus.Counter
	PersistErrors     *prometheus.CounterVec // stage
	PersistDuration   prometheus.Histogram
	PersistCoalesced  prometheus.Counter
	SnapshotSizeBytes prometheus.Gauge

	// --- Activity publisher ---
	PublishSent  prometheus.Counter
	PublishDrops prometheus.Counter

	// --- Ingestion ---
	IngestCommands   *prometheus.CounterVec // command, outcome
	IngestDuplicates prometheus.Counter
}

// NewMetrics registers all metrics with the given registerer. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OpsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_core_ops_applied_total",
			Help: "Mutating operations applied, by operation.",
		}, []string{"op"}),
		OpsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_core_ops_rejected_total",
			Help: "Mutating operations rejected, by operation and reason.",
		}, []string{"op", "reason"}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stake_core_op_duration_seconds",
			Help:    "Duration of core operations.",
			Buckets: prometheus.ExponentialBuckets(0.000005, 4, 10),
		}, []string{"op"}),

		SettlementsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_settlements_created_total",
			Help: "Settlement periods opened.",
		}),
		SettlementsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_settlements_finalized_total",
			Help: "Settlement periods finalized.",
		}),
		SettlementsUnlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_settlements_unlocked_total",
			Help: "Unlock operations applied to settlement periods.",
		}),
		TransactionsLocked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stake_transactions_locked",
			Help: "Transactions currently bound to a completed settlement.",
		}),

		StoreEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stake_store_entities",
			Help: "Entity counts per collection.",
		}, []string{"collection"}),

		PersistWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_persist_writes_total",
			Help: "Snapshots written to the blob store.",
		}),
		PersistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_persist_errors_total",
			Help: "Snapshot write failures, by stage.",
		}, []string{"stage"}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stake_persist_write_duration_seconds",
			Help:    "Duration of snapshot writes.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		PersistCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_persist_coalesced_total",
			Help: "Snapshots superseded before write (latest-wins coalescing).",
		}),
		SnapshotSizeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stake_snapshot_size_bytes",
			Help: "Encoded size of the last written snapshot.",
		}),

		PublishSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_activity_published_total",
			Help: "Activity entries published to NATS.",
		}),
		PublishDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_activity_publish_drops_total",
			Help: "Activity entries dropped on a full publish channel.",
		}),

		IngestCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_ingest_commands_total",
			Help: "Commands received over NATS, by command and outcome.",
		}, []string{"command", "outcome"}),
		IngestDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "stake_ingest_duplicates_total",
			Help: "Commands skipped by the idempotency dedup.",
		}),
	}
}
