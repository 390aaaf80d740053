package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenVerifications tracks verifier outcomes by token kind
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_sync_token_verifications_total",
			Help: "The total number of token verifications",
		},
		[]string{"kind", "result"}, // access/identity, valid/invalid
	)

	// Reconciliations tracks identity sync outcomes
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_sync_reconciliations_total",
			Help: "The total number of identity reconciliations",
		},
		[]string{"result"}, // success, conflict, failed
	)

	// ReconcileSeconds tracks time spent reconciling one snapshot
	ReconcileSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "identity_sync_reconcile_seconds",
		Help:    "Time taken to reconcile an identity snapshot in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SnapshotArchives tracks snapshot archive writes
	SnapshotArchives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_sync_snapshot_archives_total",
			Help: "The total number of identity snapshot archive writes",
		},
		[]string{"result"}, // success, failed
	)

	MirrorUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "identity_sync_mirror_users",
		Help: "The number of users in the local identity mirror",
	})

	MirrorWallets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "identity_sync_mirror_wallets",
		Help: "The number of wallets in the local identity mirror",
	})
)

// RecordTokenVerification records a verifier outcome
func RecordTokenVerification(kind string, valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	TokenVerifications.WithLabelValues(kind, result).Inc()
}

// RecordReconciliation records a reconciliation outcome and its duration
func RecordReconciliation(result string, seconds float64) {
	Reconciliations.WithLabelValues(result).Inc()
	ReconcileSeconds.Observe(seconds)
}

// RecordSnapshotArchive records an archive write
func RecordSnapshotArchive(success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	SnapshotArchives.WithLabelValues(result).Inc()
}

// SetMirrorCounts publishes the current mirror size
func SetMirrorCounts(users, wallets int64) {
	MirrorUsers.Set(float64(users))
	MirrorWallets.Set(float64(wallets))
}
