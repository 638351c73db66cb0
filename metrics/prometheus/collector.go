package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nnsW3/signup-sequencer/metrics"
)

var _ metrics.Metrics = (*Collector)(nil)

// NewCollector creates the sequencer metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	minedLeaf := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sequencer_mined_leaves",
		Help: "The number of leaves in the mined tree",
	})
	latestLeaf := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sequencer_latest_leaves",
		Help: "The number of leaves in the latest tree",
	})
	pendingUpdates := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sequencer_pending_updates",
		Help: "The number of inserts waiting for confirmation",
	})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sequencer_identities_inserted_total",
		Help: "The number of identities accepted by the ledger",
	})
	insertFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequencer_insert_failures_total",
		Help: "The number of failed insertions by stage",
	}, []string{"stage"})
	proofServed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequencer_inclusion_proofs_total",
		Help: "The number of inclusion proofs served by status",
	}, []string{"status"})
	reg.MustRegister(
		minedLeaf,
		latestLeaf,
		pendingUpdates,
		inserted,
		insertFailed,
		proofServed)

	return &Collector{
		minedLeaf:      minedLeaf,
		latestLeaf:     latestLeaf,
		pendingUpdates: pendingUpdates,
		inserted:       inserted,
		insertFailed:   insertFailed,
		proofServed:    proofServed,
	}
}

type Collector struct {
	minedLeaf      prometheus.Gauge
	latestLeaf     prometheus.Gauge
	pendingUpdates prometheus.Gauge
	inserted       prometheus.Counter
	insertFailed   *prometheus.CounterVec
	proofServed    *prometheus.CounterVec
}

func (c *Collector) MinedLeaf(n int) {
	c.minedLeaf.Set(float64(n))
}

func (c *Collector) LatestLeaf(n int) {
	c.latestLeaf.Set(float64(n))
}

func (c *Collector) PendingUpdates(n int) {
	c.pendingUpdates.Set(float64(n))
}

func (c *Collector) Inserted() {
	c.inserted.Inc()
}

func (c *Collector) InsertFailed(stage string) {
	c.insertFailed.WithLabelValues(stage).Inc()
}

func (c *Collector) ProofServed(status string) {
	c.proofServed.WithLabelValues(status).Inc()
}
