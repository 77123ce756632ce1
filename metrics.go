package forkchain

import (
	"github.com/prometheus/client_golang/prometheus"
)

type chainMetrics struct {
	blocksCommitted prometheus.Counter
	blocksRejected  *prometheus.CounterVec
	txsAccepted     prometheus.Counter
	blocksEvicted   prometheus.Counter
	reorgs          prometheus.Counter
	maxHeight       prometheus.Gauge
	treeSize        prometheus.Gauge
	poolSize        prometheus.Gauge
}

func newChainMetrics(registry prometheus.Registerer) *chainMetrics {
	m := &chainMetrics{
		blocksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "blocks_committed_total",
			Help:      "Blocks added to the block tree.",
		}),
		blocksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "blocks_rejected_total",
			Help:      "Blocks refused, by reason.",
		}, []string{"reason"}),
		txsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "txs_accepted_total",
			Help:      "Regular transactions in committed blocks.",
		}),
		blocksEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "blocks_evicted_total",
			Help:      "Blocks removed from the tree by the pruning sweep.",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "reorgs_total",
			Help:      "Times the best branch switched to another fork.",
		}),
		maxHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "max_height",
			Help:      "Height of the best block.",
		}),
		treeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forkchain",
			Subsystem: "chain",
			Name:      "tree_blocks",
			Help:      "Blocks currently held in the tree.",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forkchain",
			Subsystem: "pool",
			Name:      "pending_txs",
			Help:      "Transactions waiting in the pool.",
		}),
	}

	if registry != nil {
		registry.MustRegister(m.blocksCommitted)
		registry.MustRegister(m.blocksRejected)
		registry.MustRegister(m.txsAccepted)
		registry.MustRegister(m.blocksEvicted)
		registry.MustRegister(m.reorgs)
		registry.MustRegister(m.maxHeight)
		registry.MustRegister(m.treeSize)
		registry.MustRegister(m.poolSize)
	}
	return m
}
