package gossip

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// Rounds is the total number of initiated gossip rounds labelled by
	// result.
	Rounds *prometheus.CounterVec

	// ChangesMerged is the total number of received changes that replaced or
	// added a local entry.
	ChangesMerged prometheus.Counter

	// ChangesDiscarded is the total number of received changes that were
	// discarded as the local entry was the same version or newer.
	ChangesDiscarded prometheus.Counter

	// Needs is the total number of keys requested by peers.
	Needs prometheus.Counter

	// NeedsMissing is the total number of keys requested by peers that
	// weren't found locally.
	NeedsMissing prometheus.Counter

	// UpdatesAcked is the total number of entries sent to peers in an ACK.
	UpdatesAcked prometheus.Counter

	// Entries is the number of entries in the local store.
	Entries prometheus.GaugeFunc
}

func newMetrics(entries func() float64) *Metrics {
	return &Metrics{
		Rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "rounds_total",
				Help:      "Total number of initiated gossip rounds",
			},
			[]string{"result"},
		),
		ChangesMerged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "changes_merged_total",
				Help:      "Total number of received changes merged into the store",
			},
		),
		ChangesDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "changes_discarded_total",
				Help:      "Total number of received changes discarded as stale",
			},
		),
		Needs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "needs_total",
				Help:      "Total number of keys requested by peers",
			},
		),
		NeedsMissing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "needs_missing_total",
				Help:      "Total number of keys requested by peers that were not found",
			},
		),
		UpdatesAcked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "updates_acked_total",
				Help:      "Total number of entries sent to peers",
			},
		),
		Entries: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "epidemic",
				Subsystem: "gossip",
				Name:      "entries",
				Help:      "Number of entries in the local store",
			},
			entries,
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.Rounds,
		m.ChangesMerged,
		m.ChangesDiscarded,
		m.Needs,
		m.NeedsMissing,
		m.UpdatesAcked,
		m.Entries,
	)
}
