package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics collects counters and gauges for the storage engine.
//
// All collectors work without a registry, so callers that do not care about
// metrics can pass a nil Registerer.
type StoreMetrics struct {
	inserts         *prometheus.CounterVec
	deletes         *prometheus.CounterVec
	finds           *prometheus.CounterVec
	rebuildDuration prometheus.Summary
	recordsScanned  prometheus.Counter
	livePairs       prometheus.Gauge
	liveKeys        prometheus.Gauge
}

func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{}

	m.inserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inserts_total",
		Help: "Total number of insert operations.",
	}, []string{"result"})

	m.deletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deletes_total",
		Help: "Total number of delete operations.",
	}, []string{"result"})

	m.finds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finds_total",
		Help: "Total number of find operations.",
	}, []string{"result"})

	m.rebuildDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "rebuild_duration_seconds",
		Help: "Duration of index rebuilds from the data file.",
	})

	m.recordsScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rebuild_records_scanned_total",
		Help: "Total number of records read during index rebuilds.",
	})

	m.livePairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_pairs",
		Help: "Current number of live (key, value) pairs in the index.",
	})

	m.liveKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_keys",
		Help: "Current number of distinct live keys in the index.",
	})

	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("multidex_store_", registerer)
		registerer.MustRegister(
			m.inserts,
			m.deletes,
			m.finds,
			m.rebuildDuration,
			m.recordsScanned,
			m.livePairs,
			m.liveKeys,
		)
	}

	return m
}

// ObserveInsert records an insert, applied or absorbed as a duplicate.
func (m *StoreMetrics) ObserveInsert(applied bool) {
	if applied {
		m.inserts.WithLabelValues("applied").Inc()
	} else {
		m.inserts.WithLabelValues("duplicate").Inc()
	}
}

// ObserveDelete records a delete, applied or absorbed as a miss.
func (m *StoreMetrics) ObserveDelete(applied bool) {
	if applied {
		m.deletes.WithLabelValues("applied").Inc()
	} else {
		m.deletes.WithLabelValues("missing").Inc()
	}
}

// ObserveFind records a find hit or miss.
func (m *StoreMetrics) ObserveFind(hit bool) {
	if hit {
		m.finds.WithLabelValues("hit").Inc()
	} else {
		m.finds.WithLabelValues("miss").Inc()
	}
}

// ObserveRebuild records one completed rebuild scan.
func (m *StoreMetrics) ObserveRebuild(seconds float64, recordsScanned int) {
	m.rebuildDuration.Observe(seconds)
	m.recordsScanned.Add(float64(recordsScanned))
}

// SetLive updates the live key and pair gauges.
func (m *StoreMetrics) SetLive(keys, pairs int) {
	m.liveKeys.Set(float64(keys))
	m.livePairs.Set(float64(pairs))
}
