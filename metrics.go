package shelfauth

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricLoginSuccess counts credential validations that issued a session.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credential validations.
	MetricLoginFailure
	// MetricSessionIssued counts token pairs registered.
	MetricSessionIssued
	// MetricSessionRotated counts access tokens minted through refresh.
	MetricSessionRotated
	// MetricLogout counts explicit refresh-token revocations.
	MetricLogout
	// MetricPasswordChanged counts completed password changes.
	MetricPasswordChanged
	// MetricTokensRevoked counts registry entries removed by mass revocation.
	MetricTokensRevoked
	// MetricTokenRejected counts tokens whose id failed the registry check.
	MetricTokenRejected
	// MetricStoreError counts registry operations lost to infrastructure failures.
	MetricStoreError
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's counters: fixed-size, lock-free, padded to
// avoid false sharing between hot counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics set; disabled metrics make Inc a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add adds n to the counter.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil {
		return snapshot
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snapshot
}
