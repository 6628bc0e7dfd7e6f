package observability

import (
	"sync/atomic"
	"time"
)

// JobMetrics are in-process counters surfaced on the worker's /healthz so an
// operator can see alert throughput without a Prometheus server.
type JobMetrics struct {
	claimed   atomic.Uint64
	alerted   atomic.Uint64
	retried   atomic.Uint64
	exhausted atomic.Uint64
	requeued  atomic.Uint64

	lastAlertUnix atomic.Int64
	durationMax   atomic.Int64
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{}
}

func (m *JobMetrics) IncClaimed()   { m.claimed.Add(1) }
func (m *JobMetrics) IncRetried()   { m.retried.Add(1) }
func (m *JobMetrics) IncExhausted() { m.exhausted.Add(1) }

func (m *JobMetrics) AddRequeued(n int64) {
	if n > 0 {
		m.requeued.Add(uint64(n))
	}
}

func (m *JobMetrics) IncAlerted(at time.Time) {
	m.alerted.Add(1)
	m.lastAlertUnix.Store(at.Unix())
}

func (m *JobMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	for {
		curr := m.durationMax.Load()
		if ns <= curr {
			return
		}
		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type JobMetricsSnapshot struct {
	Claimed     uint64        `json:"claimed"`
	Alerted     uint64        `json:"alerted"`
	Retried     uint64        `json:"retried"`
	Exhausted   uint64        `json:"exhausted"`
	Requeued    uint64        `json:"requeued"`
	LastAlertAt *time.Time    `json:"lastAlertAt,omitempty"`
	MaxDuration time.Duration `json:"maxDurationNs"`
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	s := JobMetricsSnapshot{
		Claimed:     m.claimed.Load(),
		Alerted:     m.alerted.Load(),
		Retried:     m.retried.Load(),
		Exhausted:   m.exhausted.Load(),
		Requeued:    m.requeued.Load(),
		MaxDuration: time.Duration(m.durationMax.Load()),
	}

	if ts := m.lastAlertUnix.Load(); ts > 0 {
		t := time.Unix(ts, 0).UTC()
		s.LastAlertAt = &t
	}
	return s
}
