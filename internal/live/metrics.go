package live

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight session counters and tick-processing latency.
// Counters are atomic so read-side snapshots never block the tick path.
type Metrics struct {
	ticks         uint64
	ticksRejected uint64
	fills         uint64
	submitted     uint64
	rejected      uint64
	canceled      uint64

	latency latencyStats
}

type latencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of tick-processing latency.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// MetricsSnapshot captures the current counter values.
type MetricsSnapshot struct {
	Ticks         uint64
	TicksRejected uint64
	Fills         uint64
	Submitted     uint64
	Rejected      uint64
	Canceled      uint64
	TickLatency   LatencySnapshot
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTick records one processed tick and its fill count.
func (m *Metrics) ObserveTick(fills int, elapsed time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	if fills > 0 {
		atomic.AddUint64(&m.fills, uint64(fills))
	}
	m.latency.Observe(elapsed)
}

func (m *Metrics) IncTickRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticksRejected, 1)
}

func (m *Metrics) IncSubmitted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.submitted, 1)
}

func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejected, 1)
}

func (m *Metrics) IncCanceled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.canceled, 1)
}

// Snapshot captures the current metrics values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Ticks:         atomic.LoadUint64(&m.ticks),
		TicksRejected: atomic.LoadUint64(&m.ticksRejected),
		Fills:         atomic.LoadUint64(&m.fills),
		Submitted:     atomic.LoadUint64(&m.submitted),
		Rejected:      atomic.LoadUint64(&m.rejected),
		Canceled:      atomic.LoadUint64(&m.canceled),
		TickLatency:   m.latency.Snapshot(),
	}
}

func (s *latencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	v := uint64(d)
	atomic.AddUint64(&s.count, 1)
	atomic.AddUint64(&s.sum, v)
	for {
		cur := atomic.LoadUint64(&s.min)
		if cur != 0 && v >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&s.min, cur, v) {
			break
		}
	}
	for {
		cur := atomic.LoadUint64(&s.max)
		if v <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&s.max, cur, v) {
			break
		}
	}
}

func (s *latencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&s.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&s.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&s.min)),
		Max:   time.Duration(atomic.LoadUint64(&s.max)),
		Avg:   time.Duration(sum / count),
	}
}
