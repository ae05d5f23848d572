package obs

import (
	"sync/atomic"
	"time"

	"main/internal/catalog"
)

const maxDataset = int(catalog.DatasetBars)

// Metrics collects lightweight counters and latency stats for the catalog
// feed and replay paths.
type Metrics struct {
	batchCounts  [maxDataset + 1]uint64
	recordCounts [maxDataset + 1]uint64
	replayCounts [maxDataset + 1]uint64
	queueDrops   uint64
	queueClosed  uint64
	writeRetries uint64

	writeLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	BatchCounts  map[catalog.Dataset]uint64
	RecordCounts map[catalog.Dataset]uint64
	ReplayCounts map[catalog.Dataset]uint64
	QueueDrops   uint64
	QueueClosed  uint64
	WriteRetries uint64
	WriteLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveWrite records one persisted batch and its write latency.
func (m *Metrics) ObserveWrite(dataset catalog.Dataset, records int, d time.Duration) {
	if m == nil {
		return
	}
	idx := int(dataset)
	if idx >= 0 && idx < len(m.batchCounts) {
		atomic.AddUint64(&m.batchCounts[idx], 1)
		atomic.AddUint64(&m.recordCounts[idx], uint64(records))
	}
	m.writeLatency.Observe(d)
}

// ObserveReplay records replayed records.
func (m *Metrics) ObserveReplay(dataset catalog.Dataset, records int) {
	if m == nil {
		return
	}
	idx := int(dataset)
	if idx >= 0 && idx < len(m.replayCounts) {
		atomic.AddUint64(&m.replayCounts[idx], uint64(records))
	}
}

// IncQueueDrop records a backpressured append.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records an append against a closed feed.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncWriteRetry records a retried catalog write.
func (m *Metrics) IncWriteRetry() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.writeRetries, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	batches := make(map[catalog.Dataset]uint64)
	records := make(map[catalog.Dataset]uint64)
	replays := make(map[catalog.Dataset]uint64)
	for i := range m.batchCounts {
		if v := atomic.LoadUint64(&m.batchCounts[i]); v > 0 {
			batches[catalog.Dataset(i)] = v
		}
		if v := atomic.LoadUint64(&m.recordCounts[i]); v > 0 {
			records[catalog.Dataset(i)] = v
		}
		if v := atomic.LoadUint64(&m.replayCounts[i]); v > 0 {
			replays[catalog.Dataset(i)] = v
		}
	}
	return Snapshot{
		BatchCounts:  batches,
		RecordCounts: records,
		ReplayCounts: replays,
		QueueDrops:   atomic.LoadUint64(&m.queueDrops),
		QueueClosed:  atomic.LoadUint64(&m.queueClosed),
		WriteRetries: atomic.LoadUint64(&m.writeRetries),
		WriteLatency: m.writeLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
