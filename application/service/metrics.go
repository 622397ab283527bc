package service

import (
	"context"
	"sync"
	"time"

	"spiders/application/state"
)

// InMemoryMetrics はプロセス内で集計する MetricsRecorder です。
// セッション終了時のサマリ出力に使う。
type InMemoryMetrics struct {
	mu         sync.Mutex
	counters   map[string]int
	latency    map[string]Aggregate
	contention map[string]Aggregate
}

// Aggregate は回数と合計・最大時間の集計値です。
type Aggregate struct {
	Count int
	Total time.Duration
	Max   time.Duration
}

func (a Aggregate) add(d time.Duration) Aggregate {
	a.Count++
	a.Total += d
	if d > a.Max {
		a.Max = d
	}
	return a
}

// Mean は平均時間を返します。
func (a Aggregate) Mean() time.Duration {
	if a.Count == 0 {
		return 0
	}
	return a.Total / time.Duration(a.Count)
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]int),
		latency:    make(map[string]Aggregate),
		contention: make(map[string]Aggregate),
	}
}

func (m *InMemoryMetrics) RecordLatency(ctx context.Context, endpoint string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency[endpoint] = m.latency[endpoint].add(duration)
}

func (m *InMemoryMetrics) RecordContention(ctx context.Context, endpoint string, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contention[endpoint] = m.contention[endpoint].add(wait)
}

func (m *InMemoryMetrics) IncrementCounter(ctx context.Context, name string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

func (m *InMemoryMetrics) Counter(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *InMemoryMetrics) Latency(endpoint string) Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latency[endpoint]
}

// Counters はカウンタのコピーを返します。
func (m *InMemoryMetrics) Counters() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// Contention はロック待ちの総計を返します。
func (m *InMemoryMetrics) Contention() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total Aggregate
	for _, a := range m.contention {
		total.Count += a.Count
		total.Total += a.Total
		if a.Max > total.Max {
			total.Max = a.Max
		}
	}
	return total
}

var _ state.MetricsRecorder = (*InMemoryMetrics)(nil)
