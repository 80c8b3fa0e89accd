package stats

import "sync"

// MockStatsUpdater is a no-op StatsProvider that records counter values for
// assertions in tests.
type MockStatsUpdater struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *MockStatsUpdater) Incr(name string) { m.add(name, 1) }
func (m *MockStatsUpdater) Decr(name string) { m.add(name, -1) }

func (m *MockStatsUpdater) RegisterMetric(name string) { m.add(name, 0) }

func (m *MockStatsUpdater) Run() {}

func (m *MockStatsUpdater) add(name string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name] += delta
}

func (m *MockStatsUpdater) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}
