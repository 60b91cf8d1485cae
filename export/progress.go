package export

import "sync"

// Progress is published before each unit is rendered. Current is 1-based.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// Percent is Current over Total, 0 when nothing is planned.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) * 100 / float64(p.Total)
}

// ProgressFunc receives progress updates. It must not block for long.
type ProgressFunc func(Progress)

// tracker publishes strictly increasing progress against a fixed total.
type tracker struct {
	total   int
	current int
	fn      ProgressFunc
}

func newTracker(total int, fn ProgressFunc) *tracker {
	return &tracker{total: total, fn: fn}
}

func (t *tracker) step(label string) Progress {
	if t.current < t.total {
		t.current++
	}
	p := Progress{Current: t.current, Total: t.total, Label: label}
	if t.fn != nil {
		t.fn(p)
	}
	return p
}

// ProgressBox holds the latest progress for concurrent readers.
type ProgressBox struct {
	mu sync.RWMutex
	p  Progress
}

func (b *ProgressBox) Set(p Progress) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *ProgressBox) Get() Progress {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.p
}
