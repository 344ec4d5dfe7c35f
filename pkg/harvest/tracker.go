package harvest

import (
	"sort"
	"sync"
)

// Tracker keeps the most recent run reports in memory.
type Tracker struct {
	mu      sync.RWMutex
	reports map[string]*Report
	order   []string
	limit   int
}

// NewTracker creates a tracker remembering up to limit runs.
func NewTracker(limit int) *Tracker {
	if limit < 1 {
		limit = 1
	}
	return &Tracker{
		reports: make(map[string]*Report),
		limit:   limit,
	}
}

// Put stores or replaces a report. Stored reports must not be modified
// afterwards.
func (t *Tracker) Put(report *Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.reports[report.ID]; !ok {
		t.order = append(t.order, report.ID)
	}
	t.reports[report.ID] = report

	for len(t.order) > t.limit {
		delete(t.reports, t.order[0])
		t.order = t.order[1:]
	}
}

// Get returns a report by run id.
func (t *Tracker) Get(id string) (*Report, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	report, ok := t.reports[id]
	return report, ok
}

// List returns the remembered reports, newest first.
func (t *Tracker) List() []*Report {
	t.mu.RLock()
	defer t.mu.RUnlock()

	reports := make([]*Report, 0, len(t.reports))
	for _, report := range t.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return reports
}

// Running reports whether any remembered run is still in progress.
func (t *Tracker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, report := range t.reports {
		if report.Status == StatusRunning {
			return true
		}
	}
	return false
}
