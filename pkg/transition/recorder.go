package transition

import (
	"sync"
	"time"
)

// TickRecord is one write of a transition.
type TickRecord struct {
	Scheduled time.Time
	Written   time.Time
}

// Lag is how far behind schedule the write happened.
func (r TickRecord) Lag() time.Duration {
	return r.Written.Sub(r.Scheduled)
}

// TickRecorder keeps the last MaxRecordCount ticks of a transition. The late
// count and the largest lag cover every tick added since the last clear, not
// only the retained ones.
type TickRecorder struct {
	MaxRecordCount int
	// LateAfter is the lag from which a tick counts as late. Zero disables
	// late counting.
	LateAfter time.Duration
	Records   []TickRecord

	late   int
	maxLag time.Duration
	mu     *sync.Mutex
}

// NewTickRecorder returns a new TickRecorder. maxRecordCount must be positive.
func NewTickRecorder(maxRecordCount int, lateAfter time.Duration) *TickRecorder {
	if maxRecordCount <= 0 {
		maxRecordCount = 1
	}
	return &TickRecorder{
		MaxRecordCount: maxRecordCount,
		LateAfter:      lateAfter,
		Records:        make([]TickRecord, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecord adds a tick.
func (r *TickRecorder) AddRecord(scheduled, written time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := TickRecord{Scheduled: scheduled, Written: written}
	lag := rec.Lag()
	if r.LateAfter > 0 && lag >= r.LateAfter {
		r.late++
	}
	if lag > r.maxLag {
		r.maxLag = lag
	}

	if len(r.Records) >= r.MaxRecordCount {
		r.Records = r.Records[1:]
	}
	r.Records = append(r.Records, rec)
}

// ClearRecords clears all records and totals.
func (r *TickRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Records = make([]TickRecord, 0)
	r.late = 0
	r.maxLag = 0
}

// GetRecords returns a copy of the retained records.
func (r *TickRecorder) GetRecords() []TickRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TickRecord, len(r.Records))
	copy(out, r.Records)
	return out
}

// LateTicks returns the number of ticks written at least LateAfter after their
// scheduled time.
func (r *TickRecorder) LateTicks() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.late
}

// MaxLag returns the largest lag seen.
func (r *TickRecorder) MaxLag() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.maxLag
}
