package engine

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"diagnostic_assistant/internal/models"
)

// ecuKey is the lookup form of an ECU id. Records keep the id as the
// transport reported it.
func ecuKey(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// registrySnapshot is immutable once published.
type registrySnapshot struct {
	records []models.ECURecord
	index   map[string]int
	summary models.DTCSummary
}

func newSnapshot(records []models.ECURecord) *registrySnapshot {
	s := &registrySnapshot{
		records: records,
		index:   make(map[string]int, len(records)),
		summary: Summarize(records),
	}
	for i, r := range records {
		s.index[ecuKey(r.ID)] = i
	}
	return s
}

// Registry holds the ECU records and their derived DTC summary. Writers swap
// whole snapshots, so readers never observe a partial update and never lock.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[registrySnapshot]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(newSnapshot(nil))
	return r
}

// Summarize derives a DTCSummary. Special units count toward TotalECUs only.
func Summarize(records []models.ECURecord) models.DTCSummary {
	s := models.DTCSummary{TotalECUs: len(records)}
	for _, r := range records {
		if r.Status == models.ECUStatusDTCFound {
			s.ECUsWithDTCs++
		}
		if !r.IsSpecialUnit {
			s.TotalDTCs += r.DTCCount
		}
	}
	return s
}

func validateRecord(r models.ECURecord) error {
	if r.ID == "" {
		return fmt.Errorf("ecu record: empty id")
	}
	if r.DTCCount < 0 {
		return fmt.Errorf("ecu %s: negative dtc count %d", r.ID, r.DTCCount)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("ecu %s: invalid status %q", r.ID, r.Status)
	}
	return nil
}

// ReplaceAll swaps in records as the new registry content.
func (r *Registry) ReplaceAll(records []models.ECURecord) (models.DTCSummary, error) {
	next := make([]models.ECURecord, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return models.DTCSummary{}, err
		}
		key := ecuKey(rec.ID)
		if _, dup := seen[key]; dup {
			return models.DTCSummary{}, newError(ErrDuplicateECU, rec.ID, nil)
		}
		seen[key] = struct{}{}
		next[i] = rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s := newSnapshot(next)
	r.snap.Store(s)
	return s.summary, nil
}

// ApplyDelta updates the status and count of one existing record. It backs
// single-ECU refreshes.
func (r *Registry) ApplyDelta(id string, status models.ECUStatus, dtcCount int) (models.DTCSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	i, ok := cur.index[ecuKey(id)]
	if !ok {
		return cur.summary, newError(ErrUnknownECU, id, nil)
	}
	rec := cur.records[i]
	rec.Status = status
	rec.DTCCount = dtcCount
	rec.UpdatedAt = time.Now().UTC()
	if err := validateRecord(rec); err != nil {
		return cur.summary, err
	}

	next := make([]models.ECURecord, len(cur.records))
	copy(next, cur.records)
	next[i] = rec
	s := newSnapshot(next)
	r.snap.Store(s)
	return s.summary, nil
}

// Summary returns the summary of the last committed snapshot.
func (r *Registry) Summary() models.DTCSummary {
	return r.snap.Load().summary
}

// Records returns a copy of the committed records.
func (r *Registry) Records() []models.ECURecord {
	s := r.snap.Load()
	out := make([]models.ECURecord, len(s.records))
	copy(out, s.records)
	return out
}

// View returns records and summary from the same snapshot.
func (r *Registry) View() ([]models.ECURecord, models.DTCSummary) {
	s := r.snap.Load()
	out := make([]models.ECURecord, len(s.records))
	copy(out, s.records)
	return out, s.summary
}

// Get returns the record for id, matched case-insensitively.
func (r *Registry) Get(id string) (models.ECURecord, bool) {
	s := r.snap.Load()
	i, ok := s.index[ecuKey(id)]
	if !ok {
		return models.ECURecord{}, false
	}
	return s.records[i], true
}

// Len returns the number of committed records.
func (r *Registry) Len() int {
	return len(r.snap.Load().records)
}
