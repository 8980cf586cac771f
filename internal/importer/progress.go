package importer

import (
	"sync"
	"time"

	"github.com/trialsite/trial-importer/internal/models"
)

// staleAfter is the cutoff past which a progress snapshot is treated as
// "no active import".
const staleAfter = 3 * time.Minute

// ProgressTracker holds the process-wide import progress. Checkpoints
// overwrite the previous snapshot; readers get eventually-consistent
// copies.
type ProgressTracker struct {
	mu      sync.RWMutex
	current *models.ImportProgress
}

// NewProgressTracker creates an empty progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Update overwrites the progress snapshot at a checkpoint.
func (t *ProgressTracker) Update(step string, position, total int, subData map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = &models.ImportProgress{
		Step:        step,
		Position:    position,
		Total:       total,
		SubData:     subData,
		LastUpdated: time.Now(),
	}
}

// Snapshot returns a copy of the current progress and whether an import is
// active. A snapshot older than the staleness cutoff reads as inactive.
func (t *ProgressTracker) Snapshot() (*models.ImportProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.current == nil {
		return nil, false
	}
	if time.Since(t.current.LastUpdated) > staleAfter {
		return nil, false
	}

	snapshot := *t.current
	return &snapshot, true
}

// Clear removes the progress snapshot at run end.
func (t *ProgressTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
}
