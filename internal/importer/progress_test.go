package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker(t *testing.T) {
	t.Run("empty tracker reads inactive", func(t *testing.T) {
		tracker := NewProgressTracker()
		snapshot, active := tracker.Snapshot()
		assert.Nil(t, snapshot)
		assert.False(t, active)
	})

	t.Run("update overwrites previous checkpoint", func(t *testing.T) {
		tracker := NewProgressTracker()
		tracker.Update("fetching", 0, 0, nil)
		tracker.Update("reconciling", 5, 20, map[string]interface{}{"nct_id": "NCT001"})

		snapshot, active := tracker.Snapshot()
		require.True(t, active)
		assert.Equal(t, "reconciling", snapshot.Step)
		assert.Equal(t, 5, snapshot.Position)
		assert.Equal(t, 20, snapshot.Total)
		assert.Equal(t, "NCT001", snapshot.SubData["nct_id"])
	})

	t.Run("stale snapshot reads inactive", func(t *testing.T) {
		tracker := NewProgressTracker()
		tracker.Update("reconciling", 5, 20, nil)
		tracker.current.LastUpdated = time.Now().Add(-staleAfter - time.Second)

		snapshot, active := tracker.Snapshot()
		assert.Nil(t, snapshot)
		assert.False(t, active)
	})

	t.Run("clear removes the snapshot", func(t *testing.T) {
		tracker := NewProgressTracker()
		tracker.Update("fetching", 0, 0, nil)
		tracker.Clear()

		_, active := tracker.Snapshot()
		assert.False(t, active)
	})
}
