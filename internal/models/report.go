package models

import "time"

// Result statuses emitted per reconciled record.
const (
	ResultCreated     = "created"
	ResultUpdated     = "updated"
	ResultSkipped     = "skipped"
	ResultArchived    = "archived"
	ResultNotImported = "not-imported"
	ResultFailed      = "failed"
)

// ImportResult is the per-record outcome of a reconcile pass.
type ImportResult struct {
	PostID     int64  `json:"post_id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

// FieldChange is a staged field difference surfaced for audit. Applied
// reports whether the new value was persisted (diff policy "apply").
type FieldChange struct {
	ExternalID string `json:"external_id"`
	Field      string `json:"field"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	Applied    bool   `json:"applied"`
}

// ImportReport aggregates the outcome of one import run.
type ImportReport struct {
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
	Manual            bool           `json:"manual"`
	TotalFound        int            `json:"total_found"`
	New               int            `json:"new"`
	Updated           int            `json:"updated"`
	Archived          int            `json:"archived"`
	Skipped           int            `json:"skipped"`
	NotImported       int            `json:"not_imported"`
	Failed            int            `json:"failed"`
	LocationsGeocoded int            `json:"locations_geocoded"`
	GeocodeFailures   int            `json:"geocode_failures"`
	Results           []ImportResult `json:"results"`
	StagedChanges     []FieldChange  `json:"staged_changes,omitempty"`
}

// Add records a per-record result and bumps the matching counter.
func (r *ImportReport) Add(res ImportResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case ResultCreated:
		r.New++
	case ResultUpdated:
		r.Updated++
	case ResultArchived:
		r.Archived++
	case ResultSkipped:
		r.Skipped++
	case ResultNotImported:
		r.NotImported++
	case ResultFailed:
		r.Failed++
	}
}
