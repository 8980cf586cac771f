package models

import "time"

// ImportProgress is the process-wide progress snapshot for a running import.
// It is overwritten (not merged) at each checkpoint; readers treat snapshots
// older than the staleness cutoff as "no active import".
type ImportProgress struct {
	Step        string                 `json:"step"`
	Position    int                    `json:"position"`
	Total       int                    `json:"total"`
	SubData     map[string]interface{} `json:"sub_data,omitempty"`
	LastUpdated time.Time              `json:"last_updated"`
}
