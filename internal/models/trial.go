package models

// Age sentinel defaults used when the registry omits or mangles an age bound.
const (
	DefaultMinimumAge = 0
	DefaultMaximumAge = 999
)

// Trial is a normalized registry trial record, flattened from the
// registry's nested module JSON.
type Trial struct {
	NCTID                 string      `json:"nct_id"`
	Title                 string      `json:"title"`
	OfficialTitle         string      `json:"official_title"`
	BriefTitle            string      `json:"brief_title"`
	ProtocolName          string      `json:"protocol_name"`
	Sponsor               string      `json:"sponsor"`
	Status                string      `json:"status"`
	StartDate             string      `json:"start_date"`
	PrimaryCompletionDate string      `json:"primary_completion_date"`
	CompletionDate        string      `json:"completion_date"`
	MinimumAge            int         `json:"minimum_age"`
	MaximumAge            int         `json:"maximum_age"`
	Gender                string      `json:"gender"`
	Summary               string      `json:"summary"`
	Conditions            []string    `json:"conditions"`
	Keywords              []string    `json:"keywords"`
	Phases                []string    `json:"phases"`
	Drugs                 []string    `json:"drugs"`
	EudractNumber         string      `json:"eudract_number"`
	SecondaryIDs          []string    `json:"secondary_ids"`
	Locations             []*Location `json:"locations"`
}
