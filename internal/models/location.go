package models

// GeocodeStatus tracks whether a location has been geocoded.
// Pending and Failed locations are both retried on the next import run.
type GeocodeStatus string

const (
	GeocodePending  GeocodeStatus = "pending"
	GeocodeResolved GeocodeStatus = "resolved"
	GeocodeFailed   GeocodeStatus = "failed"
)

// Location is a trial site, keyed by a slug of the facility name.
// A location may be referenced by multiple trials.
type Location struct {
	Facility        string        `json:"facility"`
	Slug            string        `json:"slug"`
	City            string        `json:"city"`
	State           string        `json:"state"`
	Zip             string        `json:"zip"`
	Country         string        `json:"country"`
	Phone           string        `json:"phone"`
	RecruitingState string        `json:"recruiting_status"`
	Languages       []string      `json:"languages"`
	Latitude        string        `json:"latitude"`
	Longitude       string        `json:"longitude"`
	GeocodeStatus   GeocodeStatus `json:"geocode_status"`
}
