package registry

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/models"
)

// FilterEngine applies the operator-configured allow/deny rules to fetched
// records.
type FilterEngine struct {
	cfg    *config.RegistryConfig
	logger *logrus.Logger
}

// NewFilterEngine creates a filter engine from the registry configuration.
func NewFilterEngine(cfg *config.RegistryConfig, logger *logrus.Logger) *FilterEngine {
	return &FilterEngine{cfg: cfg, logger: logger}
}

// ExcludeInactive removes records whose external id is in the inactive set
// (archived or trashed posts). Inactive ids are excluded only from the
// scheduled sweep's candidate set; explicit single-id imports bypass this
// filter.
func (f *FilterEngine) ExcludeInactive(studies []FullStudy, inactiveIDs map[string]bool) []FullStudy {
	if len(inactiveIDs) == 0 {
		return studies
	}
	kept := make([]FullStudy, 0, len(studies))
	for _, study := range studies {
		id := ""
		if m := study.Study.ProtocolSection.Identification; m != nil {
			id = m.NCTID
		}
		if inactiveIDs[id] {
			f.logger.WithField("nct_id", id).Debug("Excluding inactive record from sweep")
			continue
		}
		kept = append(kept, study)
	}
	return kept
}

// EligibleByGeography reports whether a trial passes the country and
// location-status rules: some location must pass the country check (the
// allow-list takes precedence over the deny-list when both are configured)
// and that same location's status must be allowed, or the trial-level
// status must be non-empty.
func (f *FilterEngine) EligibleByGeography(trial *models.Trial) bool {
	if len(trial.Locations) == 0 {
		return false
	}
	for _, loc := range trial.Locations {
		if !f.countryAllowed(loc.Country) {
			continue
		}
		if f.locationStatusAllowed(loc.RecruitingState) || trial.Status != "" {
			return true
		}
	}
	return false
}

func (f *FilterEngine) countryAllowed(country string) bool {
	if len(f.cfg.AllowedCountries) > 0 {
		return containsFold(f.cfg.AllowedCountries, country)
	}
	return !containsFold(f.cfg.DeniedCountries, country)
}

func (f *FilterEngine) locationStatusAllowed(status string) bool {
	return containsFold(f.cfg.LocationStatuses, status)
}

// StatusAllowed reports whether a trial-level status is in the configured
// allow-list.
func (f *FilterEngine) StatusAllowed(status string) bool {
	return containsFold(f.cfg.AllowedStatuses, status)
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
