package registry

import (
	"strconv"
	"strings"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/pkg/utils"
)

// eudractIDType is the secondary-id type tag pulled out as a distinct
// attribute.
const eudractIDType = "EudraCT Number"

// ParseStudy flattens a raw study into a normalized trial. Every module is
// optional: absent modules produce empty-string fields and empty lists,
// never an error.
func ParseStudy(study *FullStudy, cfg *config.RegistryConfig) *models.Trial {
	trial := &models.Trial{
		MinimumAge: models.DefaultMinimumAge,
		MaximumAge: models.DefaultMaximumAge,
	}
	if study == nil {
		return trial
	}

	section := study.Study.ProtocolSection
	parseIdentification(section.Identification, cfg.ProtocolNames, trial)
	parseStatus(section.Status, trial)
	parseSponsor(section.Sponsor, trial)
	parseDescription(section.Description, trial)
	parseConditions(section.Conditions, trial)
	parseDesign(section.Design, trial)
	parseInterventions(section.Interventions, trial)
	parseEligibility(section.Eligibility, trial)
	parseLocations(section.Locations, trial)
	return trial
}

func parseIdentification(m *IdentificationModule, protocolNames []string, trial *models.Trial) {
	if m == nil {
		return
	}
	trial.NCTID = m.NCTID
	trial.BriefTitle = m.BriefTitle
	trial.OfficialTitle = m.OfficialTitle

	title := m.BriefTitle
	if title == "" {
		title = m.OfficialTitle
	}
	trial.Title, trial.ProtocolName = ExtractProtocolName(title, protocolNames)

	trial.EudractNumber, trial.SecondaryIDs = ParseSecondaryIDs(m.SecondaryIDInfoList)
}

// ExtractProtocolName strips parenthetical substrings from the title and
// matches their words, case-insensitively and keeping only the token before
// any hyphen, against the configured protocol name tokens. The first match
// wins. Returns the cleaned display title and the matched protocol name.
func ExtractProtocolName(title string, protocolNames []string) (string, string) {
	display, inner := utils.StripParentheticals(title)
	for _, content := range inner {
		for _, word := range strings.Fields(content) {
			token, _, _ := strings.Cut(word, "-")
			for _, name := range protocolNames {
				if strings.EqualFold(token, name) {
					return display, name
				}
			}
		}
	}
	return display, ""
}

// ParseSecondaryIDs splits the EudraCT number out of the secondary-id
// entries and collects the rest as a generic list.
func ParseSecondaryIDs(list *SecondaryIDInfoList) (string, []string) {
	eudract := ""
	others := []string{}
	if list == nil {
		return eudract, others
	}
	for _, info := range list.SecondaryIDInfo {
		if info.SecondaryID == "" {
			continue
		}
		if info.SecondaryIDType == eudractIDType && eudract == "" {
			eudract = info.SecondaryID
			continue
		}
		others = append(others, info.SecondaryID)
	}
	return eudract, others
}

func parseStatus(m *StatusModule, trial *models.Trial) {
	if m == nil {
		return
	}
	trial.Status = m.OverallStatus
	if m.StartDateStruct != nil {
		trial.StartDate = m.StartDateStruct.Date
	}
	if m.PrimaryCompletionDateStruct != nil {
		trial.PrimaryCompletionDate = m.PrimaryCompletionDateStruct.Date
	}
	if m.CompletionDateStruct != nil {
		trial.CompletionDate = m.CompletionDateStruct.Date
	}
}

func parseSponsor(m *SponsorCollaboratorsModule, trial *models.Trial) {
	if m == nil || m.LeadSponsor == nil {
		return
	}
	trial.Sponsor = m.LeadSponsor.LeadSponsorName
}

func parseDescription(m *DescriptionModule, trial *models.Trial) {
	if m == nil {
		return
	}
	trial.Summary = m.BriefSummary
	if trial.Summary == "" {
		trial.Summary = m.DetailedDescription
	}
}

func parseConditions(m *ConditionsModule, trial *models.Trial) {
	trial.Conditions = []string{}
	trial.Keywords = []string{}
	if m == nil {
		return
	}
	if m.ConditionList != nil {
		trial.Conditions = append(trial.Conditions, m.ConditionList.Condition...)
	}
	if m.KeywordList != nil {
		trial.Keywords = append(trial.Keywords, m.KeywordList.Keyword...)
	}
}

func parseDesign(m *DesignModule, trial *models.Trial) {
	trial.Phases = []string{}
	if m == nil || m.PhaseList == nil {
		return
	}
	trial.Phases = append(trial.Phases, m.PhaseList.Phase...)
}

func parseInterventions(m *ArmsInterventionsModule, trial *models.Trial) {
	trial.Drugs = []string{}
	if m == nil || m.InterventionList == nil {
		return
	}
	trial.Drugs = ParseDrugs(m.InterventionList.Intervention)
}

// ParseDrugs keeps interventions whose type equals "drug" (case
// insensitive), title-casing the name and trimming a trailing comma.
func ParseDrugs(interventions []Intervention) []string {
	drugs := []string{}
	for _, iv := range interventions {
		if !strings.EqualFold(iv.InterventionType, "drug") {
			continue
		}
		name := utils.TitleCase(strings.TrimSuffix(strings.TrimSpace(iv.InterventionName), ","))
		if name != "" {
			drugs = append(drugs, name)
		}
	}
	return drugs
}

func parseEligibility(m *EligibilityModule, trial *models.Trial) {
	if m == nil {
		return
	}
	trial.MinimumAge = ParseAge(m.MinimumAge, models.DefaultMinimumAge)
	trial.MaximumAge = ParseAge(m.MaximumAge, models.DefaultMaximumAge)
	trial.Gender = m.Gender
}

// ParseAge strips every non-digit character from a registry age string
// ("65 Years" → 65). An empty or unparsable value yields the sentinel
// default: 0 for minimum, 999 for maximum.
func ParseAge(raw string, sentinel int) int {
	digits := utils.DigitsOnly(raw)
	if digits == "" {
		return sentinel
	}
	age, err := strconv.Atoi(digits)
	if err != nil {
		return sentinel
	}
	return age
}

func parseLocations(m *ContactsLocationsModule, trial *models.Trial) {
	trial.Locations = []*models.Location{}
	if m == nil || m.LocationList == nil {
		return
	}
	for _, raw := range m.LocationList.Location {
		loc := ParseLocation(raw)
		if loc.Facility == "" {
			continue
		}
		trial.Locations = append(trial.Locations, loc)
	}
}

// ParseLocation normalizes one trial site: the facility name is stripped of
// parentheticals, the stable identifier is a slug of that name, and language
// tags derive from the country.
func ParseLocation(raw StudyLocation) *models.Location {
	facility, _ := utils.StripParentheticals(raw.LocationFacility)
	languages := LanguagesForCountry(raw.LocationCountry)
	if languages == nil {
		languages = []string{}
	}
	return &models.Location{
		Facility:        facility,
		Slug:            utils.Slugify(facility),
		City:            raw.LocationCity,
		State:           raw.LocationState,
		Zip:             raw.LocationZip,
		Country:         raw.LocationCountry,
		Phone:           raw.LocationPhone,
		RecruitingState: raw.LocationStatus,
		Languages:       languages,
		GeocodeStatus:   models.GeocodePending,
	}
}
