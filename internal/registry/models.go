package registry

// Wire types for the registry's full-studies query response. Every module
// is optional: a study may omit any of them entirely.

// QueryResponse is the root wrapper of a query API response.
type QueryResponse struct {
	FullStudiesResponse *FullStudiesResponse `json:"FullStudiesResponse"`
}

// FullStudiesResponse carries the page of studies plus the total hit count.
type FullStudiesResponse struct {
	NStudiesFound int         `json:"NStudiesFound"`
	MinRank       int         `json:"MinRank"`
	MaxRank       int         `json:"MaxRank"`
	FullStudies   []FullStudy `json:"FullStudies"`
}

// FullStudy is one ranked study record.
type FullStudy struct {
	Rank  int   `json:"Rank"`
	Study Study `json:"Study"`
}

// Study wraps the protocol section that groups all modules.
type Study struct {
	ProtocolSection ProtocolSection `json:"ProtocolSection"`
}

// ProtocolSection groups the registry's per-concern modules.
type ProtocolSection struct {
	Identification *IdentificationModule       `json:"IdentificationModule"`
	Status         *StatusModule               `json:"StatusModule"`
	Sponsor        *SponsorCollaboratorsModule `json:"SponsorCollaboratorsModule"`
	Description    *DescriptionModule          `json:"DescriptionModule"`
	Conditions     *ConditionsModule           `json:"ConditionsModule"`
	Design         *DesignModule               `json:"DesignModule"`
	Interventions  *ArmsInterventionsModule    `json:"ArmsInterventionsModule"`
	Eligibility    *EligibilityModule          `json:"EligibilityModule"`
	Locations      *ContactsLocationsModule    `json:"ContactsLocationsModule"`
}

// IdentificationModule holds titles and identifiers.
type IdentificationModule struct {
	NCTID               string               `json:"NCTId"`
	BriefTitle          string               `json:"BriefTitle"`
	OfficialTitle       string               `json:"OfficialTitle"`
	Acronym             string               `json:"Acronym"`
	SecondaryIDInfoList *SecondaryIDInfoList `json:"SecondaryIdInfoList"`
}

// SecondaryIDInfoList wraps the secondary-id entries.
type SecondaryIDInfoList struct {
	SecondaryIDInfo []SecondaryIDInfo `json:"SecondaryIdInfo"`
}

// SecondaryIDInfo is one secondary identifier with its type tag.
type SecondaryIDInfo struct {
	SecondaryID     string `json:"SecondaryId"`
	SecondaryIDType string `json:"SecondaryIdType"`
}

// StatusModule holds the overall status and key dates. Date strings are
// registry-defined and not guaranteed parseable.
type StatusModule struct {
	OverallStatus               string      `json:"OverallStatus"`
	StartDateStruct             *DateStruct `json:"StartDateStruct"`
	PrimaryCompletionDateStruct *DateStruct `json:"PrimaryCompletionDateStruct"`
	CompletionDateStruct        *DateStruct `json:"CompletionDateStruct"`
}

// DateStruct is a registry date value.
type DateStruct struct {
	Date string `json:"Date"`
}

// SponsorCollaboratorsModule holds the lead sponsor.
type SponsorCollaboratorsModule struct {
	LeadSponsor *LeadSponsor `json:"LeadSponsor"`
}

// LeadSponsor names the lead sponsor organization.
type LeadSponsor struct {
	LeadSponsorName string `json:"LeadSponsorName"`
}

// DescriptionModule holds the study summaries.
type DescriptionModule struct {
	BriefSummary        string `json:"BriefSummary"`
	DetailedDescription string `json:"DetailedDescription"`
}

// ConditionsModule holds condition and keyword lists.
type ConditionsModule struct {
	ConditionList *ConditionList `json:"ConditionList"`
	KeywordList   *KeywordList   `json:"KeywordList"`
}

// ConditionList wraps the condition names.
type ConditionList struct {
	Condition []string `json:"Condition"`
}

// KeywordList wraps the keyword names.
type KeywordList struct {
	Keyword []string `json:"Keyword"`
}

// DesignModule holds phase information.
type DesignModule struct {
	PhaseList *PhaseList `json:"PhaseList"`
}

// PhaseList wraps the phase names.
type PhaseList struct {
	Phase []string `json:"Phase"`
}

// ArmsInterventionsModule holds the intervention entries.
type ArmsInterventionsModule struct {
	InterventionList *InterventionList `json:"InterventionList"`
}

// InterventionList wraps the intervention entries.
type InterventionList struct {
	Intervention []Intervention `json:"Intervention"`
}

// Intervention is one study intervention with its type.
type Intervention struct {
	InterventionType string `json:"InterventionType"`
	InterventionName string `json:"InterventionName"`
}

// EligibilityModule holds age and gender eligibility. Age values are free
// text like "65 Years".
type EligibilityModule struct {
	MinimumAge string `json:"MinimumAge"`
	MaximumAge string `json:"MaximumAge"`
	Gender     string `json:"Gender"`
}

// ContactsLocationsModule holds the trial site entries.
type ContactsLocationsModule struct {
	LocationList *LocationList `json:"LocationList"`
}

// LocationList wraps the location entries.
type LocationList struct {
	Location []StudyLocation `json:"Location"`
}

// StudyLocation is one trial site.
type StudyLocation struct {
	LocationFacility string `json:"LocationFacility"`
	LocationCity     string `json:"LocationCity"`
	LocationState    string `json:"LocationState"`
	LocationZip      string `json:"LocationZip"`
	LocationCountry  string `json:"LocationCountry"`
	LocationStatus   string `json:"LocationStatus"`
	LocationPhone    string `json:"LocationPhone"`
}
