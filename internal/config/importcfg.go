package config

import (
	"strconv"
	"strings"
	"time"
)

// Diff persistence policies for staged field changes.
const (
	DiffPolicyAudit = "audit"
	DiffPolicyApply = "apply"
)

// AgeRange is a configured age bucket used for age-range term assignment.
type AgeRange struct {
	Name string
	Min  int
	Max  int
}

// ImportConfig holds reconciler behavior configuration.
type ImportConfig struct {
	// DiffPolicy gates persistence of staged field changes: "audit" only
	// surfaces them in the run report, "apply" also writes them.
	DiffPolicy     string `validate:"required,oneof=audit apply"`
	FieldGroupPath string `validate:"required"`
	RunTimeout     time.Duration
	AgeRanges      []AgeRange
}

func loadImportConfig() ImportConfig {
	return ImportConfig{
		DiffPolicy:     getEnv("DIFF_POLICY", DiffPolicyAudit),
		FieldGroupPath: getEnv("FIELD_GROUP_PATH", "field_groups.json"),
		RunTimeout:     getEnvDuration("IMPORT_RUN_TIMEOUT", 30*time.Minute),
		AgeRanges:      parseAgeRanges(getEnv("IMPORT_AGE_RANGES", "child:0-17,adult:18-64,senior:65-999")),
	}
}

// parseAgeRanges parses "name:min-max" entries, skipping malformed ones.
func parseAgeRanges(raw string) []AgeRange {
	var ranges []AgeRange
	for _, entry := range strings.Split(raw, ",") {
		name, bounds, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		lo, hi, ok := strings.Cut(bounds, "-")
		if !ok {
			continue
		}
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			continue
		}
		max, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			continue
		}
		ranges = append(ranges, AgeRange{Name: strings.TrimSpace(name), Min: min, Max: max})
	}
	return ranges
}
