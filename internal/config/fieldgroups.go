package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/models"
)

// LoadFieldGroup reads and validates the importable-field schema. Unknown
// field types are rejected here rather than silently skipped during
// reconciliation. A missing or invalid schema is a config error that aborts
// the run before any page fetch.
func LoadFieldGroup(path string) (*models.FieldGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("field group schema not readable: %s", path), err)
	}

	var group models.FieldGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, apperrors.NewConfigError("field group schema is not valid JSON", err)
	}

	if err := validator.New().Struct(&group); err != nil {
		return nil, apperrors.NewConfigError("field group schema failed validation", err)
	}

	for _, f := range group.Fields {
		if f.Type == models.FieldRepeater && len(f.Subfields) == 0 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("repeater field %q has no subfields", f.Name), nil)
		}
	}

	return &group, nil
}
