package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct-tag validation covers field-level constraints; custom rules cover
// cross-field constraints tags cannot express. Level normalization happens
// in ApplyDefaults, so validation accepts both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The membership table nests a slice inside a map value, which the
	// dive tag chain handles poorly; validate entries explicitly.
	for principal, memberships := range cfg.Collectives.Memberships {
		if principal == "" {
			return fmt.Errorf("collectives.memberships: empty principal name")
		}
		seen := make(map[int64]bool)
		for i, m := range memberships {
			if m.ID <= 0 {
				return fmt.Errorf("collectives.memberships[%s][%d]: collective id must be positive", principal, i)
			}
			if m.DisplayName == "" {
				return fmt.Errorf("collectives.memberships[%s][%d]: display_name is required", principal, i)
			}
			if seen[m.ID] {
				return fmt.Errorf("collectives.memberships[%s]: duplicate collective id %d", principal, m.ID)
			}
			seen[m.ID] = true
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
