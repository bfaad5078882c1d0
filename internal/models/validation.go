// file: internal/models/validation.go
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ===============================
// VALIDATION ERRORS
// ===============================

// ValidationError represents a validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Field+": "+err.Message)
	}
	return fmt.Sprintf("validation failed with %d errors (%s)", len(e), strings.Join(messages, "; "))
}

// Add adds a validation error
func (e *ValidationErrors) Add(field, message, code string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// GetField returns all errors for a specific field
func (e ValidationErrors) GetField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range e {
		if err.Field == field {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// Validator defines the validation interface
type Validator interface {
	Validate() ValidationErrors
}

// ===============================
// BADGE RULES
// ===============================

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks the catalog rules that struct tags cannot express.
// Unknown criterion types are accepted; they never qualify.
func (b *Badge) Validate() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(b.Name) == "" {
		errs.Add("name", "name is required", "required", b.Name)
	}
	if !b.Category.IsValid() {
		errs.Add("category", "category must be one of engagement, contributor, community, milestone", "invalid_value", b.Category)
	}
	if b.Rarity != "" && !b.Rarity.IsValid() {
		errs.Add("rarity", "rarity must be one of common, uncommon, rare, legendary", "invalid_value", b.Rarity)
	}
	if b.Color != "" && !hexColorRegex.MatchString(b.Color) {
		errs.Add("color", "color must be a #RRGGBB hex value", "invalid_format", b.Color)
	}
	if b.Criteria.Type == "" {
		errs.Add("criteria.type", "criterion type is required", "required", b.Criteria.Type)
	}
	if b.Criteria.Value < 0 {
		errs.Add("criteria.value", "criterion value cannot be negative", "out_of_range", b.Criteria.Value)
	}

	return errs
}
