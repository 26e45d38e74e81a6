package core

// validation.go converts raw rows into candidate records.
//
// Rules are applied per mapped field, in schema order:
//  1. required field missing or empty           -> error "<field> is required"
//  2. value present but fails coercion          -> error "<field> has invalid value"
//  3. value coerces but violates a constraint   -> warning, row still proceeds
//
// A row with any error is never handed to the entity store.

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Plausible year range for date fields; dates outside it are warned about.
const (
	minPlausibleYear = 1900
	maxPlausibleYear = 2100
)

// RowValidation is the outcome of validating one row.
type RowValidation struct {
	Record   Record
	Errors   []RowValidationError
	Warnings []string
}

// OK reports whether the row can be persisted.
func (v RowValidation) OK() bool {
	return len(v.Errors) == 0
}

// ErrorMessages returns the error messages in field order.
func (v RowValidation) ErrorMessages() []string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// RowValidator validates rows against one schema and a finalized mapping.
type RowValidator struct {
	schema    EntitySchema
	mapping   FieldMapping
	dateOrder DateOrder
}

// NewRowValidator creates a validator. The mapping is copied.
func NewRowValidator(schema EntitySchema, mapping FieldMapping, order DateOrder) *RowValidator {
	return &RowValidator{
		schema:    schema,
		mapping:   mapping.Clone(),
		dateOrder: order,
	}
}

// Validate converts one row. Fields without a mapping are left out of the
// record; mapped empty cells become nil.
func (v *RowValidator) Validate(row Row) RowValidation {
	result := RowValidation{Record: make(Record)}

	for _, field := range v.schema.Fields {
		col, mapped := v.mapping.Column(field.Key)
		if !mapped {
			if field.Required {
				result.Errors = append(result.Errors, requiredError(field))
			}
			continue
		}

		raw, present := row.Value(col)
		cell := prepareCell(raw, field.Coerce)
		if !present || cell == "" {
			if field.Required {
				result.Errors = append(result.Errors, requiredError(field))
				continue
			}
			result.Record[field.Key] = nil
			continue
		}

		value, err := Coerce(cell, field.Coerce, v.dateOrder)
		if err != nil {
			result.Errors = append(result.Errors, RowValidationError{
				Field:   field.Key,
				Message: fmt.Sprintf("%s has invalid value", field.Key),
			})
			continue
		}

		result.Record[field.Key] = value
		result.Warnings = append(result.Warnings, checkConstraints(field, value)...)
	}

	return result
}

// prepareCell strips spreadsheet artifacts from cells headed for a typed
// coercion. Text is only trimmed so quotes and leading '=' are stored as typed.
func prepareCell(raw string, kind CoerceKind) string {
	switch kind {
	case CoerceNumber, CoerceInteger, CoerceDate:
		return CleanCell(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

func requiredError(field FieldDef) RowValidationError {
	return RowValidationError{
		Field:   field.Key,
		Message: fmt.Sprintf("%s is required", field.Key),
	}
}

// Coerce converts a cleaned, non-empty cell to the Go value for kind.
func Coerce(cell string, kind CoerceKind, order DateOrder) (any, error) {
	switch kind {
	case CoerceNumber:
		return ParseNumber(cell)
	case CoerceInteger:
		return ParseInteger(cell)
	case CoerceDate:
		return ParseDate(cell, order)
	default:
		return cell, nil
	}
}

// checkConstraints returns warnings for semantic violations of a coerced value.
func checkConstraints(field FieldDef, value any) []string {
	c := field.Constraints
	var warnings []string

	switch v := value.(type) {
	case float64:
		warnings = append(warnings, checkRange(field.Key, v, c)...)
	case int64:
		warnings = append(warnings, checkRange(field.Key, float64(v), c)...)
	case time.Time:
		if y := v.Year(); y < minPlausibleYear || y > maxPlausibleYear {
			warnings = append(warnings, fmt.Sprintf("%s has an implausible year (%d)", field.Key, y))
		}
	case string:
		if len(c.OneOf) > 0 && !containsFold(c.OneOf, v) {
			warnings = append(warnings, fmt.Sprintf("%s value %q is not one of: %s",
				field.Key, v, strings.Join(c.OneOf, ", ")))
		}
		if c.Format == "email" && !isEmail(v) {
			warnings = append(warnings, fmt.Sprintf("%s is not a valid email address", field.Key))
		}
		if c.MaxLength > 0 && utf8.RuneCountInString(v) > c.MaxLength {
			warnings = append(warnings, fmt.Sprintf("%s is longer than %d characters", field.Key, c.MaxLength))
		}
	}

	return warnings
}

func checkRange(key string, v float64, c Constraints) []string {
	var warnings []string
	if c.Min != nil && v < *c.Min {
		if *c.Min == 0 {
			warnings = append(warnings, fmt.Sprintf("%s is negative", key))
		} else {
			warnings = append(warnings, fmt.Sprintf("%s is below the minimum of %g", key, *c.Min))
		}
	}
	if c.Max != nil && v > *c.Max {
		warnings = append(warnings, fmt.Sprintf("%s is above the maximum of %g", key, *c.Max))
	}
	return warnings
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// isEmail accepts a bare address (no display name).
func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
