// Package validator collects field-level validation failures.
//
// Rules are evaluated eagerly and combined with Apply:
//
//	err := validator.Apply(
//		validator.RequiredString("title", in.Title),
//		validator.MaxLenString("title", in.Title, 200),
//	)
//	if validator.IsValidationError(err) { ... }
package validator

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ValidationError is one failure for one field.
type ValidationError struct {
	Field   string
	Message string
	// TranslationKey and TranslationValues identify the message for catalogs.
	TranslationKey    string
	TranslationValues map[string]any
}

// ValidationErrors is returned by Apply when any rule fails.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Get returns the messages for field in rule order.
func (ve ValidationErrors) Get(field string) []string {
	var out []string
	for _, e := range ve {
		if e.Field == field {
			out = append(out, e.Message)
		}
	}
	return out
}

func (ve ValidationErrors) Has(field string) bool {
	return len(ve.Get(field)) > 0
}

// Fields groups messages by field, the shape of the JSON error body.
func (ve ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(ve))
	for _, e := range ve {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Rule is an evaluated check. A Rule with Check false contributes Error.
type Rule struct {
	Check bool
	Error ValidationError
}

// Apply returns ValidationErrors for every failed rule, or nil.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if !r.Check {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// ExtractValidationErrors returns the ValidationErrors in err's chain, or nil.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func newError(field, key, msg string, values map[string]any) ValidationError {
	if values == nil {
		values = map[string]any{}
	}
	values["field"] = field
	return ValidationError{Field: field, Message: msg, TranslationKey: key, TranslationValues: values}
}

// RequiredString fails for empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: strings.TrimSpace(value) != "",
		Error: newError(field, "validation.required", "is required", nil),
	}
}

// MinLenString counts runes.
func MinLenString(field, value string, n int) Rule {
	return Rule{
		Check: utf8.RuneCountInString(value) >= n,
		Error: newError(field, "validation.min_length",
			fmt.Sprintf("must be at least %d characters long", n), map[string]any{"min": n}),
	}
}

func MaxLenString(field, value string, n int) Rule {
	return Rule{
		Check: utf8.RuneCountInString(value) <= n,
		Error: newError(field, "validation.max_length",
			fmt.Sprintf("must be at most %d characters long", n), map[string]any{"max": n}),
	}
}

// ValidEmail accepts a bare address. Display names are rejected.
func ValidEmail(field, value string) Rule {
	addr, err := mail.ParseAddress(value)
	return Rule{
		Check: err == nil && addr.Address == value,
		Error: newError(field, "validation.email", "must be a valid email address", nil),
	}
}

// MatchesField fails when value differs from other, e.g. a password confirmation.
func MatchesField(field, value, otherField, other string) Rule {
	return Rule{
		Check: value == other,
		Error: newError(field, "validation.matches",
			"must match "+otherField, map[string]any{"other": otherField}),
	}
}

// Custom wraps an arbitrary check.
func Custom(field string, ok bool, msg string) Rule {
	return Rule{Check: ok, Error: newError(field, "validation.custom", msg, nil)}
}
