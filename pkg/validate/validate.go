// Package validate provides small declarative schemas for request bodies,
// query strings and path parameters. A schema is applied to a flat map of
// values and collects every field failure instead of stopping at the first,
// so a client sees all problems in one response.
package validate

import (
	"fmt"
	"regexp"
)

// FieldError describes a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the aggregated result of applying a schema. A nil/empty slice
// means the input passed.
type Errors []FieldError

// Rule checks one value. present reports whether the field existed in the
// input at all. A non-empty return is the failure message.
type Rule func(value any, present bool) string

// Field pairs a field name with its ordered rules.
type Field struct {
	Name  string
	Rules []Rule
}

// NewField declares a field with its rules.
func NewField(name string, rules ...Rule) Field {
	return Field{Name: name, Rules: rules}
}

// Schema is an ordered set of field declarations.
type Schema struct {
	fields []Field
}

// New builds a schema from field declarations.
func New(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// FieldNames returns the declared field names, used to extract path
// parameters by name.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	return names
}

// Apply runs every rule of every field and returns all failures. Only the
// first failing rule per field is reported to avoid redundant messages for
// the same field.
func (s *Schema) Apply(values map[string]any) Errors {
	var errs Errors
	for _, f := range s.fields {
		value, present := values[f.Name]
		for _, rule := range f.Rules {
			if msg := rule(value, present); msg != "" {
				errs = append(errs, FieldError{Field: f.Name, Message: msg})
				break
			}
		}
	}
	return errs
}

// Required fails when the field is absent or an empty string.
func Required() Rule {
	return func(value any, present bool) string {
		if !present || value == nil {
			return "is required"
		}
		if s, ok := value.(string); ok && s == "" {
			return "is required"
		}
		return ""
	}
}

// IsString fails when a present value is not a string.
func IsString() Rule {
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
		return ""
	}
}

// IsNumber fails when a present value is not numeric. JSON numbers decode as
// float64; query/path values arrive as strings and are accepted if they look
// numeric.
func IsNumber() Rule {
	var numeric = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		switch v := value.(type) {
		case float64, int, int64:
			return ""
		case string:
			if numeric.MatchString(v) {
				return ""
			}
		}
		return "must be a number"
	}
}

// MinLen fails when a present string is shorter than n.
func MinLen(n int) Rule {
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		s, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		if len(s) < n {
			return fmt.Sprintf("must be at least %d characters", n)
		}
		return ""
	}
}

// MaxLen fails when a present string is longer than n.
func MaxLen(n int) Rule {
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		s, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		if len(s) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}

// emailPattern is deliberately loose, full RFC 5322 matching rejects
// addresses that work in practice.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email fails when a present value is not an email address.
func Email() Rule {
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(s) {
			return "must be a valid email address"
		}
		return ""
	}
}

// Match fails when a present string does not match re.
func Match(re *regexp.Regexp, message string) Rule {
	return func(value any, present bool) string {
		if !present {
			return ""
		}
		s, ok := value.(string)
		if !ok || !re.MatchString(s) {
			return message
		}
		return ""
	}
}
