package wizard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"transferbook/internal/domain/models"
)

// Rule inspects a field value and returns a message, or "" when it passes.
type Rule func(value string) string

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{5,18}[0-9]$`)
)

func Required(label string) Rule {
	return func(value string) string {
		if strings.TrimSpace(value) == "" {
			return label + " is required"
		}
		return ""
	}
}

// Email skips empty values; compose with Required for mandatory fields.
func Email() Rule {
	return func(value string) string {
		v := strings.TrimSpace(value)
		if v == "" || emailPattern.MatchString(v) {
			return ""
		}
		return "Please enter a valid email address"
	}
}

func Phone() Rule {
	return func(value string) string {
		v := strings.TrimSpace(value)
		if v == "" || phonePattern.MatchString(v) {
			return ""
		}
		return "Please enter a valid phone number"
	}
}

func MinLength(n int) Rule {
	return func(value string) string {
		v := strings.TrimSpace(value)
		if v == "" || utf8.RuneCountInString(v) >= n {
			return ""
		}
		return fmt.Sprintf("Must be at least %d characters", n)
	}
}

// DetailsRules is the rule set for the personal details form.
func DetailsRules() map[string][]Rule {
	return map[string][]Rule{
		"fullName": {Required("Full name"), MinLength(2)},
		"email":    {Required("Email"), Email()},
		"phone":    {Required("Phone number"), Phone()},
	}
}

// ValidationStore evaluates field rules and tracks the failing fields.
// It is not safe for concurrent use; the Orchestrator serializes access.
type ValidationStore struct {
	rules  map[string][]Rule
	fields []string
	errors map[string]string
}

func NewValidationStore(rules map[string][]Rule) *ValidationStore {
	fields := make([]string, 0, len(rules))
	for f := range rules {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &ValidationStore{
		rules:  rules,
		fields: fields,
		errors: map[string]string{},
	}
}

func (s *ValidationStore) run(field, value string) string {
	for _, rule := range s.rules[field] {
		if msg := rule(value); msg != "" {
			return msg
		}
	}
	return ""
}

// ValidateField re-evaluates a single field and returns its message.
func (s *ValidationStore) ValidateField(field, value string) string {
	msg := s.run(field, value)
	if msg == "" {
		delete(s.errors, field)
	} else {
		s.errors[field] = msg
	}
	return msg
}

// ValidateForm rebuilds the error mapping from every configured field.
func (s *ValidationStore) ValidateForm(values map[string]string) bool {
	next := make(map[string]string, len(s.fields))
	for _, field := range s.fields {
		if msg := s.run(field, values[field]); msg != "" {
			next[field] = msg
		}
	}
	s.errors = next
	return s.IsValid()
}

// ClearFieldError drops one field's message; validity is derived from the
// mapping after the deletion.
func (s *ValidationStore) ClearFieldError(field string) {
	delete(s.errors, field)
}

func (s *ValidationStore) IsValid() bool {
	return len(s.errors) == 0
}

// FirstError returns the first failing field in a stable order.
func (s *ValidationStore) FirstError() (string, string, bool) {
	for _, field := range s.fields {
		if msg, ok := s.errors[field]; ok {
			return field, msg, true
		}
	}
	return "", "", false
}

func (s *ValidationStore) State() models.ValidationState {
	errs := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	return models.ValidationState{Errors: errs, IsValid: len(errs) == 0}
}

func (s *ValidationStore) Reset() {
	s.errors = map[string]string{}
}
