// Package validate holds the checkout form rules and the per-field touched/error state used for inline feedback.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

var ErrInvalidForm = errors.New("invalid checkout form")

type Field string

const (
	FieldName        Field = "name"
	FieldPhoneNumber Field = "phone_number"
	FieldAddress     Field = "address"
	FieldDescription Field = "description"
)

var Fields = []Field{FieldName, FieldPhoneNumber, FieldAddress, FieldDescription}

const DescriptionMaxLength = 255

// PhonePattern accepts a two-digit mobile network prefix followed by exactly eight digits.
var PhonePattern = regexp.MustCompile(`^(03|05|07|08|09)[0-9]{8}$`)

type Form struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (f Form) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldPhoneNumber:
		return f.PhoneNumber
	case FieldAddress:
		return f.Address
	case FieldDescription:
		return f.Description
	}
	return ""
}

func (f *Form) set(field Field, v string) {
	switch field {
	case FieldName:
		f.Name = v
	case FieldPhoneNumber:
		f.PhoneNumber = v
	case FieldAddress:
		f.Address = v
	case FieldDescription:
		f.Description = v
	}
}

type Rule struct {
	Code  string
	Check func(v string) bool
}

func Required() Rule {
	return Rule{Code: "required", Check: func(v string) bool { return strings.TrimSpace(v) != "" }}
}

// Pattern passes empty values; combine with Required for mandatory fields.
func Pattern(re *regexp.Regexp) Rule {
	return Rule{Code: "pattern", Check: func(v string) bool { return v == "" || re.MatchString(v) }}
}

func MaxLength(n int) Rule {
	return Rule{Code: "maxlength", Check: func(v string) bool { return utf8.RuneCountInString(v) <= n }}
}

type Rules map[Field][]Rule

var CheckoutRules = Rules{
	FieldName:        {Required()},
	FieldPhoneNumber: {Required(), Pattern(PhonePattern)},
	FieldAddress:     {Required()},
	FieldDescription: {MaxLength(DescriptionMaxLength)},
}

type FieldError struct {
	Field Field  `json:"field"`
	Code  string `json:"code"`
}

// Check returns the first failing rule per field.
func (r Rules) Check(f Form) []FieldError {
	var out []FieldError
	for _, field := range Fields {
		for _, rule := range r[field] {
			if !rule.Check(f.Get(field)) {
				out = append(out, FieldError{Field: field, Code: rule.Code})
				break
			}
		}
	}
	return out
}

func (r Rules) Valid(f Form) bool {
	return len(r.Check(f)) == 0
}

// FormState is the live checkout form of one session.
type FormState struct {
	mu      sync.Mutex
	rules   Rules
	values   Form
	touched  map[Field]bool
	defaults map[Field]bool
}

func NewFormState(rules Rules) *FormState {
	return &FormState{rules: rules, touched: make(map[Field]bool), defaults: make(map[Field]bool)}
}

func (s *FormState) Set(field Field, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.set(field, v)
	delete(s.defaults, field)
}

// Fill replaces every field with f, defaults included.
func (s *FormState) Fill(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, field := range Fields {
		s.values.set(field, f.Get(field))
	}
	clear(s.defaults)
}

// Merge applies a submitted form. An empty submitted value keeps a field that still holds its default.
func (s *FormState) Merge(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, field := range Fields {
		v := f.Get(field)
		if v == "" && s.defaults[field] {
			continue
		}
		s.values.set(field, v)
		delete(s.defaults, field)
	}
}

// SetDefault fills a field only while the user has not entered anything there.
func (s *FormState) SetDefault(field Field, v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touched[field] || s.values.Get(field) != "" {
		return false
	}
	s.values.set(field, v)
	s.defaults[field] = true
	return true
}

func (s *FormState) Touch(field Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[field] = true
}

func (s *FormState) MarkAllTouched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, field := range Fields {
		s.touched[field] = true
	}
}

func (s *FormState) Touched(field Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched[field]
}

func (s *FormState) Values() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// Errors reports failing rules for touched fields only.
func (s *FormState) Errors() []FieldError {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FieldError
	for _, fe := range s.rules.Check(s.values) {
		if s.touched[fe.Field] {
			out = append(out, fe)
		}
	}
	return out
}

func (s *FormState) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Valid(s.values)
}

func (s *FormState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = Form{}
	s.touched = make(map[Field]bool)
	clear(s.defaults)
}

// FormError carries the field errors that blocked a submission.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, string(f.Field)+":"+f.Code)
	}
	return ErrInvalidForm.Error() + ": " + strings.Join(parts, ", ")
}

func (e *FormError) Unwrap() error { return ErrInvalidForm }
