// Package payload turns request bodies into models and reports problems as
// per-field error maps keyed by wire field name.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field messages shared with callers that validate outside the struct tags.
const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
	MsgInvalid  = "Invalid value."

	nonFieldErrors = "non_field_errors"
)

// readOnly wire fields are dropped from bodies before decoding.
var readOnly = []string{"id", "createdAt", "updatedAt"}

// ValidationError maps wire field names to their problems.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an error carrying a single field problem.
func NewValidationError(field, msg string) *ValidationError {
	e := &ValidationError{Fields: map[string][]string{}}
	e.Add(field, msg)
	return e
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// With adds a field problem to err. A nil err starts a new ValidationError;
// any other non-validation error is returned unchanged.
func With(err error, field, msg string) error {
	if err == nil {
		return NewValidationError(field, msg)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		verr.Add(field, msg)
		return verr
	}
	return err
}

// Decode unmarshals a JSON object body onto dst. Fields missing from the
// body keep whatever dst already holds, so decoding onto a stored row is a
// merge and decoding onto a zero value is a replace. Read-only fields are
// ignored. An empty body is treated as an empty object.
func Decode(body []byte, dst any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return NewValidationError(nonFieldErrors, fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeErr.Value))
		}
		return NewValidationError(nonFieldErrors, "Invalid JSON.")
	}
	for _, k := range readOnly {
		delete(fields, k)
	}

	clean, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("re-encode body: %w", err)
	}
	if err := json.Unmarshal(clean, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field, _, _ := strings.Cut(typeErr.Field, ".")
			if field == "" {
				field = nonFieldErrors
			}
			return NewValidationError(field, typeMessage(typeErr))
		}
		return NewValidationError(nonFieldErrors, "Invalid JSON.")
	}
	return nil
}

func typeMessage(e *json.UnmarshalTypeError) string {
	switch e.Type.Kind() {
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("Expected a list of items but got type %q.", e.Value)
	case reflect.Map, reflect.Struct:
		return fmt.Sprintf("Expected a dictionary of items but got type %q.", e.Value)
	default:
		return MsgInvalid
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks v against its validate tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	default:
		return MsgInvalid
	}
}
