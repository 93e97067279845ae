// Package validation turns untyped request payloads into sanitized record
// creation inputs, reporting every violation at once.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

var createFields = []string{"name", "email", "password"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeCreate parses a raw JSON payload into a CreateInput. Any problem is
// reported as *Error listing all rejected fields.
func DecodeCreate(raw []byte) (record.CreateInput, error) {
	verr := &Error{}

	if !gjson.ValidBytes(raw) {
		verr.add("body", "json", "must be valid JSON")
		return record.CreateInput{}, verr
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		verr.add("body", "object", "must be a JSON object")
		return record.CreateInput{}, verr
	}

	doc.ForEach(func(key, _ gjson.Result) bool {
		if !isCreateField(key.String()) {
			verr.add(key.String(), "unknown", "is not a recognised field")
		}
		return true
	})

	values := make(map[string]string, len(createFields))
	for _, field := range createFields {
		v := doc.Get(field)
		switch {
		case !v.Exists() || v.Type == gjson.Null:
			verr.add(field, "required", "is required")
		case v.Type != gjson.String:
			verr.add(field, "type", fmt.Sprintf("must be a string, got %s", typeName(v)))
		case !utf8.ValidString(v.Str):
			verr.add(field, "utf8", "must be valid UTF-8")
		default:
			values[field] = v.Str
		}
	}

	input := Sanitize(record.CreateInput{
		Name:     values["name"],
		Email:    values["email"],
		Password: values["password"],
	})
	check(input, verr)

	if err := verr.orNil(); err != nil {
		return record.CreateInput{}, err
	}
	return input, nil
}

// Sanitize trims the name and normalises the email address. The password is
// kept byte-for-byte.
func Sanitize(input record.CreateInput) record.CreateInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	return input
}

// Validate checks an already typed input. It does not sanitize.
func Validate(input record.CreateInput) error {
	verr := &Error{}
	check(input, verr)
	return verr.orNil()
}

func check(input record.CreateInput, verr *Error) {
	for _, f := range [...]struct{ name, value string }{
		{"name", input.Name}, {"email", input.Email}, {"password", input.Password},
	} {
		if !utf8.ValidString(f.value) && !verr.has(f.name) {
			verr.add(f.name, "utf8", "must be valid UTF-8")
		}
	}
	if err := validate.Struct(input); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				if verr.has(fe.Field()) {
					continue
				}
				verr.add(fe.Field(), fe.Tag(), message(fe))
			}
		} else {
			verr.add("body", "invalid", err.Error())
		}
	}
	if len(input.Password) > maxPasswordBytes && !verr.has("password") {
		verr.add("password", "max", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func isCreateField(name string) bool {
	for _, f := range createFields {
		if f == name {
			return true
		}
	}
	return false
}

func typeName(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.JSON:
		if v.IsArray() {
			return "array"
		}
		return "object"
	default:
		return v.Type.String()
	}
}
