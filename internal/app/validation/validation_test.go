package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
)

func fieldRules(t *testing.T, err error) map[string]string {
	t.Helper()
	verr, ok := AsError(err)
	require.True(t, ok, "expected *validation.Error, got %T", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Rule
	}
	return out
}

func TestDecodeCreateAcceptsAndSanitizes(t *testing.T) {
	input, err := DecodeCreate([]byte(`{"name":"  Alice  ","email":" Alice@Example.COM ","password":"s3cret-pass"}`))
	require.NoError(t, err)
	assert.Equal(t, record.CreateInput{Name: "Alice", Email: "alice@example.com", Password: "s3cret-pass"}, input)
}

func TestDecodeCreateMissingRequiredField(t *testing.T) {
	_, err := DecodeCreate([]byte(`{"name":"Alice","password":"s3cret-pass"}`))
	rules := fieldRules(t, err)
	assert.Equal(t, map[string]string{"email": "required"}, rules)
}

func TestDecodeCreateAccumulatesViolations(t *testing.T) {
	_, err := DecodeCreate([]byte(`{"name":42,"email":"not-an-email","password":"short","role":"admin"}`))
	rules := fieldRules(t, err)
	assert.Equal(t, map[string]string{
		"name":     "type",
		"email":    "email",
		"password": "min",
		"role":     "unknown",
	}, rules)
	assert.Contains(t, err.Error(), "name: must be a string, got number")
}

func TestDecodeCreateRejectsNonObject(t *testing.T) {
	tests := []struct {
		name string
		body string
		rule string
	}{
		{"invalid-json", `{"name":`, "json"},
		{"array", `[1,2]`, "object"},
		{"string", `"alice"`, "object"},
		{"empty", ``, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCreate([]byte(tt.body))
			assert.Equal(t, map[string]string{"body": tt.rule}, fieldRules(t, err))
		})
	}
}

func TestDecodeCreateNullAndBlank(t *testing.T) {
	_, err := DecodeCreate([]byte(`{"name":"   ","email":null,"password":"s3cret-pass"}`))
	assert.Equal(t, map[string]string{"name": "required", "email": "required"}, fieldRules(t, err))
}

func TestValidateLengthBounds(t *testing.T) {
	ok := record.CreateInput{Name: "Al", Email: "al@example.com", Password: "12345678"}
	assert.NoError(t, Validate(ok))

	long := ok
	long.Name = strings.Repeat("x", 101)
	assert.Equal(t, map[string]string{"name": "max"}, fieldRules(t, Validate(long)))

	wide := ok
	wide.Password = strings.Repeat("é", 40) // 40 runes, 80 bytes
	assert.Equal(t, map[string]string{"password": "max"}, fieldRules(t, Validate(wide)))
}

func TestErrorMessageEmpty(t *testing.T) {
	assert.Equal(t, "validation failed", (&Error{}).Error())
}

func TestDecodeCreateRejectsInvalidUTF8(t *testing.T) {
	_, err := DecodeCreate([]byte("{\"name\":\"\xff\xfe\",\"email\":\"a@b.co\",\"password\":\"long-enough\"}"))
	assert.Equal(t, map[string]string{"name": "utf8"}, fieldRules(t, err))

	_, err = DecodeCreate([]byte("{\"name\":\"Alice\",\"email\":\"a\xc3@b.co\",\"password\":\"long\xffenough\"}"))
	assert.Equal(t, map[string]string{"email": "utf8", "password": "utf8"}, fieldRules(t, err))
}

func TestValidateRejectsInvalidUTF8(t *testing.T) {
	in := record.CreateInput{Name: "\xff\xfe", Email: "al@example.com", Password: "12345678"}
	assert.Equal(t, map[string]string{"name": "utf8"}, fieldRules(t, Validate(in)))
}
