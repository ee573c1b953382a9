package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_ListsEmbeddedSchemas(t *testing.T) {
	names := Names()
	assert.Contains(t, names, Categories)
	assert.Contains(t, names, Legend)
	assert.Contains(t, names, Document)
}

func TestValidate_Categories_Valid(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"categories": [
			{"id": "salary", "label": "Salary", "kind": "decorative", "patterns": ["\\$\\d+"]},
			{"id": "email", "label": "Email", "kind": "email", "keywords": ["jobs@example.com"]}
		]
	}`)

	assert.NoError(t, Validate(Categories, data))
}

func TestValidate_Categories_UnknownKind(t *testing.T) {
	data := []byte(`{"categories": [{"id": "salary", "label": "Salary", "kind": "sparkly", "keywords": ["pay"]}]}`)

	err := Validate(Categories, data)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
	assert.Equal(t, Categories, validationErr.Schema)
}

func TestValidate_Categories_MissingMatchers(t *testing.T) {
	data := []byte(`{"categories": [{"id": "salary", "label": "Salary", "kind": "decorative"}]}`)

	err := Validate(Categories, data)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
}

func TestValidate_Categories_BadIdentifier(t *testing.T) {
	data := []byte(`{"categories": [{"id": "Salary Range", "label": "Salary", "kind": "decorative", "keywords": ["pay"]}]}`)

	err := Validate(Categories, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories.0.id")
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(Categories, []byte(`{"categories": [`))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nonexistent.schema.json", []byte(`{}`))
	require.Error(t, err)

	loadErr, ok := err.(*SchemaLoadError)
	require.True(t, ok, "error should be SchemaLoadError type")
	assert.Contains(t, loadErr.Error(), "schema not found")
}

func TestValidate_Legend(t *testing.T) {
	valid := []byte(`{"entries": [{"category": "salary", "label": "Salary", "examples": ["$120k"], "color": "emerald"}]}`)
	assert.NoError(t, Validate(Legend, valid))

	tooManyExamples := []byte(`{"entries": [{"category": "salary", "label": "Salary", "examples": ["a", "b", "c"], "color": "emerald"}]}`)
	assert.Error(t, Validate(Legend, tooManyExamples))
}

func TestValidate_Document(t *testing.T) {
	valid := []byte(`{
		"paragraphs": [
			{"text": "Remote role", "blank": false, "segments": [
				{"text": "Remote", "kind": "decorative", "category": "work_arrangement", "start": 0, "end": 6},
				{"text": " role", "kind": "plain", "start": 6, "end": 11}
			]},
			{"text": "", "blank": true}
		]
	}`)
	assert.NoError(t, Validate(Document, valid))

	badKind := []byte(`{"paragraphs": [{"text": "x", "blank": false, "segments": [{"text": "x", "kind": "bold", "start": 0, "end": 1}]}]}`)
	assert.Error(t, Validate(Document, badKind))
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{
		Schema: Categories,
		Errors: []FieldError{
			{Field: "categories.0.kind", Message: "must be one of the following"},
			{Field: "(root)", Message: "categories is required"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "categories.schema.json validation failed")
	assert.Contains(t, msg, "1. categories.0.kind")
	assert.Contains(t, msg, "2. (root)")
}
