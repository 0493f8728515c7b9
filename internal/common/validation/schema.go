package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// RecordSchema describes one proposal record. Date strings are deliberately
// typed as plain strings: a malformed date must only exclude its record at
// filter time.
const RecordSchema = `{
  "type": "object",
  "required": ["nuPropostaSeguridade"],
  "properties": {
    "nuPropostaSeguridade": {"type": "integer"},
    "sgSituacaoProposta": {"type": ["string", "null"]},
    "dataEvolucao": {"type": ["string", "null"]},
    "historico": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "sgSituacaoProposta": {"type": ["string", "null"]},
          "dataEvolucao": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

// RecordSnapshotSchema describes the {"propostas": [...]} document held by
// the file and Redis record sources.
const RecordSnapshotSchema = `{
  "type": "object",
  "required": ["propostas"],
  "properties": {
    "propostas": {"type": "array", "items": ` + RecordSchema + `}
  }
}`

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document failed schema validation: %s", strings.Join(e.Errors, "; "))
}

// Validator holds a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schema once so it can be applied to many documents.
func NewValidator(schema string) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks a raw JSON document against the schema.
func (v *Validator) Validate(document []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &ValidationError{Errors: errs}
	}

	return nil
}

var (
	snapshotValidator = compiled(RecordSnapshotSchema)
	recordValidator   = compiled(RecordSchema)
)

// compiled defers compilation to first use and caches the result.
func compiled(schema string) func() (*Validator, error) {
	var (
		once sync.Once
		v    *Validator
		err  error
	)
	return func() (*Validator, error) {
		once.Do(func() { v, err = NewValidator(schema) })
		return v, err
	}
}

// ValidateRecordSnapshot validates a proposal snapshot document.
func ValidateRecordSnapshot(document []byte) error {
	v, err := snapshotValidator()
	if err != nil {
		return err
	}
	return v.Validate(document)
}

// ValidateRecord validates a single stored proposal, as kept in a Postgres
// row or an Elasticsearch document.
func ValidateRecord(document []byte) error {
	v, err := recordValidator()
	if err != nil {
		return err
	}
	return v.Validate(document)
}
