// Package schemas checks run result documents against their JSON Schema.
package schemas

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/recruiter-agent/internal/types"
)

//go:embed document.schema.json
var documentSchema string

// DocumentSchema returns the JSON Schema of the result document.
func DocumentSchema() string {
	return documentSchema
}

var compiledDocument = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return s, nil
})

// Violation is one schema rule a document breaks.
type Violation struct {
	Field string
	Rule  string
	Msg   string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Msg
	}
	return fmt.Sprintf("document invalid (%d): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Fields returns the distinct fields with violations, in report order.
func (e *ValidationError) Fields() []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range e.Violations {
		if !seen[v.Field] {
			seen[v.Field] = true
			out = append(out, v.Field)
		}
	}
	return out
}

// ValidateDocument checks an assembled document against the embedded schema.
func ValidateDocument(doc *types.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return validate(data)
}

// ValidateDocumentFile checks a result document saved on disk.
func ValidateDocumentFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	return validate(data)
}

func validate(data []byte) error {
	schema, err := compiledDocument()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Violations = append(verr.Violations, Violation{Field: field, Rule: re.Type(), Msg: re.Description()})
	}
	return verr
}
