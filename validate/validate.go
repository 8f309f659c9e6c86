// Package validate checks decoded function output against a JSON
// Schema and reports violations as path and message pairs a caller
// can attach to the final report.
package validate

import (
	"bytes"
	stderrors "errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wippyai/function-harness/errors"
)

// Violation is one schema failure, located by the path into the
// output value where it occurred. An empty path means the root.
type Violation struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Validator is a compiled output schema, safe for reuse across runs.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile builds a validator from JSON Schema source.
func Compile(schemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("output.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "loading output schema")
	}
	schema, err := compiler.Compile("output.schema.json")
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "compiling output schema")
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a decoded output value. A nil return means the
// value conforms.
func (v *Validator) Validate(value any) ([]Violation, error) {
	err := v.schema.Validate(value)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !stderrors.As(err, &verr) {
		return nil, errors.Internal("output schema validation", err)
	}
	var out []Violation
	collect(verr, &out)
	return out, nil
}

// collect walks the cause tree depth first so violations come out in
// document order. Only leaves carry useful messages; interior nodes
// just restate that a subschema failed.
func collect(verr *jsonschema.ValidationError, out *[]Violation) {
	if len(verr.Causes) == 0 {
		*out = append(*out, Violation{
			Path:    pointerSegments(verr.InstanceLocation),
			Message: verr.Message,
		})
		return
	}
	for _, cause := range verr.Causes {
		collect(cause, out)
	}
}

// pointerSegments splits a JSON pointer into unescaped segments.
func pointerSegments(ptr string) []string {
	if ptr == "" || ptr == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}
