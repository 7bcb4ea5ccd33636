package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a Protocol Document from JSON or YAML and validates its wire
// shape. YAML input is normalised to JSON first so both paths share the same
// schema checks.
func Decode(data []byte) (*Document, error) {
	raw, err := normaliseJSON(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// Encode serialises the document as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrMalformedDocument)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func normaliseJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
	}
	if json.Valid(trimmed) {
		return trimmed, nil
	}

	var value any
	if err := yaml.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON or YAML", ErrMalformedDocument)
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: document must be an object", ErrMalformedDocument)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return raw, nil
}
