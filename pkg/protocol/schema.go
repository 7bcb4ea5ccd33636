package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchemaURL = "https://configpage.schemas.local/protocol/document.schema.json"

// documentSchema checks wire shape only. Semantic rules (root presence,
// dangling ids, cycles) are enforced by the store and the hierarchy resolver.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "scenario": {
      "type": "object",
      "properties": {
        "key": {"type": "string"},
        "type": {"type": "string"}
      }
    },
    "mode": {"enum": ["", "full", "partial", "FULL", "PARTIAL"]},
    "hierarchy": {
      "type": "object",
      "properties": {
        "root": {"type": "string"},
        "structure": {
          "type": "object",
          "additionalProperties": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    },
    "components": {
      "type": "object",
      "additionalProperties": {"$ref": "#/$defs/component"}
    }
  },
  "$defs": {
    "component": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string"},
        "props": {"type": ["object", "null"]},
        "state": {"type": ["object", "null"]},
        "data": {"type": ["object", "null"]},
        "operations": {
          "type": ["object", "null"],
          "additionalProperties": {"$ref": "#/$defs/operation"}
        }
      }
    },
    "operation": {
      "type": "object",
      "properties": {
        "key": {"type": "string"},
        "reload": {"type": "boolean"},
        "confirm": {"type": "string"},
        "disabled": {"type": "boolean"},
        "disabledTip": {"type": "string"},
        "tip": {"type": "string"},
        "skipRender": {"type": "boolean"},
        "clientData": {
          "type": ["object", "null"],
          "properties": {
            "dataRef": {"type": ["object", "null"]}
          }
        },
        "serverData": {
          "type": ["object", "null"],
          "properties": {
            "params": {"type": ["object", "null"]},
            "query": {"type": ["object", "null"]},
            "target": {"type": "string"},
            "jumpOut": {"type": "boolean"}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(documentSchemaURL, strings.NewReader(documentSchema)); err != nil {
			schemaErr = fmt.Errorf("protocol: load document schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(documentSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("protocol: compile document schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks raw JSON against the Protocol Document schema. Failures wrap
// ErrMalformedDocument.
func Validate(raw []byte) error {
	schema, err := documentValidator()
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}
