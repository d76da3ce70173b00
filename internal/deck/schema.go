package deck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// ErrMalformedDocument reports deck content that does not parse or does not
// match the deck schema.
var ErrMalformedDocument = errors.New("malformed deck document")

// ValidationError carries the parse or schema failure behind a malformed
// document. It matches ErrMalformedDocument with errors.Is.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedDocument, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Is(target error) bool { return target == ErrMalformedDocument }

const schemaURL = "https://scenyx.local/schemas/deck.schema.json"

// Beats only require a block kind: unknown kinds and their fields are kept.
const deckSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["scenes"],
  "properties": {
    "meta": {
      "type": "object",
      "properties": {
        "title": {"type": "string"},
        "author": {"type": "string"},
        "created": {"type": "string"},
        "palette": {"type": "string"}
      }
    },
    "scenes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "mood": {"type": "string"},
          "layout": {"type": "string"},
          "notes": {"type": "string"},
          "beats": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["block"],
              "properties": {
                "block": {"type": "string", "minLength": 1},
                "enter": {"type": "string"},
                "position": {"type": "string"},
                "delay": {"type": "number", "minimum": 0},
                "items": {"type": ["array", "null"], "items": {"type": "string"}},
                "reveal": {"enum": ["all-at-once", "one-by-one"]},
                "left": {"$ref": "#/$defs/side"},
                "right": {"$ref": "#/$defs/side"}
              }
            }
          }
        }
      }
    }
  },
  "$defs": {
    "side": {
      "type": "object",
      "properties": {
        "title": {"type": "string"},
        "text": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	compiled   *jsonschema.Schema
	schemaErr  error
)

func deckSchemaCompiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(deckSchema)); err != nil {
			schemaErr = fmt.Errorf("deck schema load failed: %w", err)
			return
		}
		compiled, schemaErr = c.Compile(schemaURL)
	})
	return compiled, schemaErr
}

// Parse decodes and validates deck JSON. Failures wrap ErrMalformedDocument.
func Parse(data []byte) (*models.Deck, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var d models.Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ValidationError{Cause: err}
	}
	return &d, nil
}

// ValidateJSON checks raw deck JSON against the deck schema.
func ValidateJSON(data []byte) error {
	schema, err := deckSchemaCompiled()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Cause: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}

// Validate checks an in-memory deck, as the builder does before saving.
func Validate(d *models.Deck) error {
	if d == nil {
		return &ValidationError{Cause: errors.New("nil deck")}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return &ValidationError{Cause: err}
	}
	return ValidateJSON(data)
}

// ErrorHTML is the slide shown in place of a presentation that could not be
// loaded or parsed.
func ErrorHTML(err error) string {
	var buf bytes.Buffer
	if execErr := templates.ExecuteTemplate(&buf, "error-page", err.Error()); execErr != nil {
		return emptyDeckHTML
	}
	return buf.String()
}
