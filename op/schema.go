package op

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nickyhof/DocQL/core"
)

type schema struct {
	source   string
	compiled *gojsonschema.Schema
}

// SetSchema validates every document later written to collection against
// the given JSON schema. An empty schema removes validation.
func (store *Store) SetSchema(collection string, jsonSchema string) error {
	if err := validCollection(collection); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if jsonSchema == "" {
		delete(store.schemas, collection)
		return nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(jsonSchema))
	if err != nil {
		return fmt.Errorf("schema for %s: %w", collection, err)
	}

	store.schemas[collection] = &schema{source: jsonSchema, compiled: compiled}
	return nil
}

// Schema returns the JSON schema set for collection, if any.
func (store *Store) Schema(collection string) (string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	s, ok := store.schemas[collection]
	if !ok {
		return "", false
	}
	return s.source, true
}

// LoadBuiltinSchemas installs the schemas of the restaurant review collections.
func (store *Store) LoadBuiltinSchemas() error {
	for collection, jsonSchema := range BuiltinSchemas {
		if err := store.SetSchema(collection, jsonSchema); err != nil {
			return err
		}
	}
	return nil
}

func (store *Store) validate(collection string, doc core.Document) error {
	store.mu.RLock()
	s, ok := store.schemas[collection]
	store.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
}

var BuiltinSchemas = map[string]string{
	"restaurants": `{
  "type": "object",
  "required": ["name", "address", "avg_rating", "critic_reviews"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "restaurant_id": {"type": "string"},
    "address": {
      "type": "object",
      "required": ["building", "coord", "street", "zipcode"],
      "properties": {
        "building": {"type": "string"},
        "coord": {"type": "array", "minItems": 2, "maxItems": 2, "items": {"type": "number"}},
        "street": {"type": "string"},
        "zipcode": {"type": "string", "pattern": "^\\d{5}$"}
      }
    },
    "avg_rating": {"type": "number", "minimum": 0, "maximum": 5},
    "critic_reviews": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "review", "rating"],
        "properties": {
          "name": {"type": "string"},
          "review": {"type": "string"},
          "rating": {"type": "number", "minimum": 0, "maximum": 5},
          "sentiment_score": {"type": "number", "minimum": -1, "maximum": 1}
        }
      }
    },
    "created_at": {"type": "string"},
    "updated_at": {"type": "string"}
  }
}`,
	"audit": `{
  "type": "object",
  "required": ["key", "value", "restaurant_id", "action_by", "action", "time_of_action"],
  "properties": {
    "key": {"type": "string"},
    "value": {"type": ["object", "string", "array", "number"]},
    "restaurant_id": {"type": "string"},
    "action_by": {"type": "string"},
    "action": {"enum": ["insert", "update", "delete"]},
    "time_of_action": {"type": "string"}
  }
}`,
	"users": `{
  "type": "object",
  "required": ["name", "email", "password"],
  "properties": {
    "name": {"type": "string"},
    "email": {"type": "string", "pattern": "^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}$"},
    "password": {"type": "string"},
    "created_at": {"type": "string"},
    "updated_at": {"type": "string"}
  }
}`,
}
