package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	registry   = make(map[string]EntitySchema)
	registryMu sync.RWMutex
)

// Register adds an entity schema to the registry.
// Panics if the schema is invalid or its entity type is already registered.
func Register(schema EntitySchema) {
	if err := schema.Validate(); err != nil {
		panic(fmt.Sprintf("invalid entity schema: %v", err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[schema.EntityType]; exists {
		panic(fmt.Sprintf("entity schema already registered: %s", schema.EntityType))
	}

	registry[schema.EntityType] = schema
}

// Get returns a schema by entity type.
// Returns false if not found.
func Get(entityType string) (EntitySchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	schema, ok := registry[entityType]
	return schema, ok
}

// Lookup returns a schema by entity type or a *SchemaError.
func Lookup(entityType string) (EntitySchema, error) {
	schema, ok := Get(entityType)
	if !ok {
		return EntitySchema{}, &SchemaError{EntityType: entityType}
	}
	return schema, nil
}

// All returns all registered schemas sorted by entity type.
func All() []EntitySchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntitySchema, 0, len(registry))
	for _, schema := range registry {
		result = append(result, schema)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityType < result[j].EntityType
	})

	return result
}

// Types returns all registered entity types, sorted.
func Types() []string {
	all := All()
	types := make([]string, len(all))
	for i, s := range all {
		types[i] = s.EntityType
	}
	return types
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ParseSchema decodes and validates a YAML entity schema.
func ParseSchema(data []byte) (EntitySchema, error) {
	var schema EntitySchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return EntitySchema{}, fmt.Errorf("decode schema: %w", err)
	}
	for i := range schema.Fields {
		if schema.Fields[i].Coerce == "" {
			schema.Fields[i].Coerce = CoerceString
		}
	}
	if err := schema.Validate(); err != nil {
		return EntitySchema{}, err
	}
	return schema, nil
}

// MustParseSchema is ParseSchema for embedded schemas; it panics on error.
func MustParseSchema(data []byte) EntitySchema {
	schema, err := ParseSchema(data)
	if err != nil {
		panic(err)
	}
	return schema
}

// Validate checks that the schema is internally consistent.
func (s EntitySchema) Validate() error {
	if s.EntityType == "" {
		return fmt.Errorf("schema has no entity_type")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s declares no fields", s.EntityType)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("schema %s has a field without key", s.EntityType)
		}
		if seen[f.Key] {
			return fmt.Errorf("schema %s declares field %s twice", s.EntityType, f.Key)
		}
		seen[f.Key] = true

		if strings.TrimSpace(f.Label) == "" {
			return fmt.Errorf("schema %s field %s has no label", s.EntityType, f.Key)
		}
		if !f.Coerce.Valid() {
			return fmt.Errorf("schema %s field %s has unknown coerce kind %q", s.EntityType, f.Key, f.Coerce)
		}
		if f.Constraints.Format != "" && f.Constraints.Format != "email" {
			return fmt.Errorf("schema %s field %s has unknown format %q", s.EntityType, f.Key, f.Constraints.Format)
		}
	}
	return nil
}
