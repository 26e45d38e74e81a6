package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSchema(t *testing.T) {
	data := []byte(`
entity_type: vendors
label: Fournisseurs
fields:
  - key: name
    label: Nom
    required: true
  - key: budget
    label: Budget
    coerce: number
    constraints:
      min: 0
`)

	schema, err := ParseSchema(data)
	if err != nil {
		t.Fatalf("ParseSchema() error = %v", err)
	}
	if schema.EntityType != "vendors" || len(schema.Fields) != 2 {
		t.Fatalf("ParseSchema() = %+v", schema)
	}
	if schema.Fields[0].Coerce != CoerceString {
		t.Errorf("default Coerce = %q, want string", schema.Fields[0].Coerce)
	}
	if min := schema.Fields[1].Constraints.Min; min == nil || *min != 0 {
		t.Errorf("budget min = %v, want 0", min)
	}
	if schema.TableName() != "vendors" {
		t.Errorf("TableName() = %q, want vendors", schema.TableName())
	}
}

func TestEntitySchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  EntitySchema
		wantErr string
	}{
		{
			name:    "missing entity type",
			schema:  EntitySchema{Fields: []FieldDef{{Key: "a", Label: "A", Coerce: CoerceString}}},
			wantErr: "no entity_type",
		},
		{
			name:    "no fields",
			schema:  EntitySchema{EntityType: "x"},
			wantErr: "declares no fields",
		},
		{
			name: "duplicate key",
			schema: EntitySchema{EntityType: "x", Fields: []FieldDef{
				{Key: "a", Label: "A", Coerce: CoerceString},
				{Key: "a", Label: "B", Coerce: CoerceString},
			}},
			wantErr: "declares field a twice",
		},
		{
			name:    "missing label",
			schema:  EntitySchema{EntityType: "x", Fields: []FieldDef{{Key: "a", Coerce: CoerceString}}},
			wantErr: "has no label",
		},
		{
			name:    "unknown coerce",
			schema:  EntitySchema{EntityType: "x", Fields: []FieldDef{{Key: "a", Label: "A", Coerce: "money"}}},
			wantErr: "unknown coerce kind",
		},
		{
			name:    "unknown format",
			schema:  EntitySchema{EntityType: "x", Fields: []FieldDef{{Key: "a", Label: "A", Coerce: CoerceString, Constraints: Constraints{Format: "phone"}}}},
			wantErr: "unknown format",
		},
		{
			name:   "valid",
			schema: testSchema(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	withSchemas(t, testSchema())

	if SchemaCount() != 1 {
		t.Errorf("SchemaCount() = %d, want 1", SchemaCount())
	}
	if _, err := Lookup("contracts"); err != nil {
		t.Errorf("Lookup(contracts) error = %v", err)
	}

	_, err := Lookup("invoices")
	var se *SchemaError
	if !errors.As(err, &se) || se.EntityType != "invoices" {
		t.Errorf("Lookup(invoices) error = %v, want *SchemaError", err)
	}

	t.Run("duplicate registration panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Register() did not panic on duplicate")
			}
		}()
		Register(testSchema())
	})

	t.Run("invalid schema panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Register() did not panic on invalid schema")
			}
		}()
		Register(EntitySchema{EntityType: "broken"})
	})
}
