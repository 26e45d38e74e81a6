package entities

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/subtrack/internal/core"
)

func TestBuiltinSchemasRegistered(t *testing.T) {
	if got, want := core.Types(), []string{"assets", "contracts", "employees"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}

	tests := []struct {
		entityType string
		table      string
		required   []string
	}{
		{"contracts", "contracts", []string{"name", "provider"}},
		{"assets", "assets", []string{"name", "asset_tag"}},
		{"employees", "employees", []string{"first_name", "last_name", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			schema, err := core.Lookup(tt.entityType)
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.entityType, err)
			}
			if got := schema.TableName(); got != tt.table {
				t.Errorf("TableName() = %q, want %q", got, tt.table)
			}
			if got := schema.RequiredKeys(); !reflect.DeepEqual(got, tt.required) {
				t.Errorf("RequiredKeys() = %v, want %v", got, tt.required)
			}
		})
	}
}

func TestContractsSchemaFields(t *testing.T) {
	schema, _ := core.Get("contracts")

	want := []string{
		"name", "provider", "monthly_cost", "renewal_date", "status",
		"license_count", "pricing_model", "notice_period_days", "description", "contract_number",
	}
	var got []string
	for _, f := range schema.Fields {
		got = append(got, f.Key)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("contracts fields = %v, want %v", got, want)
	}

	kinds := map[string]core.CoerceKind{
		"name":               core.CoerceString,
		"monthly_cost":       core.CoerceNumber,
		"renewal_date":       core.CoerceDate,
		"license_count":      core.CoerceInteger,
		"notice_period_days": core.CoerceInteger,
	}
	for key, want := range kinds {
		f, ok := schema.Field(key)
		if !ok {
			t.Errorf("Field(%q) not found", key)
			continue
		}
		if f.Coerce != want {
			t.Errorf("Field(%q).Coerce = %q, want %q", key, f.Coerce, want)
		}
	}

	if f, _ := schema.Field("name"); f.Label != "Nom du contrat" {
		t.Errorf("name label = %q, want %q", f.Label, "Nom du contrat")
	}
}

func TestBuiltinSuggestions(t *testing.T) {
	schema, _ := core.Get("contracts")
	s := core.NewSuggester(core.DefaultMatchThreshold)

	got := s.Suggest([]string{"Nom du contrat", "xyz_random", "Fournisseur"}, schema)

	if col := got.Mapping["name"]; col != "Nom du contrat" {
		t.Errorf("name suggested %q, want %q", col, "Nom du contrat")
	}
	if conf := got.Confidence["name"]; conf != 1 {
		t.Errorf("name confidence = %v, want 1", conf)
	}
	if col := got.Mapping["provider"]; col != "Fournisseur" {
		t.Errorf("provider suggested %q, want %q", col, "Fournisseur")
	}
	for field, col := range got.Mapping {
		if col == "xyz_random" {
			t.Errorf("field %q suggested xyz_random, want no mapping", field)
		}
	}
}
