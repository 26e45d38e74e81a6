package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// memStaging is an in-memory StagingArea for tests.
type memStaging struct {
	mu    sync.Mutex
	files map[string]UploadedFile
	data  map[string][]byte
}

func newMemStaging() *memStaging {
	return &memStaging{files: map[string]UploadedFile{}, data: map[string][]byte{}}
}

func (m *memStaging) Put(_ context.Context, f UploadedFile, data []byte) (UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.StoragePath = "mem://" + f.Handle
	m.files[f.Handle] = f
	m.data[f.Handle] = append([]byte(nil), data...)
	return f, nil
}

func (m *memStaging) Open(_ context.Context, f UploadedFile) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[f.Handle]
	if !ok {
		return nil, errors.New("staged file not found")
	}
	return d, nil
}

func (m *memStaging) Delete(_ context.Context, f UploadedFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, f.Handle)
	delete(m.data, f.Handle)
	return nil
}

func (m *memStaging) ListExpired(_ context.Context, cutoff time.Time) ([]UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UploadedFile
	for _, f := range m.files {
		if f.CreatedAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStaging) has(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[handle]
	return ok
}

// fakeStore records created records and rejects by a caller-supplied rule.
type fakeStore struct {
	mu      sync.Mutex
	created []Record
	reject  func(Record) error
	block   chan struct{} // when set, Create waits for it to close
}

func (s *fakeStore) Create(ctx context.Context, schema EntitySchema, r Record) (string, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject != nil {
		if err := s.reject(r); err != nil {
			return "", err
		}
	}
	s.created = append(s.created, r)
	return fmt.Sprintf("%s-%d", schema.EntityType, len(s.created)), nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func ptr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// testSchema mirrors the shape of the contracts schema without depending
// on the entities package.
func testSchema() EntitySchema {
	return EntitySchema{
		EntityType: "contracts",
		Label:      "Contrats",
		Fields: []FieldDef{
			{Key: "name", Label: "Nom du contrat", Required: true, Coerce: CoerceString},
			{Key: "provider", Label: "Fournisseur", Required: true, Coerce: CoerceString},
			{Key: "monthly_cost", Label: "Coût mensuel", Coerce: CoerceNumber, Constraints: Constraints{Min: floatPtr(0)}},
			{Key: "renewal_date", Label: "Date de renouvellement", Coerce: CoerceDate},
			{Key: "license_count", Label: "Nombre de licences", Coerce: CoerceInteger},
			{Key: "status", Label: "Statut", Coerce: CoerceString,
				Constraints: Constraints{OneOf: []string{"active", "expired"}}},
			{Key: "contract_number", Label: "Numéro de contrat", Coerce: CoerceString},
		},
	}
}

// table builds a ParsedTable from a header and rows; empty strings become nil.
func table(columns []string, rows ...[]string) *ParsedTable {
	t := &ParsedTable{Columns: columns, ColumnTypes: map[string]ColumnType{}}
	for i, r := range rows {
		cells := make(map[string]*string, len(columns))
		for j, c := range columns {
			if j < len(r) && strings.TrimSpace(r[j]) != "" {
				cells[c] = ptr(r[j])
			} else {
				cells[c] = nil
			}
		}
		t.Rows = append(t.Rows, Row{Line: i + 2, Cells: cells})
	}
	return t
}

// withSchemas registers schemas for the duration of a test.
func withSchemas(t interface{ Cleanup(func()) }, schemas ...EntitySchema) {
	registryMu.Lock()
	saved := registry
	registry = make(map[string]EntitySchema)
	registryMu.Unlock()

	for _, s := range schemas {
		Register(s)
	}

	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}
