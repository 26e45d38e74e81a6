package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/google/uuid"
)

// DefaultUniqueFields mirrors the UNIQUE constraints of the SQL schema.
var DefaultUniqueFields = map[string][]string{
	"contracts": {"contract_number"},
	"assets":    {"asset_tag"},
	"employees": {"email"},
}

// StoredRecord is a record held by the memory store.
type StoredRecord struct {
	ID        string
	Values    core.Record
	CreatedAt time.Time
}

// Memory is a thread-safe in-memory EntityStore.
type Memory struct {
	mu      sync.RWMutex
	unique  map[string][]string
	records map[string][]StoredRecord
	index   map[string]map[string]string // entity/field -> value -> id
}

// NewMemory creates an empty store enforcing the given unique fields per
// entity type. A nil map enforces nothing.
func NewMemory(unique map[string][]string) *Memory {
	return &Memory{
		unique:  unique,
		records: make(map[string][]StoredRecord),
		index:   make(map[string]map[string]string),
	}
}

// Create stores rec under a new UUID.
func (m *Memory) Create(ctx context.Context, schema core.EntitySchema, rec core.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table := schema.TableName()
	for _, field := range m.unique[schema.EntityType] {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		if _, taken := m.index[table+"/"+field][fmt.Sprint(v)]; taken {
			return "", fmt.Errorf("duplicate key value violates unique constraint %q (Key (%s)=(%v) already exists.)",
				table+"_"+field+"_key", field, v)
		}
	}

	id := uuid.NewString()
	for _, field := range m.unique[schema.EntityType] {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		key := table + "/" + field
		if m.index[key] == nil {
			m.index[key] = make(map[string]string)
		}
		m.index[key][fmt.Sprint(v)] = id
	}

	values := make(core.Record, len(rec))
	for k, v := range rec {
		values[k] = v
	}
	m.records[table] = append(m.records[table], StoredRecord{ID: id, Values: values, CreatedAt: time.Now().UTC()})
	return id, nil
}

// Records returns a copy of the records stored for an entity table.
func (m *Memory) Records(table string) []StoredRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StoredRecord(nil), m.records[table]...)
}

// Count returns the number of records stored for an entity table.
func (m *Memory) Count(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[table])
}
