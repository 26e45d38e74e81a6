package core

import (
	"context"
	"time"
)

// CoerceKind declares how a raw cell is converted for a schema field.
type CoerceKind string

const (
	CoerceString  CoerceKind = "string"
	CoerceNumber  CoerceKind = "number"
	CoerceInteger CoerceKind = "integer"
	CoerceDate    CoerceKind = "date"
)

// Valid reports whether k is a known coercion kind.
func (k CoerceKind) Valid() bool {
	switch k {
	case CoerceString, CoerceNumber, CoerceInteger, CoerceDate:
		return true
	}
	return false
}

// Constraints are semantic checks applied after a value coerces successfully.
// Violations produce warnings, never errors.
type Constraints struct {
	Min       *float64 `yaml:"min" json:"min,omitempty"`
	Max       *float64 `yaml:"max" json:"max,omitempty"`
	OneOf     []string `yaml:"one_of" json:"oneOf,omitempty"`
	Format    string   `yaml:"format" json:"format,omitempty"` // "email"
	MaxLength int      `yaml:"max_length" json:"maxLength,omitempty"`
}

// FieldDef describes one importable field of an entity schema.
type FieldDef struct {
	Key         string      `yaml:"key" json:"key"`
	Label       string      `yaml:"label" json:"label"`
	Required    bool        `yaml:"required" json:"required"`
	Coerce      CoerceKind  `yaml:"coerce" json:"coerce"`
	Aliases     []string    `yaml:"aliases" json:"aliases,omitempty"`
	Column      string      `yaml:"column" json:"-"` // store column, defaults to Key
	Constraints Constraints `yaml:"constraints" json:"constraints"`
}

// StoreColumn returns the column name the entity store writes this field to.
func (f FieldDef) StoreColumn() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Key
}

// EntitySchema is the static, declarative description of one target entity type.
type EntitySchema struct {
	EntityType string     `yaml:"entity_type" json:"entityType"`
	Label      string     `yaml:"label" json:"label"`
	Table      string     `yaml:"table" json:"-"`
	Fields     []FieldDef `yaml:"fields" json:"fields"`
}

// Field returns the field with the given key.
func (s EntitySchema) Field(key string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDef{}, false
}

// RequiredKeys returns the keys of required fields in declaration order.
func (s EntitySchema) RequiredKeys() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Labels returns the field labels in declaration order.
func (s EntitySchema) Labels() []string {
	labels := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		labels[i] = f.Label
	}
	return labels
}

// TableName returns the store table for this schema, defaulting to the entity type.
func (s EntitySchema) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	return s.EntityType
}

// FileKind is the detected format of an uploaded file.
type FileKind string

const (
	KindCSV  FileKind = "csv"
	KindXLSX FileKind = "xlsx"
	KindXLS  FileKind = "xls"
)

// UploadedFile is a file accepted into the staging area.
type UploadedFile struct {
	Handle       string    `json:"handle"`
	OriginalName string    `json:"originalName"`
	SizeBytes    int64     `json:"sizeBytes"`
	MimeKind     FileKind  `json:"mimeKind"`
	StoragePath  string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ColumnType is the display type inferred for a parsed column.
type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
	ColumnText   ColumnType = "text"
)

// Row is one data row of a parsed table. Cells holds nil for empty cells;
// columns beyond the end of a short row are nil as well.
type Row struct {
	Line  int                `json:"line"`
	Cells map[string]*string `json:"cells"`
}

// Value returns the raw cell for column and whether it is non-empty.
func (r Row) Value(column string) (string, bool) {
	v, ok := r.Cells[column]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// ParseWarning is a row-level issue found while parsing. Line is 1-based.
type ParseWarning struct {
	Line    int    `json:"row"`
	Message string `json:"message"`
}

// ParsedTable is the immutable, decoded form of an uploaded file.
type ParsedTable struct {
	Columns     []string
	Rows        []Row
	ColumnTypes map[string]ColumnType
	Warnings    []ParseWarning
}

// TableStats summarizes a parsed table for preview.
type TableStats struct {
	TotalRows    int                   `json:"totalRows"`
	TotalColumns int                   `json:"totalColumns"`
	Columns      []string              `json:"columns"`
	ColumnTypes  map[string]ColumnType `json:"columnTypes"`
	HasErrors    bool                  `json:"hasErrors"`
	Errors       []ParseWarning        `json:"errors"`
}

// Stats returns summary statistics for the table.
func (t *ParsedTable) Stats() TableStats {
	errs := t.Warnings
	if errs == nil {
		errs = []ParseWarning{}
	}
	return TableStats{
		TotalRows:    len(t.Rows),
		TotalColumns: len(t.Columns),
		Columns:      t.Columns,
		ColumnTypes:  t.ColumnTypes,
		HasErrors:    len(t.Warnings) > 0,
		Errors:       errs,
	}
}

// FieldMapping assigns schema field keys to source columns.
// A missing key or an empty column means "do not import this field".
type FieldMapping map[string]string

// Column returns the source column mapped to key.
func (m FieldMapping) Column(key string) (string, bool) {
	col, ok := m[key]
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// Missing returns the required schema fields that have no mapping.
func (m FieldMapping) Missing(schema EntitySchema) []string {
	var missing []string
	for _, key := range schema.RequiredKeys() {
		if _, ok := m.Column(key); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Clone returns a copy of the mapping.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is a fully coerced candidate entity keyed by field key.
// Values are string, float64, int64, time.Time or nil.
type Record map[string]any

// RowStatus is the outcome of one row.
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowError   RowStatus = "error"
)

// RowOutcome is the per-row result of an import run. RowIndex is 0-based
// over parsed rows; Line is the 1-based line in the source file.
type RowOutcome struct {
	RowIndex   int       `json:"rowIndex"`
	Line       int       `json:"line"`
	Status     RowStatus `json:"status"`
	ProducedID string    `json:"producedId,omitempty"`
	Errors     []string  `json:"errors"`
	Warnings   []string  `json:"warnings"`
}

// ImportResult aggregates all row outcomes of one run, in source order.
type ImportResult struct {
	EntityType   string       `json:"entityType"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"successCount"`
	FailedCount  int          `json:"failedCount"`
	WarningCount int          `json:"warningCount"`
	Details      []RowOutcome `json:"details"`
	StartedAt    time.Time    `json:"startedAt"`
	DurationMs   int64        `json:"durationMs"`
}

// StagingArea stores uploaded files for the lifetime of a session.
// Implementations isolate files by handle only.
type StagingArea interface {
	Put(ctx context.Context, file UploadedFile, data []byte) (UploadedFile, error)
	Open(ctx context.Context, file UploadedFile) ([]byte, error)
	Delete(ctx context.Context, file UploadedFile) error
	ListExpired(ctx context.Context, cutoff time.Time) ([]UploadedFile, error)
}

// EntityStore persists candidate records. It returns the produced record ID,
// or an error whose message is reported verbatim as the row's failure.
type EntityStore interface {
	Create(ctx context.Context, schema EntitySchema, record Record) (string, error)
}
