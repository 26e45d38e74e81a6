package core

// executor.go persists validated rows one at a time.
//
// Rows are processed strictly in source order. Each row is an independent
// unit of work: a validation failure or a store rejection is recorded in the
// row's outcome and the run continues. There is no cross-row transaction.

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"
)

// DefaultRowTimeout bounds a single store write.
const DefaultRowTimeout = 10 * time.Second

// Executor runs one import against an EntityStore.
type Executor struct {
	store      EntityStore
	rowTimeout time.Duration
	dateOrder  DateOrder
	logger     *slog.Logger
}

// NewExecutor creates an executor writing to store.
func NewExecutor(store EntityStore, rowTimeout time.Duration, order DateOrder) *Executor {
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}
	return &Executor{
		store:      store,
		rowTimeout: rowTimeout,
		dateOrder:  order,
		logger:     slog.Default(),
	}
}

// WithLogger returns a copy of the executor that logs to logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	cp := *e
	cp.logger = logger
	return &cp
}

// CheckMapping verifies that mapping is executable against schema and table.
// It returns a *MappingError listing every problem, or nil.
func CheckMapping(schema EntitySchema, table *ParsedTable, mapping FieldMapping) error {
	merr := &MappingError{Missing: mapping.Missing(schema)}

	known := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		known[c] = true
	}
	for _, f := range schema.Fields {
		col, ok := mapping.Column(f.Key)
		if ok && !known[col] {
			merr.UnknownColumns = append(merr.UnknownColumns, col)
		}
	}
	for key, col := range mapping {
		if _, ok := schema.Field(key); !ok && col != "" {
			merr.UnknownFields = append(merr.UnknownFields, key)
		}
	}
	sort.Strings(merr.UnknownFields)

	if len(merr.Missing) == 0 && len(merr.UnknownFields) == 0 && len(merr.UnknownColumns) == 0 {
		return nil
	}
	return merr
}

// Run validates and persists every row of table. A *MappingError is returned,
// before any write, if the mapping is not executable. Otherwise the result
// holds exactly one outcome per parsed row.
//
// Cancellation of ctx does not interrupt a started run: rows already written
// cannot be rolled back, so the run always finishes.
func (e *Executor) Run(ctx context.Context, schema EntitySchema, table *ParsedTable, mapping FieldMapping) (*ImportResult, error) {
	if err := CheckMapping(schema, table, mapping); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	validator := NewRowValidator(schema, mapping, e.dateOrder)

	result := &ImportResult{
		EntityType: schema.EntityType,
		Total:      len(table.Rows),
		Details:    make([]RowOutcome, 0, len(table.Rows)),
		StartedAt:  time.Now(),
	}

	for i, row := range table.Rows {
		outcome := e.runRow(ctx, schema, validator, i, row)

		if outcome.Status == RowSuccess {
			result.SuccessCount++
		} else {
			result.FailedCount++
		}
		if len(outcome.Warnings) > 0 {
			result.WarningCount++
		}
		result.Details = append(result.Details, outcome)
	}

	result.DurationMs = time.Since(result.StartedAt).Milliseconds()
	return result, nil
}

func (e *Executor) runRow(ctx context.Context, schema EntitySchema, validator *RowValidator, index int, row Row) RowOutcome {
	outcome := RowOutcome{
		RowIndex: index,
		Line:     row.Line,
		Errors:   []string{},
		Warnings: []string{},
	}

	v := validator.Validate(row)
	outcome.Warnings = append(outcome.Warnings, v.Warnings...)

	if !v.OK() {
		outcome.Status = RowError
		outcome.Errors = append(outcome.Errors, v.ErrorMessages()...)
		return outcome
	}

	id, err := e.create(ctx, schema, v.Record)
	if err != nil {
		e.logger.Warn("row rejected by store",
			"entity_type", schema.EntityType,
			"row", index,
			"line", row.Line,
			"error", err,
		)
		outcome.Status = RowError
		outcome.Errors = append(outcome.Errors, err.Error())
		return outcome
	}

	outcome.Status = RowSuccess
	outcome.ProducedID = id
	return outcome
}

// create writes one record with a per-row timeout. Store failures come back
// as *PersistenceError carrying the store's message.
func (e *Executor) create(ctx context.Context, schema EntitySchema, record Record) (id string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.rowTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &PersistenceError{EntityType: schema.EntityType, Err: errors.New("store panicked while writing row")}
			e.logger.Error("entity store panic", "entity_type", schema.EntityType, "panic", r)
		}
	}()

	id, err = e.store.Create(ctx, schema, record)
	if err != nil {
		return "", &PersistenceError{EntityType: schema.EntityType, Err: err}
	}
	return id, nil
}
