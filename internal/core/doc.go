// Package core provides the business logic for tabular data imports.
//
// This package holds all domain logic independent of any transport layer.
// It is used by the HTTP handlers, the importctl CLI and tests without
// modification.
//
// # Architecture
//
// An import moves through a fixed pipeline:
//
//   - Ingest: [Ingestor] checks extension and size and writes the bytes to a
//     [StagingArea] under a fresh handle.
//   - Parse: [Parser] decodes CSV, XLSX or XLS into a [ParsedTable] and infers
//     a display type per column.
//   - Suggest: [Suggester] proposes a [FieldMapping] by fuzzy matching column
//     names against schema keys, labels and aliases.
//   - Validate: [RowValidator] coerces each row into a [Record], producing
//     errors that exclude the row and warnings that do not.
//   - Execute: [Executor] writes valid records to an [EntityStore] in source
//     order, one independent write per row.
//
// [Service] ties the stages together as a session state machine
// (uploading, previewing, mapping, executing, completed, aborted). Each
// method performs one step; a second concurrent step on the same session
// fails with [ErrSessionBusy].
//
// # Entity Schemas
//
// Schemas are data, registered at init time using [Register]:
//
//	core.Register(core.MustParseSchema(contractsYAML))
//
// Adding an entity type means adding a schema, never a code branch.
//
// # Error Handling
//
// Fatal errors ([FileError], [SchemaError]) abort the session. A
// [MappingError] refuses execution but keeps the session in the mapping
// state. Row problems never stop a run; they are reported in
// [ImportResult.Details]. [MapError] turns any of them into a coded
// user message.
package core
