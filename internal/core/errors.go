package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned for an unknown, expired or finished handle.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrSessionBusy is returned when another step of the same session is running.
	ErrSessionBusy = errors.New("import session is busy with another step")

	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// FileErrorKind classifies a FileError.
type FileErrorKind string

const (
	FileUnsupportedType FileErrorKind = "unsupported_type"
	FileTooLarge        FileErrorKind = "too_large"
	FileUnreadable      FileErrorKind = "unreadable"
)

// FileError is fatal to a session: the upload is rejected or cannot be decoded.
type FileError struct {
	Kind  FileErrorKind
	Name  string
	Size  int64
	Limit int64
	Err   error
}

func (e *FileError) Error() string {
	switch e.Kind {
	case FileUnsupportedType:
		return fmt.Sprintf("unsupported file type: %q", e.Name)
	case FileTooLarge:
		return fmt.Sprintf("file too large: %q exceeds %d bytes", e.Name, e.Limit)
	default:
		if e.Err != nil {
			return fmt.Sprintf("unreadable file %q: %v", e.Name, e.Err)
		}
		return fmt.Sprintf("unreadable file %q", e.Name)
	}
}

func (e *FileError) Unwrap() error { return e.Err }

// SchemaError reports an entity type with no registered schema.
type SchemaError struct {
	EntityType string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unknown entity type %q", e.EntityType)
}

// Kind returns the taxonomy code of the error.
func (e *SchemaError) Kind() string { return "unknown_entity_type" }

// MappingError refuses execution because the mapping is incomplete or refers
// to things that do not exist. The session stays in the Mapping state.
type MappingError struct {
	Missing        []string // required fields without a column
	UnknownFields  []string // mapping keys the schema does not declare
	UnknownColumns []string // mapped columns absent from the parsed table
}

func (e *MappingError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required mapping: "+strings.Join(e.Missing, ", "))
	}
	if len(e.UnknownFields) > 0 {
		parts = append(parts, "unknown fields: "+strings.Join(e.UnknownFields, ", "))
	}
	if len(e.UnknownColumns) > 0 {
		parts = append(parts, "unknown columns: "+strings.Join(e.UnknownColumns, ", "))
	}
	return strings.Join(parts, "; ")
}

// Kind returns the taxonomy code of the error.
func (e *MappingError) Kind() string {
	if len(e.Missing) > 0 {
		return "missing_required_mapping"
	}
	return "invalid_mapping"
}

// RowValidationError is a field-level problem local to one row.
type RowValidationError struct {
	Field   string
	Message string
}

func (e RowValidationError) Error() string { return e.Message }

// PersistenceError wraps a rejection from the entity store for one row.
// Its message is the store's message, unchanged.
type PersistenceError struct {
	EntityType string
	Err        error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransitionError is returned when a session step is not allowed in its current state.
type TransitionError struct {
	From SessionState
	To   SessionState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid session transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// IsFatal reports whether err ends the session it occurred in.
func IsFatal(err error) bool {
	var fe *FileError
	var se *SchemaError
	return errors.As(err, &fe) || errors.As(err, &se)
}
