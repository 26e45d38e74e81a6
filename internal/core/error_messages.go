// Package core provides the business logic for tabular data imports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Pipeline errors are typed and resolved first, with errors.As / errors.Is.
// Anything else (usually a message from the entity store) falls through to
// substring patterns, then to ERR000.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller files
//	          Source: *FileError{Kind: too_large}
//
//	FILE002 - Unsupported type: Only CSV, XLSX and XLS files are accepted
//	          Action: Export the sheet as CSV or XLSX and upload again
//	          Source: *FileError{Kind: unsupported_type}
//
//	FILE003 - Unreadable file: The file could not be decoded
//	          Action: Check the file opens in a spreadsheet program and save it again
//	          Source: *FileError{Kind: unreadable}
//
// # Schema and Mapping Errors (SCH001, MAP001)
//
//	SCH001 - Unknown entity type: Nothing can be imported as this type
//	         Action: Choose contracts, assets or employees
//	         Source: *SchemaError
//
//	MAP001 - Incomplete mapping: Required fields have no column assigned
//	         Action: Assign a column to every required field and run the import again
//	         Source: *MappingError
//
// # Session Errors (IMP001-IMP099)
//
//	IMP001 - Session not found: The import session expired or already finished
//	         Action: Upload the file again to start a new import
//	         Source: ErrSessionNotFound
//
//	IMP002 - Session busy: Another step of this import is still running
//	         Action: Wait for it to finish, then try again
//	         Source: ErrSessionBusy
//
//	IMP003 - Invalid step: This step is not allowed at the current stage
//	         Action: Follow upload, preview, mapping, execute in order
//	         Source: ErrInvalidTransition
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Source: ErrTooManyImports
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
// Errors reported by the entity store for a single row:
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
//	DB008 - Check constraint: A value was rejected by a database rule
//	        Patterns: "violates check constraint", "violates not-null constraint"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgFileUnsupported = UserMessage{
		Message: "Only CSV, XLSX and XLS files are accepted",
		Action:  "Export the sheet as CSV or XLSX and upload again",
		Code:    "FILE002",
	}
	msgFileUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Check the file opens in a spreadsheet program and save it again",
		Code:    "FILE003",
	}
	msgUnknownEntity = UserMessage{
		Message: "Unknown entity type",
		Action:  "Choose contracts, assets or employees",
		Code:    "SCH001",
	}
	msgIncompleteMapping = UserMessage{
		Message: "Required fields have no column assigned",
		Action:  "Assign a column to every required field and run the import again",
		Code:    "MAP001",
	}
	msgInvalidMapping = UserMessage{
		Message: "The mapping refers to fields or columns that do not exist",
		Action:  "Pick fields from the entity schema and columns from the uploaded file",
		Code:    "MAP002",
	}
	msgSessionNotFound = UserMessage{
		Message: "Import session not found",
		Action:  "The import may have expired. Upload the file again to start a new import",
		Code:    "IMP001",
	}
	msgSessionBusy = UserMessage{
		Message: "Another step of this import is still running",
		Action:  "Wait for it to finish, then try again",
		Code:    "IMP002",
	}
	msgInvalidTransition = UserMessage{
		Message: "This step is not allowed at the current stage of the import",
		Action:  "Follow upload, preview, mapping and execute in order",
		Code:    "IMP003",
	}
	msgTooManyImports = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Constraint Errors (DB001-DB003, DB008)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Remove the duplicate rows from your file",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are imported first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are imported first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value was rejected by a database rule",
			Action:  "Review the failed rows and correct the rejected values",
			Code:    "DB008",
		},
	},
	{
		pattern: "violates not-null constraint",
		msg: UserMessage{
			Message: "A value required by the database is empty",
			Action:  "Fill in the empty cells of the failed rows",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Request Errors (UPL004-UPL005)
	// Checked before "timeout" so deadline errors get the request code.
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed pipeline errors are resolved first; other errors are matched
// against known patterns, falling back to ERR000.
//
// Example:
//
//	err := &FileError{Kind: FileTooLarge, Name: "big.csv"}
//	msg := MapError(err)
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case FileTooLarge:
			return msgFileTooLarge, true
		case FileUnsupportedType:
			return msgFileUnsupported, true
		default:
			return msgFileUnreadable, true
		}
	}

	var se *SchemaError
	if errors.As(err, &se) {
		return msgUnknownEntity, true
	}

	var me *MappingError
	if errors.As(err, &me) {
		if me.Kind() == "invalid_mapping" {
			return msgInvalidMapping, true
		}
		return msgIncompleteMapping, true
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return msgSessionNotFound, true
	case errors.Is(err, ErrSessionBusy):
		return msgSessionBusy, true
	case errors.Is(err, ErrInvalidTransition):
		return msgInvalidTransition, true
	case errors.Is(err, ErrTooManyImports):
		return msgTooManyImports, true
	}

	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "A record with this key already exists (Code: DB001). Remove the duplicate rows from your file"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
