package core

import (
	"time"
)

// SessionState is a stage of the import workflow.
type SessionState string

const (
	StateUploading  SessionState = "uploading"
	StatePreviewing SessionState = "previewing"
	StateMapping    SessionState = "mapping"
	StateExecuting  SessionState = "executing"
	StateCompleted  SessionState = "completed"
	StateAborted    SessionState = "aborted"
)

// transitions lists the states reachable from each state. Previewing may
// repeat with another entity type until it is confirmed. Executing only
// leads to Completed: a started run cannot be cancelled.
var transitions = map[SessionState][]SessionState{
	StateUploading:  {StatePreviewing, StateAborted},
	StatePreviewing: {StatePreviewing, StateMapping, StateAborted},
	StateMapping:    {StateExecuting, StateAborted},
	StateExecuting:  {StateCompleted},
}

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to SessionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is the state of one import attempt. It is a plain value: each
// step receives the current session and returns the updated one.
type Session struct {
	Handle     string        `json:"handle"`
	State      SessionState  `json:"state"`
	File       UploadedFile  `json:"file"`
	EntityType string        `json:"entityType,omitempty"`
	Table      *ParsedTable  `json:"-"`
	Suggested  FieldMapping  `json:"suggestedMapping,omitempty"`
	Mapping    FieldMapping  `json:"mapping,omitempty"`
	Result     *ImportResult `json:"result,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// NewSession starts a session for a freshly staged file.
func NewSession(file UploadedFile, now time.Time) Session {
	return Session{
		Handle:    file.Handle,
		State:     StateUploading,
		File:      file,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance returns s moved to state to, or a *TransitionError.
func (s Session) Advance(to SessionState, now time.Time) (Session, error) {
	if !CanTransition(s.State, to) {
		return s, &TransitionError{From: s.State, To: to}
	}
	s.State = to
	s.UpdatedAt = now
	return s, nil
}

// WithPreview records the parsed table and suggestion and moves to Previewing.
func (s Session) WithPreview(entityType string, table *ParsedTable, suggested FieldMapping, now time.Time) (Session, error) {
	next, err := s.Advance(StatePreviewing, now)
	if err != nil {
		return s, err
	}
	next.EntityType = entityType
	next.Table = table
	next.Suggested = suggested
	return next, nil
}

// WithMapping stores the caller's mapping. Allowed only while in Mapping.
func (s Session) WithMapping(entityType string, mapping FieldMapping, now time.Time) (Session, error) {
	if s.State != StateMapping {
		return s, &TransitionError{From: s.State, To: StateMapping}
	}
	s.EntityType = entityType
	s.Mapping = mapping.Clone()
	s.UpdatedAt = now
	return s, nil
}

// WithResult completes an executing session.
func (s Session) WithResult(result *ImportResult, now time.Time) (Session, error) {
	next, err := s.Advance(StateCompleted, now)
	if err != nil {
		return s, err
	}
	next.Result = result
	return next, nil
}
