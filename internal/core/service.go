package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/subtrack/internal/logging"
	"github.com/JonMunkholm/subtrack/internal/metrics"
)

// ServiceConfig holds the tunables of the import pipeline.
// Zero values fall back to the package defaults.
type ServiceConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
	PreviewRows       int
	SampleRows        int
	MatchThreshold    float64
	DateOrder         DateOrder
	MaxConcurrent     int
	MaxWaitTime       time.Duration
	RowTimeout        time.Duration
}

// Service drives import sessions through ingest, preview, mapping and
// execution. Each method performs exactly one step of one session.
type Service struct {
	cfg       ServiceConfig
	staging   StagingArea
	ingestor  *Ingestor
	parser    *Parser
	suggester *Suggester
	executor  *Executor
	limiter   *ImportLimiter
	sessions  *SessionManager
	now       func() time.Time
}

// NewService wires the pipeline around a staging area and an entity store.
func NewService(cfg ServiceConfig, staging StagingArea, store EntityStore) *Service {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.DateOrder == "" {
		cfg.DateOrder = DayFirst
	}

	return &Service{
		cfg:       cfg,
		staging:   staging,
		ingestor:  NewIngestor(staging, cfg.MaxFileSize, cfg.AllowedExtensions),
		parser:    NewParser(cfg.SampleRows),
		suggester: NewSuggester(cfg.MatchThreshold),
		executor:  NewExecutor(store, cfg.RowTimeout, cfg.DateOrder),
		limiter:   NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		sessions:  NewSessionManager(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Schemas returns every registered entity schema.
func (s *Service) Schemas() []EntitySchema {
	return All()
}

// MaxFileSize returns the upload ceiling in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.ingestor.MaxSize()
}

// Upload stages a file and opens a new session in the Uploading state.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (Session, error) {
	log := logging.WithFields(ctx, "file", name)

	file, err := s.ingestor.Ingest(ctx, name, r)
	if err != nil {
		format := "unknown"
		if kind, kerr := s.ingestor.DetectKind(name); kerr == nil {
			format = string(kind)
		}
		metrics.RecordUpload(format, "rejected", 0)
		log.Info("upload rejected", "error", err)
		return Session{}, err
	}
	metrics.RecordUpload(string(file.MimeKind), "accepted", file.SizeBytes)

	session := NewSession(file, s.now())
	s.sessions.Add(session)
	metrics.RecordSessionStart()

	log.Info("import session created",
		"handle", file.Handle,
		"size_bytes", file.SizeBytes,
		"format", file.MimeKind,
	)
	return session, nil
}

// Get returns a snapshot of a live session.
func (s *Service) Get(handle string) (Session, error) {
	return s.sessions.Get(handle)
}

// Preview parses the staged file (once per session), suggests a mapping for
// entityType and moves the session to Previewing. Previewing again with
// another entity type re-suggests against the new schema.
func (s *Service) Preview(ctx context.Context, handle, entityType string) (*PreviewResponse, error) {
	session, release, err := s.sessions.begin(handle)
	if err != nil {
		return nil, err
	}
	defer release()

	log := logging.WithFields(ctx, "handle", handle, "entity_type", entityType)

	schema, err := Lookup(entityType)
	if err != nil {
		s.abort(ctx, session, "unknown_entity_type")
		return nil, err
	}
	if !CanTransition(session.State, StatePreviewing) {
		return nil, &TransitionError{From: session.State, To: StatePreviewing}
	}

	table, err := s.load(ctx, session)
	if err != nil {
		if IsFatal(err) {
			s.abort(ctx, session, "unreadable")
		}
		return nil, err
	}

	suggestion := s.suggester.Suggest(table.Columns, schema)
	next, err := session.WithPreview(schema.EntityType, table, suggestion.Mapping, s.now())
	if err != nil {
		return nil, err
	}
	s.sessions.put(next)

	log.Debug("preview built",
		"rows", len(table.Rows),
		"columns", len(table.Columns),
		"suggested_fields", len(suggestion.Mapping),
	)
	return buildPreview(next, schema, table, suggestion, s.cfg.PreviewRows), nil
}

// ConfirmPreview acknowledges the preview and moves the session to Mapping.
func (s *Service) ConfirmPreview(ctx context.Context, handle string) (Session, error) {
	session, release, err := s.sessions.begin(handle)
	if err != nil {
		return Session{}, err
	}
	defer release()

	next, err := session.Advance(StateMapping, s.now())
	if err != nil {
		return Session{}, err
	}
	s.sessions.put(next)

	logging.WithFields(ctx, "handle", handle).Debug("preview confirmed")
	return next, nil
}

// Execute validates mapping against entityType and, when it is complete,
// persists every row. A session still in Uploading or Previewing is parsed
// and acknowledged first. A *MappingError or ErrTooManyImports leaves the
// session in Mapping so the caller can retry; any other outcome ends it.
func (s *Service) Execute(ctx context.Context, handle, entityType string, mapping FieldMapping) (*ImportResult, error) {
	session, release, err := s.sessions.begin(handle)
	if err != nil {
		return nil, err
	}
	defer release()

	log := logging.WithFields(ctx, "handle", handle, "entity_type", entityType)

	schema, err := Lookup(entityType)
	if err != nil {
		s.abort(ctx, session, "unknown_entity_type")
		return nil, err
	}

	session, err = s.acknowledge(ctx, session, schema)
	if err != nil {
		return nil, err
	}

	session, err = session.WithMapping(schema.EntityType, mapping, s.now())
	if err != nil {
		return nil, err
	}
	s.sessions.put(session)

	if err := CheckMapping(schema, session.Table, session.Mapping); err != nil {
		log.Info("execution refused", "error", err)
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	session, err = session.Advance(StateExecuting, s.now())
	if err != nil {
		return nil, err
	}
	s.sessions.put(session)
	log.Info("import started", "rows", len(session.Table.Rows))

	result, err := s.executor.WithLogger(log).Run(ctx, schema, session.Table, session.Mapping)
	if err != nil {
		// The mapping was checked above; a failure here is a bug, but the
		// session must still reach a terminal state.
		result = &ImportResult{EntityType: schema.EntityType, Details: []RowOutcome{}}
		log.Error("import run failed", "error", err)
	}

	done, err := session.WithResult(result, s.now())
	if err != nil {
		return nil, err
	}
	s.sessions.put(done)
	s.release(ctx, done.File)

	metrics.RecordExecution(schema.EntityType, result.SuccessCount, result.FailedCount, result.WarningCount,
		time.Duration(result.DurationMs)*time.Millisecond)
	metrics.RecordSessionEnd(string(StateCompleted), "executed")

	log.Info("import completed",
		"total", result.Total,
		"succeeded", result.SuccessCount,
		"failed", result.FailedCount,
		"warned", result.WarningCount,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// acknowledge brings a session that has not yet reached Mapping there,
// parsing the staged file when no table is loaded.
func (s *Service) acknowledge(ctx context.Context, session Session, schema EntitySchema) (Session, error) {
	switch session.State {
	case StateMapping:
		if session.Table != nil {
			return session, nil
		}
	case StateUploading, StatePreviewing:
	default:
		return session, &TransitionError{From: session.State, To: StateExecuting}
	}

	table, err := s.load(ctx, session)
	if err != nil {
		if IsFatal(err) {
			s.abort(ctx, session, "unreadable")
		}
		return session, err
	}

	if session.State == StateUploading {
		suggestion := s.suggester.Suggest(table.Columns, schema)
		if session, err = session.WithPreview(schema.EntityType, table, suggestion.Mapping, s.now()); err != nil {
			return session, err
		}
	}
	session.Table = table
	if session.State == StatePreviewing {
		if session, err = session.Advance(StateMapping, s.now()); err != nil {
			return session, err
		}
	}
	return session, nil
}

// Abort ends a session and discards its staged file. A session that is
// executing cannot be aborted and reports ErrSessionBusy.
func (s *Service) Abort(ctx context.Context, handle string) error {
	session, release, err := s.sessions.begin(handle)
	if err != nil {
		return err
	}
	defer release()

	return s.abort(ctx, session, "cancelled")
}

// abort moves a claimed session to Aborted. The caller holds the session.
func (s *Service) abort(ctx context.Context, session Session, reason string) error {
	next, err := session.Advance(StateAborted, s.now())
	if err != nil {
		return err
	}
	s.sessions.put(next)
	s.release(ctx, next.File)
	metrics.RecordSessionEnd(string(StateAborted), reason)

	logging.WithFields(ctx, "handle", session.Handle).Info("import session aborted",
		"reason", reason,
		"from_state", session.State,
	)
	return nil
}

// load returns the session's parsed table, parsing the staged file if needed.
func (s *Service) load(ctx context.Context, session Session) (*ParsedTable, error) {
	if session.Table != nil {
		return session.Table, nil
	}

	data, err := s.staging.Open(ctx, session.File)
	if err != nil {
		return nil, fmt.Errorf("open staged file %s: %w", session.Handle, err)
	}
	return s.parser.Parse(session.File, data)
}

// release deletes a staged file. Failures are logged; the sweeper retries.
func (s *Service) release(ctx context.Context, file UploadedFile) {
	if err := s.staging.Delete(context.WithoutCancel(ctx), file); err != nil {
		logging.WithFields(ctx, "handle", file.Handle).Warn("failed to delete staged file", "error", err)
	}
}

// Template renders the import template of entityType.
func (s *Service) Template(entityType string, format TemplateFormat) (*Template, error) {
	schema, err := Lookup(entityType)
	if err != nil {
		return nil, err
	}
	return BuildTemplate(schema, format)
}

// LimiterStatus reports execution slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.sessions.Count()
}

// WaitForImports blocks until in-flight executions finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for imports: %w", err)
	}
	return nil
}

// IsRetryable reports whether err leaves the session usable for another attempt.
func IsRetryable(err error) bool {
	var me *MappingError
	return errors.As(err, &me) || errors.Is(err, ErrTooManyImports) || errors.Is(err, ErrSessionBusy)
}
