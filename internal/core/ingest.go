package core

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload ceiling when none is configured (10 MiB).
const DefaultMaxFileSize int64 = 10 << 20

// DefaultAllowedExtensions are the accepted upload formats.
var DefaultAllowedExtensions = []string{"csv", "xlsx", "xls"}

// Ingestor validates raw uploads and writes them to the staging area.
type Ingestor struct {
	staging StagingArea
	maxSize int64
	allowed map[string]FileKind
}

// NewIngestor creates an ingestor. Extensions outside csv/xlsx/xls are ignored
// because no parser exists for them.
func NewIngestor(staging StagingArea, maxSize int64, allowedExtensions []string) *Ingestor {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}

	allowed := make(map[string]FileKind, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		switch FileKind(ext) {
		case KindCSV, KindXLSX, KindXLS:
			allowed[ext] = FileKind(ext)
		}
	}

	return &Ingestor{staging: staging, maxSize: maxSize, allowed: allowed}
}

// MaxSize returns the configured size ceiling in bytes.
func (in *Ingestor) MaxSize() int64 { return in.maxSize }

// DetectKind returns the file kind for name, or a *FileError(unsupported_type).
func (in *Ingestor) DetectKind(name string) (FileKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	kind, ok := in.allowed[ext]
	if !ok {
		return "", &FileError{Kind: FileUnsupportedType, Name: name}
	}
	return kind, nil
}

// Ingest reads at most maxSize bytes from r and stages them under a new
// handle. Nothing is written when the extension or the size is rejected.
func (in *Ingestor) Ingest(ctx context.Context, name string, r io.Reader) (UploadedFile, error) {
	kind, err := in.DetectKind(name)
	if err != nil {
		return UploadedFile{}, err
	}

	// Read one byte past the limit to detect oversize without buffering it all.
	data, err := io.ReadAll(io.LimitReader(r, in.maxSize+1))
	if err != nil {
		return UploadedFile{}, &FileError{Kind: FileUnreadable, Name: name, Err: err}
	}
	if int64(len(data)) > in.maxSize {
		return UploadedFile{}, &FileError{Kind: FileTooLarge, Name: name, Size: int64(len(data)), Limit: in.maxSize}
	}

	file := UploadedFile{
		Handle:       uuid.NewString(),
		OriginalName: filepath.Base(name),
		SizeBytes:    int64(len(data)),
		MimeKind:     kind,
		CreatedAt:    time.Now().UTC(),
	}

	staged, err := in.staging.Put(ctx, file, data)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("stage upload: %w", err)
	}
	return staged, nil
}
