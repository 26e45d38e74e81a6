// Package staging provides the StagingArea implementations that hold uploaded
// files for the lifetime of an import session.
//
// Two backends exist:
//   - Disk stores each file and a JSON sidecar in a local directory
//   - S3 stores each file as one object with its metadata in object headers
//
// Both address files by handle only. Handles are validated as UUIDs before
// they reach a path or an object key.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a staged file does not exist.
var ErrNotFound = errors.New("staged file not found")

const (
	dataSuffix = ".data"
	metaSuffix = ".json"
)

// Disk is a StagingArea backed by a local directory.
type Disk struct {
	dir string
}

// NewDisk creates the staging directory if needed.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "subtrack-staging")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the staging directory.
func (d *Disk) Dir() string { return d.dir }

// Put writes the file and its metadata sidecar.
func (d *Disk) Put(_ context.Context, file core.UploadedFile, data []byte) (core.UploadedFile, error) {
	if err := validHandle(file.Handle); err != nil {
		return core.UploadedFile{}, err
	}

	file.StoragePath = d.path(file.Handle, dataSuffix)
	if err := writeFileAtomic(file.StoragePath, data); err != nil {
		return core.UploadedFile{}, fmt.Errorf("write staged file: %w", err)
	}

	meta, err := json.Marshal(file)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("encode staged metadata: %w", err)
	}
	if err := writeFileAtomic(d.path(file.Handle, metaSuffix), meta); err != nil {
		os.Remove(file.StoragePath)
		return core.UploadedFile{}, fmt.Errorf("write staged metadata: %w", err)
	}
	return file, nil
}

// Open reads the staged bytes.
func (d *Disk) Open(_ context.Context, file core.UploadedFile) ([]byte, error) {
	if err := validHandle(file.Handle); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(file.Handle, dataSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file.Handle)
	}
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return data, nil
}

// Delete removes the file and its sidecar. Deleting a missing file is not an error.
func (d *Disk) Delete(_ context.Context, file core.UploadedFile) error {
	if err := validHandle(file.Handle); err != nil {
		return err
	}
	var errs []error
	for _, suffix := range []string{dataSuffix, metaSuffix} {
		if err := os.Remove(d.path(file.Handle, suffix)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListExpired returns staged files created before cutoff. Data files whose
// sidecar is missing or corrupt fall back to the file modification time.
func (d *Disk) ListExpired(_ context.Context, cutoff time.Time) ([]core.UploadedFile, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list staging dir: %w", err)
	}

	var expired []core.UploadedFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, dataSuffix) {
			continue
		}
		handle := strings.TrimSuffix(name, dataSuffix)
		if validHandle(handle) != nil {
			continue
		}

		file, ok := d.readMeta(handle)
		if !ok {
			info, err := e.Info()
			if err != nil {
				continue
			}
			file = core.UploadedFile{Handle: handle, SizeBytes: info.Size(), CreatedAt: info.ModTime()}
		}
		file.StoragePath = d.path(handle, dataSuffix)

		if file.CreatedAt.Before(cutoff) {
			expired = append(expired, file)
		}
	}
	return expired, nil
}

func (d *Disk) readMeta(handle string) (core.UploadedFile, bool) {
	raw, err := os.ReadFile(d.path(handle, metaSuffix))
	if err != nil {
		return core.UploadedFile{}, false
	}
	var file core.UploadedFile
	if err := json.Unmarshal(raw, &file); err != nil || file.Handle != handle {
		return core.UploadedFile{}, false
	}
	return file, true
}

func (d *Disk) path(handle, suffix string) string {
	return filepath.Join(d.dir, handle+suffix)
}

// writeFileAtomic writes through a temp file so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".staging-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func validHandle(handle string) error {
	if _, err := uuid.Parse(handle); err != nil {
		return fmt.Errorf("invalid staging handle %q", handle)
	}
	return nil
}
