package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/google/uuid"
)

func newFile(created time.Time) core.UploadedFile {
	return core.UploadedFile{
		Handle:       uuid.NewString(),
		OriginalName: "Contrats 2024.csv",
		SizeBytes:    3,
		MimeKind:     core.KindCSV,
		CreatedAt:    created,
	}
}

func TestDisk_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}

	file := newFile(time.Now())
	staged, err := d.Put(ctx, file, []byte("a,b"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if staged.StoragePath != filepath.Join(d.Dir(), file.Handle+".data") {
		t.Errorf("StoragePath = %q", staged.StoragePath)
	}

	data, err := d.Open(ctx, staged)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(data) != "a,b" {
		t.Errorf("Open() = %q, want %q", data, "a,b")
	}

	if err := d.Delete(ctx, staged); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := d.Open(ctx, staged); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after Delete error = %v, want ErrNotFound", err)
	}
	if err := d.Delete(ctx, staged); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestDisk_RejectsInvalidHandles(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}

	for _, handle := range []string{"", "../etc/passwd", "not-a-uuid"} {
		f := core.UploadedFile{Handle: handle}
		if _, err := d.Put(ctx, f, []byte("x")); err == nil {
			t.Errorf("Put(%q) error = nil, want error", handle)
		}
		if _, err := d.Open(ctx, f); err == nil {
			t.Errorf("Open(%q) error = nil, want error", handle)
		}
		if err := d.Delete(ctx, f); err == nil {
			t.Errorf("Delete(%q) error = nil, want error", handle)
		}
	}
}

func TestDisk_ListExpired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}

	now := time.Now().UTC()
	old, _ := d.Put(ctx, newFile(now.Add(-2*time.Hour)), []byte("old"))
	fresh, _ := d.Put(ctx, newFile(now), []byte("new"))

	// A data file without a sidecar falls back to its modification time.
	bare := uuid.NewString()
	barePath := filepath.Join(dir, bare+".data")
	if err := os.WriteFile(barePath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	stale := now.Add(-3 * time.Hour)
	if err := os.Chtimes(barePath, stale, stale); err != nil {
		t.Fatal(err)
	}

	// Foreign files are ignored.
	os.WriteFile(filepath.Join(dir, "README.data"), []byte("x"), 0o600)

	expired, err := d.ListExpired(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListExpired() error = %v", err)
	}

	got := map[string]core.UploadedFile{}
	for _, f := range expired {
		got[f.Handle] = f
	}
	if len(got) != 2 {
		t.Fatalf("ListExpired() = %v, want 2 files", expired)
	}
	if f, ok := got[old.Handle]; !ok || f.OriginalName != "Contrats 2024.csv" {
		t.Errorf("old file = %+v, want metadata from sidecar", f)
	}
	if _, ok := got[bare]; !ok {
		t.Error("sidecar-less file not listed")
	}
	if _, ok := got[fresh.Handle]; ok {
		t.Error("fresh file listed as expired")
	}
}

func TestNewDisk_DefaultDir(t *testing.T) {
	d, err := NewDisk("")
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	if d.Dir() != filepath.Join(os.TempDir(), "subtrack-staging") {
		t.Errorf("Dir() = %q", d.Dir())
	}
}
